package transfer

import "errors"

var (
	ErrSameWallet     = errors.New("cannot transfer to the same wallet")
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrWalletNotFound = errors.New("wallet not found")
	ErrQueueFull      = errors.New("transfer queue is full")
	ErrJobNotFound    = errors.New("transfer job not found")
)
