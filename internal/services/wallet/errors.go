package wallet

import "errors"

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrWalletNotFound   = errors.New("wallet not found")
	ErrBalanceBelowZero = errors.New("operation would drive balance below zero")
)
