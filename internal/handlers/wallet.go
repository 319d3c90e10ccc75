package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/dyens/billing/internal/services/wallet"
	"github.com/dyens/billing/internal/utils/response"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

type topUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *WalletHandler) TopUp(c *fiber.Ctx) error {
	walletID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "invalid wallet id")
	}

	var input topUpRequest
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	newBalance, err := h.walletService.TopUp(c.Context(), walletID, input.Amount)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidAmount):
			return response.BadRequest(c, "amount must be positive")
		case errors.Is(err, wallet.ErrWalletNotFound):
			return response.NotFound(c, "wallet does not exist")
		default:
			return response.ServerError(c, "failed to top up wallet")
		}
	}

	return response.Success(c, fiber.Map{
		"wallet_id":   walletID,
		"new_balance": newBalance,
	})
}
