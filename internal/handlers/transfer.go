package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dyens/billing/internal/services/transfer"
	"github.com/dyens/billing/internal/utils/response"
)

type TransferHandler struct {
	dispatcher *transfer.Dispatcher
}

func NewTransferHandler(dispatcher *transfer.Dispatcher) *TransferHandler {
	return &TransferHandler{dispatcher: dispatcher}
}

type transferRequest struct {
	FromWalletID uint            `json:"from_wallet_id"`
	ToWalletID   uint            `json:"to_wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// Create accepts a transfer for asynchronous execution. The response is an
// acknowledgement, not the outcome; the returned id is queryable via Status.
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var input transferRequest
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	id, err := h.dispatcher.Enqueue(c.Context(), transfer.Request{
		FromWalletID: input.FromWalletID,
		ToWalletID:   input.ToWalletID,
		Amount:       input.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, transfer.ErrSameWallet):
			return response.UnprocessableEntity(c, "cannot transfer to the same wallet")
		case errors.Is(err, transfer.ErrInvalidAmount):
			return response.BadRequest(c, "amount must be positive")
		case errors.Is(err, transfer.ErrWalletNotFound):
			return response.NotFound(c, "wallet does not exist")
		case errors.Is(err, transfer.ErrQueueFull):
			return response.ServiceUnavailable(c, "transfer queue is full")
		default:
			return response.ServerError(c, "failed to accept transfer")
		}
	}

	return response.Accepted(c, fiber.Map{
		"transfer_id": id,
		"msg":         "Transaction created",
	})
}

func (h *TransferHandler) Status(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "invalid transfer id")
	}

	status, err := h.dispatcher.Status(c.Context(), id)
	if err != nil {
		if errors.Is(err, transfer.ErrJobNotFound) {
			return response.NotFound(c, "transfer does not exist")
		}
		return response.ServerError(c, "failed to get transfer status")
	}
	return response.Success(c, status)
}
