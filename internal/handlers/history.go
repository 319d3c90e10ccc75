package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dyens/billing/internal/services/history"
	"github.com/dyens/billing/internal/utils/response"
)

type HistoryHandler struct {
	historyService history.Service
}

func NewHistoryHandler(historyService history.Service) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

func (h *HistoryHandler) Transfers(c *fiber.Ctx) error {
	walletID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "invalid wallet id")
	}

	start, err := parseTimeQuery(c, "start")
	if err != nil {
		return response.BadRequest(c, "invalid start time, expected RFC 3339")
	}
	end, err := parseTimeQuery(c, "end")
	if err != nil {
		return response.BadRequest(c, "invalid end time, expected RFC 3339")
	}

	entries, err := h.historyService.Transfers(c.Context(), walletID, start, end)
	if err != nil {
		return response.ServerError(c, "failed to get transfer history")
	}
	return response.Success(c, fiber.Map{
		"wallet_id": walletID,
		"history":   entries,
	})
}

func (h *HistoryHandler) Logs(c *fiber.Ctx) error {
	transactionID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "invalid transaction id")
	}

	logs, err := h.historyService.Logs(c.Context(), transactionID)
	if err != nil {
		if errors.Is(err, history.ErrTransactionNotFound) {
			return response.NotFound(c, "transaction does not exist")
		}
		return response.ServerError(c, "failed to get transaction logs")
	}
	return response.Success(c, fiber.Map{
		"transaction_id": transactionID,
		"logs":           logs,
	})
}

func parseTimeQuery(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
