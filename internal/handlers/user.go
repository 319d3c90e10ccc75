// Package handlers contains the fiber HTTP handlers. They parse and
// validate requests, call the services and translate service errors to
// status codes; everything else lives below them.
package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/dyens/billing/internal/models"
	"github.com/dyens/billing/internal/services/user"
	"github.com/dyens/billing/internal/utils/response"
)

type UserHandler struct {
	userService user.Service
}

func NewUserHandler(userService user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

type registerRequest struct {
	Name     string          `json:"name"`
	Country  string          `json:"country"`
	City     string          `json:"city"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

func (h *UserHandler) Register(c *fiber.Ctx) error {
	var input registerRequest
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if input.Name == "" || input.Country == "" || input.City == "" {
		return response.BadRequest(c, "name, country and city are required")
	}

	userID, walletID, err := h.userService.Register(c.Context(), user.RegisterInput{
		Name:     input.Name,
		Country:  input.Country,
		City:     input.City,
		Currency: models.Currency(input.Currency),
		Balance:  input.Balance,
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidCurrency):
			return response.BadRequest(c, "unsupported currency")
		case errors.Is(err, user.ErrNegativeBalance):
			return response.BadRequest(c, "balance must not be negative")
		default:
			return response.ServerError(c, "failed to register user")
		}
	}

	return response.Success(c, fiber.Map{
		"new_user_id":   userID,
		"new_wallet_id": walletID,
	})
}

func (h *UserHandler) Info(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "invalid user id")
	}

	profile, err := h.userService.Info(c.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return response.NotFound(c, "user does not exist")
		}
		return response.ServerError(c, "failed to get user info")
	}
	return response.Success(c, profile)
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
