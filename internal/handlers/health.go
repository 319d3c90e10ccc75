package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dyens/billing/internal/utils/response"
)

func Health(c *fiber.Ctx) error {
	return response.Success(c, fiber.Map{"status": "ok"})
}
