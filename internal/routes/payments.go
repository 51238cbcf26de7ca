package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kobo-pay/kobo_pay/internal/payments"
)

// RegisterPaymentRoutes wires transfer endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/wallet/transfer", h.Transfer)
}
