package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kobo-pay/kobo_pay/internal/deposits"
)

// RegisterDepositRoutes wires the authenticated deposit endpoints.
func RegisterDepositRoutes(r fiber.Router, h *deposits.Handler) {
	r.Post("/wallet/deposit", h.Initialize)
	r.Get("/wallet/deposit/:reference/status", h.Status)
}

// RegisterDepositCallbackRoutes wires the endpoints the gateway calls back
// into. They carry no session, so they live outside the JWT group.
func RegisterDepositCallbackRoutes(r fiber.Router, h *deposits.Handler) {
	r.Get("/wallet/deposit/callback", h.Callback)
	r.Post("/wallet/paystack/webhook", h.Webhook)
}
