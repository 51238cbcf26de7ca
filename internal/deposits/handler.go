package deposits

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/middleware"
	"github.com/kobo-pay/kobo_pay/internal/paystack"
)

const signatureHeader = "x-paystack-signature"

// Handler exposes deposit endpoints.
type Handler struct {
	service *Service
	gateway paystack.Gateway
	logger  *slog.Logger
}

// NewHandler constructs a deposit handler.
func NewHandler(service *Service, gateway paystack.Gateway, logger *slog.Logger) *Handler {
	return &Handler{service: service, gateway: gateway, logger: logger}
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Initialize starts a hosted-payment deposit for the authenticated user.
func (h *Handler) Initialize(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, ok := c.Locals(middleware.UserIDKey).(uuid.UUID)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing identity")
	}

	res, err := h.service.Initialize(c.UserContext(), uid, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "amount must be positive with at most two decimal places")
		case errors.Is(err, ledger.ErrWalletNotFound):
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		case errors.Is(err, ledger.ErrDuplicateReference):
			return fiber.NewError(http.StatusConflict, "duplicate deposit reference")
		default:
			return fiber.NewError(http.StatusBadGateway, "could not initialize deposit")
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"reference":         res.Reference,
		"authorization_url": res.AuthorizationURL,
		"amount":            res.Amount,
	})
}

// Callback handles the browser redirect after a hosted payment. It verifies
// the reference with the gateway and settles it when paid.
func (h *Handler) Callback(c *fiber.Ctx) error {
	reference := c.Query("reference")
	if reference == "" {
		reference = c.Query("trxref")
	}
	if reference == "" {
		return fiber.NewError(http.StatusBadRequest, "reference is required")
	}

	res, err := h.service.Settle(c.UserContext(), reference)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			return fiber.NewError(http.StatusNotFound, "unknown deposit reference")
		}
		return fiber.NewError(http.StatusBadGateway, "could not verify deposit")
	}

	return c.JSON(fiber.Map{
		"reference":      res.Reference,
		"gateway_status": res.GatewayStatus,
		"amount":         res.Amount,
		"credited":       res.Credited,
	})
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

// Webhook consumes gateway event notifications. The signature is checked
// against the raw body before anything is parsed, and processing outcomes are
// acknowledged with 200 so the gateway does not retry what we have already
// seen.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	body := c.Body()
	if !h.gateway.VerifyWebhookSignature(c.Get(signatureHeader), body) {
		return fiber.NewError(http.StatusUnauthorized, "invalid signature")
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed event")
	}

	if event.Event == "charge.success" && event.Data.Status == "success" {
		if _, err := h.service.Confirm(c.UserContext(), event.Data.Reference); err != nil {
			h.logger.Error("webhook credit failed", "reference", event.Data.Reference, "error", err)
		}
	}

	return c.SendStatus(http.StatusOK)
}

// Status reports the gateway-side state of a deposit, settling it if paid.
func (h *Handler) Status(c *fiber.Ctx) error {
	reference := c.Params("reference")

	res, err := h.service.Settle(c.UserContext(), reference)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			return fiber.NewError(http.StatusNotFound, "unknown deposit reference")
		}
		return fiber.NewError(http.StatusBadGateway, "could not verify deposit")
	}

	return c.JSON(fiber.Map{
		"reference":      res.Reference,
		"gateway_status": res.GatewayStatus,
		"amount":         res.Amount,
		"credited":       res.Credited,
	})
}
