package payments

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/middleware"
)

// Handler exposes transfer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	WalletNumber string          `json:"wallet_number"`
	Amount       decimal.Decimal `json:"amount"`
}

// Transfer moves funds from the authenticated user's wallet to another wallet.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.WalletNumber == "" {
		return fiber.NewError(http.StatusBadRequest, "wallet_number is required")
	}
	uid, ok := c.Locals(middleware.UserIDKey).(uuid.UUID)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing identity")
	}

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		SenderUserID:          uid,
		RecipientWalletNumber: req.WalletNumber,
		Amount:                req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "amount must be positive with at most two decimal places")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, "insufficient funds")
		case errors.Is(err, ledger.ErrSameWallet):
			return fiber.NewError(http.StatusBadRequest, "cannot transfer to own wallet")
		case errors.Is(err, ledger.ErrWalletNotFound):
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		default:
			return fiber.NewError(http.StatusInternalServerError, "transfer failed")
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"debit_reference":   res.DebitReference,
		"credit_reference":  res.CreditReference,
		"sender_balance":    res.SenderBalance,
		"recipient_balance": res.RecipientBalance,
		"completed_at":      res.CompletedAt,
	})
}
