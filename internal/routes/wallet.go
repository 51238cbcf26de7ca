package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/middleware"
)

// RegisterWalletRoutes exposes balance and history reads for the
// authenticated user's wallet.
func RegisterWalletRoutes(r fiber.Router, ledgerBackend ledger.Ledger) {
	r.Get("/wallet/balance", func(c *fiber.Ctx) error {
		uid, ok := c.Locals(middleware.UserIDKey).(uuid.UUID)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "missing identity")
		}

		info, err := ledgerBackend.Balance(c.UserContext(), uid)
		if err != nil {
			if errors.Is(err, ledger.ErrWalletNotFound) {
				return fiber.NewError(http.StatusNotFound, "wallet not found")
			}
			return fiber.NewError(http.StatusInternalServerError, "could not load balance")
		}

		return c.JSON(fiber.Map{
			"wallet_number": info.WalletNumber,
			"balance":       info.Balance,
			"currency":      info.Currency,
			"as_of":         info.AsOf,
		})
	})

	r.Get("/wallet/transactions", func(c *fiber.Ctx) error {
		uid, ok := c.Locals(middleware.UserIDKey).(uuid.UUID)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "missing identity")
		}

		entries, err := ledgerBackend.History(c.UserContext(), uid)
		if err != nil {
			if errors.Is(err, ledger.ErrWalletNotFound) {
				return fiber.NewError(http.StatusNotFound, "wallet not found")
			}
			return fiber.NewError(http.StatusInternalServerError, "could not load transactions")
		}

		out := make([]fiber.Map, 0, len(entries))
		for _, e := range entries {
			out = append(out, fiber.Map{
				"type":       e.Type,
				"amount":     e.Amount,
				"status":     e.Status,
				"reference":  e.Reference,
				"created_at": e.CreatedAt,
			})
		}

		return c.JSON(fiber.Map{"transactions": out})
	})
}
