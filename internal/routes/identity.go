package routes

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kobo-pay/kobo_pay/internal/identity"
	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

// RegisterIdentityRoutes wires identity endpoints and auto-provisions a wallet
// on registration.
func RegisterIdentityRoutes(r fiber.Router, ids *identity.Service, wallets *wallet.Service, logger *slog.Logger) {
	r.Post("/identity/register", func(c *fiber.Ctx) error {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			FullName string `json:"full_name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		user, err := ids.Register(c.UserContext(), identity.Credentials{Email: req.Email, Password: req.Password, FullName: req.FullName})
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		var walletNumber string
		if wallets != nil {
			w, err := wallets.CreateForUser(c.UserContext(), user.ID)
			if err != nil {
				return fiber.NewError(http.StatusInternalServerError, "could not provision wallet")
			}
			walletNumber = w.WalletNumber
		}
		if logger != nil {
			logger.Info("identity.register completed",
				slog.String("user_id", user.ID.String()),
				slog.String("email", user.Email),
				slog.String("wallet_number", walletNumber),
				slog.Int("status", http.StatusCreated),
			)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"user_id":       user.ID,
			"email":         user.Email,
			"full_name":     user.FullName,
			"wallet_number": walletNumber,
		})
	})
}
