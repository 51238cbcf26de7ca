package paystack

import (
	"context"

	"github.com/shopspring/decimal"
)

// Initialization is the gateway's answer to a deposit initialization: the
// URL the user completes payment at, echoing our reference.
type Initialization struct {
	AuthorizationURL string
	Reference        string
}

// Verification reports the gateway-side state of a transaction. Amount is in
// major units; the engine never credits from it, it is informational only.
type Verification struct {
	Reference string
	Status    string
	Amount    decimal.Decimal
}

// Gateway abstracts the external payment provider. The ledger engine never
// talks to it directly; the deposits service does, and trusts only the
// reference when crediting.
type Gateway interface {
	Initialize(ctx context.Context, email string, amount decimal.Decimal, reference string) (Initialization, error)
	Verify(ctx context.Context, reference string) (Verification, error)
	VerifyWebhookSignature(signature string, body []byte) bool
}
