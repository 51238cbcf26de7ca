package paystack

import (
	"context"

	"github.com/shopspring/decimal"
)

// StaticGateway simulates an always-approving gateway for tests and
// database-less development runs.
type StaticGateway struct{}

// Initialize returns a synthetic checkout URL echoing the reference.
func (StaticGateway) Initialize(_ context.Context, _ string, _ decimal.Decimal, reference string) (Initialization, error) {
	return Initialization{
		AuthorizationURL: "https://checkout.invalid/" + reference,
		Reference:        reference,
	}, nil
}

// Verify reports every transaction as successfully paid.
func (StaticGateway) Verify(_ context.Context, reference string) (Verification, error) {
	return Verification{Reference: reference, Status: "success", Amount: decimal.Zero}, nil
}

// VerifyWebhookSignature accepts any signature.
func (StaticGateway) VerifyWebhookSignature(string, []byte) bool {
	return true
}
