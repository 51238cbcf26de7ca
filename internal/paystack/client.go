package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// minorUnits converts a major-unit amount to kobo for the wire. Paystack's
// API speaks minor units exclusively; everything inside this service is
// major-unit decimal.
var minorUnits = decimal.NewFromInt(100)

// Client calls the Paystack REST API.
type Client struct {
	baseURL     string
	secretKey   string
	callbackURL string
	http        *http.Client
}

// NewClient builds a Paystack API client. baseURL is overridable for tests.
func NewClient(baseURL, secretKey, callbackURL string) *Client {
	return &Client{
		baseURL:     baseURL,
		secretKey:   secretKey,
		callbackURL: callbackURL,
		http:        &http.Client{Timeout: 30 * time.Second},
	}
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
}

// Initialize starts a hosted-payment transaction for amount under reference.
func (c *Client) Initialize(ctx context.Context, email string, amount decimal.Decimal, reference string) (Initialization, error) {
	payload := map[string]any{
		"email":        email,
		"amount":       amount.Mul(minorUnits).IntPart(),
		"reference":    reference,
		"callback_url": c.callbackURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Initialization{}, err
	}

	var data initializeData
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(body), &data); err != nil {
		return Initialization{}, fmt.Errorf("paystack initialize: %w", err)
	}
	if data.AuthorizationURL == "" {
		return Initialization{}, fmt.Errorf("paystack initialize: missing authorization url")
	}
	return Initialization{AuthorizationURL: data.AuthorizationURL, Reference: data.Reference}, nil
}

// Verify fetches the gateway-side state of the transaction behind reference.
func (c *Client) Verify(ctx context.Context, reference string) (Verification, error) {
	var data verifyData
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &data); err != nil {
		return Verification{}, fmt.Errorf("paystack verify: %w", err)
	}
	return Verification{
		Reference: data.Reference,
		Status:    data.Status,
		Amount:    data.Amount.Div(minorUnits),
	}, nil
}

// VerifyWebhookSignature checks the x-paystack-signature header: an
// HMAC-SHA512 hex digest of the raw body keyed with the secret key.
func (c *Client) VerifyWebhookSignature(signature string, body []byte) bool {
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, raw)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !envelope.Status {
		return fmt.Errorf("gateway rejected request: %s", envelope.Message)
	}
	return json.Unmarshal(envelope.Data, out)
}
