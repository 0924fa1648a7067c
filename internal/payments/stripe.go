package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Intent is the subset of a Stripe PaymentIntent the API exposes to clients.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// IntentClient creates payment intents. The Stripe-backed implementation
// can be swapped for a stub in tests.
type IntentClient interface {
	CreateIntent(ctx context.Context, amount int64, currency string) (*Intent, error)
}

// StripeClient talks to the Stripe PaymentIntents API directly over HTTP
// with form-encoded bodies, avoiding a heavyweight SDK dependency.
type StripeClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	dryRun     bool
}

// NewStripeClient creates a Stripe payment-intent client.
func NewStripeClient(secretKey string, logger *zap.Logger) *StripeClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeClient{
		secretKey:  secretKey,
		baseURL:    "https://api.stripe.com",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (c *StripeClient) WithBaseURL(baseURL string) *StripeClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithDryRun enables dry-run mode: fabricated intents, no network calls.
func (c *StripeClient) WithDryRun(enabled bool) *StripeClient {
	c.dryRun = enabled
	return c
}

// CreateIntent raises a PaymentIntent for the given amount in the smallest
// currency unit.
func (c *StripeClient) CreateIntent(ctx context.Context, amount int64, currency string) (*Intent, error) {
	if c.dryRun {
		id := "pi_dryrun_" + uuid.NewString()
		c.logger.Info("stripe dry run: fabricated payment intent", zap.String("intent_id", id), zap.Int64("amount", amount))
		return &Intent{
			ID:           id,
			ClientSecret: id + "_secret",
			Amount:       amount,
			Currency:     currency,
			Status:       "requires_payment_method",
		}, nil
	}

	if c.secretKey == "" {
		return nil, fmt.Errorf("stripe: secret key not configured")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)
	form.Add("payment_method_types[]", "card")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("stripe: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("stripe: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Error("stripe returned error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, fmt.Errorf("stripe: payment intent creation failed with status %d", resp.StatusCode)
	}

	var intent Intent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("stripe: decode response: %w", err)
	}

	return &intent, nil
}
