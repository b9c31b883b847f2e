package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/exp/slog"
)

// Client talks to the platform wallet/ledger service. The engine only
// ever credits: a claim is committed before the credit is dispatched,
// and a failed credit is retried by the wallet's own reconciliation,
// never by reversing the claim.
type Client struct {
	BaseURL    string
	APIKey     string
	MockWallet bool
	client     *http.Client
}

// CreditRequest is the payout instruction sent to the wallet
type CreditRequest struct {
	UserID    string  `json:"userId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Reference string  `json:"reference"`
}

// NewClient creates a new wallet client
func NewClient(baseURL, apiKey string, mockWallet bool) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		MockWallet: mockWallet,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Credit credits the user's wallet. Reference is the idempotency key on
// the wallet side, so redelivering the same instruction is safe.
func (c *Client) Credit(ctx context.Context, userID string, amount float64, currency, reference string) error {
	if c.MockWallet {
		slog.Info("Mock wallet credit", "userId", userID, "amount", amount, "currency", currency, "reference", reference)
		return nil
	}

	body, err := json.Marshal(CreditRequest{
		UserID:    userID,
		Amount:    amount,
		Currency:  currency,
		Reference: reference,
	})
	if err != nil {
		return fmt.Errorf("failed to encode credit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/credits", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build credit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("wallet request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("wallet returned status %d", resp.StatusCode)
	}
	return nil
}
