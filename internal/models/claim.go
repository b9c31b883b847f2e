package models

// ClaimResult is returned on a successful claim. Amount is the reward
// debited from the task budget; Reference is the payout reference
// handed to the wallet.
type ClaimResult struct {
	Progress  *Progress `json:"progress"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Reference string    `json:"reference"`
}
