package dto

import (
	"time"

	"mini-ledger/internal/core/domain"
)

// Amounts travel as decimal strings so no precision is lost at the boundary.

// CreateAccountRequest is the request body for account creation.
type CreateAccountRequest struct {
	ID       string `json:"id" binding:"required,uuid"`
	Currency string `json:"currency" binding:"required,currency_code"`
}

// PostingRequest is the request body for deposits and withdrawals.
type PostingRequest struct {
	Amount         string `json:"amount" binding:"required,decimal_amount"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=128,safe_id"`
}

// TransferRequest is the request body for transfers.
type TransferRequest struct {
	FromAccountID  string `json:"from_account_id" binding:"required,uuid"`
	ToAccountID    string `json:"to_account_id" binding:"required,uuid"`
	Amount         string `json:"amount" binding:"required,decimal_amount"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=128,safe_id"`
}

// AccountResponse is the wire form of an account.
type AccountResponse struct {
	ID        string `json:"id"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	Version   int64  `json:"version"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// TransactionResponse is the wire form of a ledger entry.
type TransactionResponse struct {
	ID             string `json:"id"`
	AccountID      string `json:"account_id"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	AccountVersion int64  `json:"account_version"`
	IdempotencyKey string `json:"idempotency_key"`
	CreatedAt      string `json:"created_at"`
}

// PostingResponse wraps the entries produced (or replayed) by a mutation.
type PostingResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// TransactionListResponse wraps an account statement.
type TransactionListResponse struct {
	Items []TransactionResponse `json:"items"`
}

// NewAccountResponse converts a domain account.
func NewAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID.String(),
		Currency:  a.Currency,
		Balance:   a.Balance.String(),
		Version:   a.Version,
		CreatedAt: formatTime(a.CreatedAt),
		UpdatedAt: formatTime(a.UpdatedAt),
	}
}

// NewTransactionResponses converts ledger entries, preserving order.
func NewTransactionResponses(entries []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, TransactionResponse{
			ID:             e.ID.String(),
			AccountID:      e.AccountID.String(),
			Amount:         e.Amount.String(),
			Currency:       e.Currency,
			AccountVersion: e.AccountVersion,
			IdempotencyKey: e.IdempotencyKey,
			CreatedAt:      formatTime(e.CreatedAt),
		})
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
