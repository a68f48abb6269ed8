package ports

import (
	"context"

	"mini-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerService exposes the ledger use cases to transport adapters.
type LedgerService interface {
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*domain.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error)
	Deposit(ctx context.Context, req DepositRequest) ([]domain.Transaction, error)
	Withdraw(ctx context.Context, req WithdrawRequest) ([]domain.Transaction, error)
	Transfer(ctx context.Context, req TransferRequest) ([]domain.Transaction, error)
}

// CreateAccountRequest holds input for account creation.
type CreateAccountRequest struct {
	ID       uuid.UUID
	Currency string
}

// DepositRequest holds input for a deposit. Amount must be strictly positive.
type DepositRequest struct {
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	IdempotencyKey string
}

// WithdrawRequest holds input for a withdrawal. Amount must be strictly positive.
type WithdrawRequest struct {
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	IdempotencyKey string
}

// TransferRequest holds input for a transfer between two accounts.
type TransferRequest struct {
	FromAccountID  uuid.UUID
	ToAccountID    uuid.UUID
	Amount         decimal.Decimal
	IdempotencyKey string
}
