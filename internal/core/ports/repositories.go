package ports

import (
	"context"
	"time"

	"mini-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Storage is the exclusive owner and sole mutator of ledger state.
// Every method is atomic with respect to the account(s) it touches.
// Errors are *apperror.AppError values (NotFound, AlreadyExists,
// InsufficientFunds, CurrencyMismatch, StorageUnavailable).
type Storage interface {
	// CreateAccount fails with AlreadyExists if the id is taken.
	CreateAccount(ctx context.Context, id uuid.UUID, currency string) (*domain.Account, error)
	// GetAccount fails with NotFound if the id is unknown.
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// FindIdempotent returns the record for (accountID, key), or nil, nil when absent.
	FindIdempotent(ctx context.Context, accountID uuid.UUID, key string) (*domain.IdempotencyRecord, error)
	// Apply posts a single entry. The balance update, entry append, version
	// bump and idempotency record become visible together or not at all.
	Apply(ctx context.Context, req ApplyRequest) (*Posting, error)
	// ApplyTransfer posts a debit on FromID and a credit on ToID as one unit.
	ApplyTransfer(ctx context.Context, req TransferApplyRequest) (*Posting, error)
	// ListTransactions returns an account's entries in posting order.
	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error)
}

// ApplyRequest describes a single-account posting.
type ApplyRequest struct {
	AccountID      uuid.UUID
	Amount         decimal.Decimal // signed
	IdempotencyKey string
	Operation      domain.Operation
	// RejectOverdraft fails the posting with InsufficientFunds when the
	// resulting balance would be negative. Evaluated under the storage lock.
	RejectOverdraft bool
}

// TransferApplyRequest describes a two-leg transfer. Amount is positive.
type TransferApplyRequest struct {
	FromID         uuid.UUID
	ToID           uuid.UUID
	Amount         decimal.Decimal
	IdempotencyKey string
}

// Posting is the outcome of Apply or ApplyTransfer.
type Posting struct {
	// Accounts holds the post-state of each touched account, in the same
	// order as Entries. Empty when Replayed is true.
	Accounts []domain.Account
	// Entries holds the produced entries; for transfers the debit comes first.
	Entries []domain.Transaction
	// Replayed is true when the idempotency key had already been applied by
	// the time the storage lock was acquired; Entries are the original ones.
	Replayed  bool
	Operation domain.Operation
}

// IdempotencyCache is the fast-path replay cache in front of Storage.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached record JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
