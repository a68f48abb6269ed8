package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Operation identifies the business operation that produced a set of entries.
type Operation string

const (
	OperationDeposit    Operation = "DEPOSIT"
	OperationWithdrawal Operation = "WITHDRAWAL"
	OperationTransfer   Operation = "TRANSFER"
)

// Transaction is an immutable ledger entry posted against one account.
// Positive amounts are credits, negative amounts are debits.
type Transaction struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	AccountVersion int64           `json:"account_version"` // account version after this entry
	IdempotencyKey string          `json:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at"`
}

// IsCredit returns true if the entry increases the balance.
func (t *Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// IsDebit returns true if the entry decreases the balance.
func (t *Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// SumAmounts returns the signed sum of the entries' amounts.
func SumAmounts(entries []Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum
}
