package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InitialVersion is the version of a freshly created account.
// Creation is not counted as a mutation: the first posting yields version 1.
const InitialVersion int64 = 0

// Limits on what the ledger stores exactly on every backend.
const (
	MaxAmountScale    int32 = 18
	MaxCurrencyLength       = 16
)

// maxAmount is the exclusive upper bound of a single posting amount.
var maxAmount = decimal.New(1, 20)

// Account is a single-currency balance owned by the ledger.
// Balance always equals the signed sum of the account's transactions.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewAccount returns a zero-balance account at InitialVersion.
func NewAccount(id uuid.UUID, currency string, now time.Time) *Account {
	return &Account{
		ID:        id,
		Currency:  NormalizeCurrency(currency),
		Balance:   decimal.Zero,
		Version:   InitialVersion,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeCurrency trims and upper-cases a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidAmount reports whether amount is strictly positive, below 10^20 and
// carries no more than MaxAmountScale fractional digits.
func ValidAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() || amount.GreaterThanOrEqual(maxAmount) {
		return false
	}
	return amount.Equal(amount.Truncate(MaxAmountScale))
}

// Post computes the state produced by applying amount to the account together
// with the ledger entry recording it. The receiver is not modified; callers
// persist both results or neither.
func (a Account) Post(amount decimal.Decimal, idempotencyKey string, txID uuid.UUID, now time.Time) (Account, Transaction) {
	next := a
	next.Balance = a.Balance.Add(amount)
	next.Version = a.Version + 1
	next.UpdatedAt = now

	entry := Transaction{
		ID:             txID,
		AccountID:      a.ID,
		Amount:         amount,
		Currency:       a.Currency,
		AccountVersion: next.Version,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
	}
	return next, entry
}

// CanCover reports whether debiting amount keeps the balance non-negative.
func (a Account) CanCover(amount decimal.Decimal) bool {
	return a.Balance.Sub(amount).GreaterThanOrEqual(decimal.Zero)
}
