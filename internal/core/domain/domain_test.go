package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewAccount(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	id := uuid.New()

	acc := NewAccount(id, " usd ", now)

	assert.Equal(t, id, acc.ID)
	assert.Equal(t, "USD", acc.Currency)
	assert.True(t, acc.Balance.IsZero())
	assert.Equal(t, InitialVersion, acc.Version)
	assert.Equal(t, now, acc.CreatedAt)
	assert.Equal(t, now, acc.UpdatedAt)
}

func TestAccount_Post(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	posted := created.Add(time.Minute)
	acc := *NewAccount(uuid.New(), "USD", created)
	txID := uuid.New()

	next, entry := acc.Post(decimal.NewFromInt(100), "k1", txID, posted)

	assert.True(t, acc.Balance.IsZero(), "receiver must not change")
	assert.Equal(t, InitialVersion, acc.Version)

	assert.True(t, decimal.NewFromInt(100).Equal(next.Balance))
	assert.Equal(t, int64(1), next.Version)
	assert.Equal(t, posted, next.UpdatedAt)
	assert.Equal(t, created, next.CreatedAt)

	assert.Equal(t, txID, entry.ID)
	assert.Equal(t, acc.ID, entry.AccountID)
	assert.Equal(t, "USD", entry.Currency)
	assert.Equal(t, int64(1), entry.AccountVersion)
	assert.Equal(t, "k1", entry.IdempotencyKey)
	assert.Equal(t, posted, entry.CreatedAt)
	assert.True(t, entry.IsCredit())
	assert.False(t, entry.IsDebit())
}

func TestAccount_PostDebitKeepsExactDecimal(t *testing.T) {
	acc := *NewAccount(uuid.New(), "USD", time.Now())
	acc, _ = acc.Post(decimal.RequireFromString("0.3"), "a", uuid.New(), time.Now())

	next, entry := acc.Post(decimal.RequireFromString("-0.1"), "b", uuid.New(), time.Now())

	assert.Equal(t, "0.2", next.Balance.String())
	assert.True(t, entry.IsDebit())
	assert.Equal(t, int64(2), next.Version)
}

func TestAccount_CanCover(t *testing.T) {
	acc := Account{Balance: decimal.NewFromInt(100)}

	tests := []struct {
		name   string
		amount string
		want   bool
	}{
		{"less", "99.99", true},
		{"exact", "100", true},
		{"more", "100.01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, acc.CanCover(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestSumAmounts(t *testing.T) {
	entries := []Transaction{
		{Amount: decimal.RequireFromString("50")},
		{Amount: decimal.RequireFromString("-30.25")},
		{Amount: decimal.RequireFromString("0.25")},
	}
	assert.Equal(t, "20", SumAmounts(entries).String())
	assert.True(t, SumAmounts(nil).IsZero())
}

func TestBuildIdempotencyKey(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	key := BuildIdempotencyKey(id, "k1")
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000:k1", key)
}

func TestIdempotencyRecord_ScopeAndMatches(t *testing.T) {
	id := uuid.New()
	rec := &IdempotencyRecord{AccountID: id, Key: "t1", Operation: OperationTransfer}

	assert.Equal(t, IdempotencyScope{AccountID: id, Key: "t1"}, rec.Scope())
	assert.True(t, rec.Matches(OperationTransfer))
	assert.False(t, rec.Matches(OperationDeposit))
}

func TestCloneEntries(t *testing.T) {
	orig := []Transaction{{IdempotencyKey: "a"}}
	cp := CloneEntries(orig)
	cp[0].IdempotencyKey = "b"

	assert.Equal(t, "a", orig[0].IdempotencyKey)
	assert.Nil(t, CloneEntries(nil))
}

func TestOperation_Constants(t *testing.T) {
	assert.Equal(t, Operation("DEPOSIT"), OperationDeposit)
	assert.Equal(t, Operation("WITHDRAWAL"), OperationWithdrawal)
	assert.Equal(t, Operation("TRANSFER"), OperationTransfer)
}

func TestValidAmount(t *testing.T) {
	tests := []struct {
		amount string
		valid  bool
	}{
		{"0.01", true},
		{"0.000000000000000001", true},
		{"1.500000000000000000000", true},
		{"99999999999999999999.999999999999999999", true},
		{"0", false},
		{"-5", false},
		{"0.0000000000000000001", false},
		{"100000000000000000000", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidAmount(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestIdempotencyRecord_CoversAccounts(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	rec := &IdempotencyRecord{Entries: []Transaction{{AccountID: a}, {AccountID: b}}}

	assert.True(t, rec.CoversAccounts(a, b))
	assert.False(t, rec.CoversAccounts(b, a))
	assert.False(t, rec.CoversAccounts(a, c))
	assert.False(t, rec.CoversAccounts(a))
}
