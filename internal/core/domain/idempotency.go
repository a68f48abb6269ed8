package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord remembers the entries produced by the first successful
// application of a client key against an account. A transfer writes one record
// per leg, each holding both entries, so a retry is recognized from either side.
type IdempotencyRecord struct {
	AccountID uuid.UUID     `json:"account_id"`
	Key       string        `json:"key"`
	Operation Operation     `json:"operation"`
	Entries   []Transaction `json:"entries"`
	CreatedAt time.Time     `json:"created_at"`
}

// IdempotencyScope is the lookup key of an IdempotencyRecord.
type IdempotencyScope struct {
	AccountID uuid.UUID
	Key       string
}

// Scope returns the record's lookup key.
func (r *IdempotencyRecord) Scope() IdempotencyScope {
	return IdempotencyScope{AccountID: r.AccountID, Key: r.Key}
}

// Matches reports whether the record was produced by op.
func (r *IdempotencyRecord) Matches(op Operation) bool {
	return r.Operation == op
}

// CoversAccounts reports whether the record's entries were posted against
// accountIDs, in order. A key reused with different accounts does not match.
func (r *IdempotencyRecord) CoversAccounts(accountIDs ...uuid.UUID) bool {
	if len(r.Entries) != len(accountIDs) {
		return false
	}
	for i, e := range r.Entries {
		if e.AccountID != accountIDs[i] {
			return false
		}
	}
	return true
}

// BuildIdempotencyKey constructs the flat cache key format "account_id:key".
func BuildIdempotencyKey(accountID uuid.UUID, key string) string {
	return accountID.String() + ":" + key
}

// CloneEntries copies entries so stored records cannot be mutated through a returned slice.
func CloneEntries(entries []Transaction) []Transaction {
	if entries == nil {
		return nil
	}
	out := make([]Transaction, len(entries))
	copy(out, entries)
	return out
}
