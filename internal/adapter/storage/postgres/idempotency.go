package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mini-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func insertIdempotency(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	entries, err := json.Marshal(rec.Entries)
	if err != nil {
		return fmt.Errorf("encode idempotency entries: %w", err)
	}

	query := `INSERT INTO ledger_idempotency (account_id, idempotency_key, operation, entries, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = tx.Exec(ctx, query, rec.AccountID, rec.Key, string(rec.Operation), entries, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert idempotency record: %w", err)
	}
	return nil
}

// selectIdempotency returns nil, nil when no record exists.
func selectIdempotency(ctx context.Context, q querier, accountID uuid.UUID, key string) (*domain.IdempotencyRecord, error) {
	query := `SELECT operation, entries, created_at FROM ledger_idempotency
		WHERE account_id = $1 AND idempotency_key = $2`

	rec := &domain.IdempotencyRecord{AccountID: accountID, Key: key}
	var op string
	var entries []byte
	err := q.QueryRow(ctx, query, accountID, key).Scan(&op, &entries, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	rec.Operation = domain.Operation(op)
	if err := json.Unmarshal(entries, &rec.Entries); err != nil {
		return nil, fmt.Errorf("decode idempotency entries: %w", err)
	}
	return rec, nil
}
