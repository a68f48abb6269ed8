package postgres

import (
	"context"
	"fmt"

	"mini-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func insertEntry(ctx context.Context, tx pgx.Tx, e domain.Transaction) error {
	query := `INSERT INTO ledger_transactions (id, account_id, amount, currency, account_version, idempotency_key, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.AccountID, e.Amount.String(), e.Currency,
		e.AccountVersion, e.IdempotencyKey, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func selectEntries(ctx context.Context, q querier, accountID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT id, account_id, amount::text, currency, account_version, idempotency_key, created_at
		FROM ledger_transactions WHERE account_id = $1 ORDER BY account_version ASC`

	rows, err := q.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var e domain.Transaction
		var amount string
		if err := rows.Scan(&e.ID, &e.AccountID, &amount, &e.Currency, &e.AccountVersion, &e.IdempotencyKey, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
