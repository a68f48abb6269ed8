package postgres

import (
	"context"
	"errors"
	"fmt"

	"mini-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, currency, balance::text, version, created_at, updated_at`

func insertAccount(ctx context.Context, q querier, a *domain.Account) error {
	query := `INSERT INTO ledger_accounts (id, currency, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)`

	_, err := q.Exec(ctx, query, a.ID, a.Currency, a.Balance.String(), a.Version, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// selectAccount returns nil, nil when the account does not exist.
func selectAccount(ctx context.Context, q querier, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM ledger_accounts WHERE id = $1`
	return scanAccount(q.QueryRow(ctx, query, id))
}

// lockAccount reads the account with a row lock held until the transaction ends.
// This MUST be called within a transaction.
func lockAccount(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM ledger_accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(tx.QueryRow(ctx, query, id))
}

// updateAccount writes next only if the stored version is still prevVersion.
func updateAccount(ctx context.Context, tx pgx.Tx, prevVersion int64, next domain.Account) error {
	query := `UPDATE ledger_accounts SET balance = $1::numeric, version = $2, updated_at = $3
		WHERE id = $4 AND version = $5`

	tag, err := tx.Exec(ctx, query, next.Balance.String(), next.Version, next.UpdatedAt, next.ID, prevVersion)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s changed concurrently (expected version %d)", next.ID, prevVersion)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	var balance string
	err := row.Scan(&a.ID, &a.Currency, &balance, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	return a, nil
}
