// Package postgres implements ports.Storage on PostgreSQL.
//
// Every mutation runs in one database transaction. The touched account rows
// are locked with SELECT ... FOR UPDATE (in ascending id order for transfers,
// so two opposing transfers cannot deadlock), the idempotency table is
// re-checked under those locks, and the version-guarded UPDATE, entry inserts
// and idempotency inserts commit together.
package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"mini-ledger/internal/core/domain"
	"mini-ledger/internal/core/ports"
	"mini-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

const pgUniqueViolation = "23505"

// Store implements ports.Storage.
type Store struct {
	pool  Pool
	log   zerolog.Logger
	now   func() time.Time
	newID func() uuid.UUID
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the transaction id source.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore creates a Store over pool.
func NewStore(pool Pool, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		pool: pool,
		log:  log,
		// Postgres keeps microseconds; truncate so returned values match stored ones.
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID: uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAccount inserts a zero-balance account.
func (s *Store) CreateAccount(ctx context.Context, id uuid.UUID, currency string) (*domain.Account, error) {
	acc := domain.NewAccount(id, currency, s.now())

	if err := insertAccount(ctx, s.pool, acc); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, apperror.ErrAlreadyExists("account")
		}
		return nil, apperror.ErrStorageUnavailable(err)
	}
	return acc, nil
}

// GetAccount reads the committed account state.
func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acc, err := selectAccount(ctx, s.pool, id)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(err)
	}
	if acc == nil {
		return nil, apperror.ErrNotFound("account")
	}
	return acc, nil
}

// FindIdempotent returns the stored record for (accountID, key), or nil.
func (s *Store) FindIdempotent(ctx context.Context, accountID uuid.UUID, key string) (*domain.IdempotencyRecord, error) {
	rec, err := selectIdempotency(ctx, s.pool, accountID, key)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(err)
	}
	return rec, nil
}

// Apply posts a single entry against one account.
func (s *Store) Apply(ctx context.Context, req ports.ApplyRequest) (*ports.Posting, error) {
	if !domain.ValidAmount(req.Amount.Abs()) {
		return nil, apperror.ErrInvalidAmount()
	}
	// A started posting runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	acc, err := lockAccount(ctx, tx, req.AccountID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("lock account: %w", err))
	}
	if acc == nil {
		return nil, apperror.ErrNotFound("account")
	}

	rec, err := selectIdempotency(ctx, tx, req.AccountID, req.IdempotencyKey)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(err)
	}
	if rec != nil {
		return replay(rec), nil
	}

	next, entry := acc.Post(req.Amount, req.IdempotencyKey, s.newID(), s.now())
	if req.RejectOverdraft && next.Balance.IsNegative() {
		return nil, apperror.ErrInsufficientFunds()
	}

	p := &ports.Posting{
		Accounts:  []domain.Account{next},
		Entries:   []domain.Transaction{entry},
		Operation: req.Operation,
	}
	if err := s.persist(ctx, tx, []int64{acc.Version}, req.IdempotencyKey, p); err != nil {
		return nil, apperror.ErrStorageUnavailable(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}
	return p, nil
}

// ApplyTransfer posts the debit and credit legs of a transfer in one transaction.
func (s *Store) ApplyTransfer(ctx context.Context, req ports.TransferApplyRequest) (*ports.Posting, error) {
	if req.FromID == req.ToID {
		return nil, apperror.ErrInvalidOperation("cannot transfer to the same account")
	}
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	ctx = context.WithoutCancel(ctx)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	from, to, err := lockPair(ctx, tx, req.FromID, req.ToID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(err)
	}
	if from == nil {
		return nil, apperror.ErrNotFound("source account")
	}
	if to == nil {
		return nil, apperror.ErrNotFound("destination account")
	}

	for _, id := range []uuid.UUID{req.FromID, req.ToID} {
		rec, err := selectIdempotency(ctx, tx, id, req.IdempotencyKey)
		if err != nil {
			return nil, apperror.ErrStorageUnavailable(err)
		}
		if rec != nil {
			return replay(rec), nil
		}
	}

	if from.Currency != to.Currency {
		return nil, apperror.ErrCurrencyMismatch(from.Currency, to.Currency)
	}
	if !from.CanCover(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	now := s.now()
	nextFrom, debit := from.Post(req.Amount.Neg(), req.IdempotencyKey, s.newID(), now)
	nextTo, credit := to.Post(req.Amount, req.IdempotencyKey, s.newID(), now)

	p := &ports.Posting{
		Accounts:  []domain.Account{nextFrom, nextTo},
		Entries:   []domain.Transaction{debit, credit},
		Operation: domain.OperationTransfer,
	}
	if err := s.persist(ctx, tx, []int64{from.Version, to.Version}, req.IdempotencyKey, p); err != nil {
		return nil, apperror.ErrStorageUnavailable(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Debug().
		Str("from_account_id", req.FromID.String()).
		Str("to_account_id", req.ToID.String()).
		Msg("transfer committed")

	return p, nil
}

// ListTransactions returns the account's entries in posting order.
func (s *Store) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	acc, err := selectAccount(ctx, s.pool, accountID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(err)
	}
	if acc == nil {
		return nil, apperror.ErrNotFound("account")
	}

	entries, err := selectEntries(ctx, s.pool, accountID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(err)
	}
	if entries == nil {
		entries = []domain.Transaction{}
	}
	return entries, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return err
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "postgresql"
}

// persist writes the posting's account states, entries and one idempotency
// record per account. prevVersions[i] is the locked version of p.Accounts[i].
func (s *Store) persist(ctx context.Context, tx pgx.Tx, prevVersions []int64, key string, p *ports.Posting) error {
	for i, acc := range p.Accounts {
		if err := updateAccount(ctx, tx, prevVersions[i], acc); err != nil {
			return err
		}
	}
	for _, e := range p.Entries {
		if err := insertEntry(ctx, tx, e); err != nil {
			return err
		}
	}
	for _, acc := range p.Accounts {
		rec := &domain.IdempotencyRecord{
			AccountID: acc.ID,
			Key:       key,
			Operation: p.Operation,
			Entries:   p.Entries,
			CreatedAt: p.Entries[0].CreatedAt,
		}
		if err := insertIdempotency(ctx, tx, rec); err != nil {
			return err
		}
	}
	return nil
}

// lockPair locks both accounts, lower id first. Either result is nil when
// that account does not exist.
func lockPair(ctx context.Context, tx pgx.Tx, fromID, toID uuid.UUID) (*domain.Account, *domain.Account, error) {
	first, second := fromID, toID
	swapped := bytes.Compare(fromID[:], toID[:]) > 0
	if swapped {
		first, second = toID, fromID
	}

	a, err := lockAccount(ctx, tx, first)
	if err != nil {
		return nil, nil, fmt.Errorf("lock account %s: %w", first, err)
	}
	b, err := lockAccount(ctx, tx, second)
	if err != nil {
		return nil, nil, fmt.Errorf("lock account %s: %w", second, err)
	}

	if swapped {
		return b, a, nil
	}
	return a, b, nil
}

func replay(rec *domain.IdempotencyRecord) *ports.Posting {
	return &ports.Posting{
		Entries:   rec.Entries,
		Replayed:  true,
		Operation: rec.Operation,
	}
}
