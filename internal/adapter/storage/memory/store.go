// Package memory implements ports.Storage in process memory.
//
// A single mutex guards every account, the transaction log and the idempotency
// index, and is held for the whole duration of each Storage call. All ledger
// activity is therefore serialized, which makes multi-account postings
// trivially atomic.
package memory

import (
	"context"
	"sync"
	"time"

	"mini-ledger/internal/core/domain"
	"mini-ledger/internal/core/ports"
	"mini-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// Store implements ports.Storage.
type Store struct {
	mu          sync.Mutex
	accounts    map[uuid.UUID]*domain.Account
	log         []domain.Transaction        // append-only
	byAccount   map[uuid.UUID][]int         // account id -> indexes into log
	idempotency map[domain.IdempotencyScope]*domain.IdempotencyRecord

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

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		accounts:    make(map[uuid.UUID]*domain.Account),
		byAccount:   make(map[uuid.UUID][]int),
		idempotency: make(map[domain.IdempotencyScope]*domain.IdempotencyRecord),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAccount registers a zero-balance account.
func (s *Store) CreateAccount(_ context.Context, id uuid.UUID, currency string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; ok {
		return nil, apperror.ErrAlreadyExists("account")
	}
	acc := domain.NewAccount(id, currency, s.now())
	s.accounts[id] = acc

	out := *acc
	return &out, nil
}

// GetAccount returns a copy of the account state.
func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, apperror.ErrNotFound("account")
	}
	out := *acc
	return &out, nil
}

// FindIdempotent returns the stored record for (accountID, key), or nil.
func (s *Store) FindIdempotent(_ context.Context, accountID uuid.UUID, key string) (*domain.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.idempotency[domain.IdempotencyScope{AccountID: accountID, Key: key}]
	if !ok {
		return nil, nil
	}
	return cloneRecord(rec), nil
}

// Apply posts a single entry against one account.
func (s *Store) Apply(_ context.Context, req ports.ApplyRequest) (*ports.Posting, error) {
	if !domain.ValidAmount(req.Amount.Abs()) {
		return nil, apperror.ErrInvalidAmount()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[req.AccountID]
	if !ok {
		return nil, apperror.ErrNotFound("account")
	}
	if rec, ok := s.idempotency[domain.IdempotencyScope{AccountID: req.AccountID, Key: req.IdempotencyKey}]; ok {
		return replay(rec), nil
	}

	next, entry := acc.Post(req.Amount, req.IdempotencyKey, s.newID(), s.now())
	if req.RejectOverdraft && next.Balance.IsNegative() {
		return nil, apperror.ErrInsufficientFunds()
	}

	accounts := []domain.Account{next}
	entries := []domain.Transaction{entry}
	s.commit(req.Operation, req.IdempotencyKey, accounts, entries)

	return &ports.Posting{
		Accounts:  accounts,
		Entries:   domain.CloneEntries(entries),
		Operation: req.Operation,
	}, nil
}

// ApplyTransfer posts the debit and credit legs of a transfer as one unit.
func (s *Store) ApplyTransfer(_ context.Context, req ports.TransferApplyRequest) (*ports.Posting, error) {
	if req.FromID == req.ToID {
		return nil, apperror.ErrInvalidOperation("cannot transfer to the same account")
	}
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.accounts[req.FromID]
	if !ok {
		return nil, apperror.ErrNotFound("source account")
	}
	to, ok := s.accounts[req.ToID]
	if !ok {
		return nil, apperror.ErrNotFound("destination account")
	}
	for _, id := range []uuid.UUID{req.FromID, req.ToID} {
		if rec, ok := s.idempotency[domain.IdempotencyScope{AccountID: id, Key: req.IdempotencyKey}]; ok {
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

	accounts := []domain.Account{nextFrom, nextTo}
	entries := []domain.Transaction{debit, credit}
	s.commit(domain.OperationTransfer, req.IdempotencyKey, accounts, entries)

	return &ports.Posting{
		Accounts:  accounts,
		Entries:   domain.CloneEntries(entries),
		Operation: domain.OperationTransfer,
	}, nil
}

// ListTransactions returns the account's entries in posting order.
func (s *Store) ListTransactions(_ context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return nil, apperror.ErrNotFound("account")
	}
	idx := s.byAccount[accountID]
	out := make([]domain.Transaction, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.log[i])
	}
	return out, nil
}

// Ping implements ports.HealthChecker; process memory is always reachable.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "memory"
}

// commit writes accounts, entries and one idempotency record per touched
// account. Caller must hold s.mu.
func (s *Store) commit(op domain.Operation, key string, accounts []domain.Account, entries []domain.Transaction) {
	for i := range accounts {
		acc := accounts[i]
		s.accounts[acc.ID] = &acc
	}
	for _, e := range entries {
		s.log = append(s.log, e)
		s.byAccount[e.AccountID] = append(s.byAccount[e.AccountID], len(s.log)-1)
	}
	createdAt := entries[0].CreatedAt
	for _, acc := range accounts {
		rec := &domain.IdempotencyRecord{
			AccountID: acc.ID,
			Key:       key,
			Operation: op,
			Entries:   domain.CloneEntries(entries),
			CreatedAt: createdAt,
		}
		s.idempotency[rec.Scope()] = rec
	}
}

func replay(rec *domain.IdempotencyRecord) *ports.Posting {
	return &ports.Posting{
		Entries:   domain.CloneEntries(rec.Entries),
		Replayed:  true,
		Operation: rec.Operation,
	}
}

func cloneRecord(rec *domain.IdempotencyRecord) *domain.IdempotencyRecord {
	out := *rec
	out.Entries = domain.CloneEntries(rec.Entries)
	return &out
}
