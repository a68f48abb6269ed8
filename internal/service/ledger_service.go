package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mini-ledger/internal/core/domain"
	"mini-ledger/internal/core/ports"
	"mini-ledger/pkg/apperror"
	"mini-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Operation labels used in logs and metrics.
const (
	opCreateAccount = "create_account"
	opDeposit       = "deposit"
	opWithdraw      = "withdraw"
	opTransfer      = "transfer"
)

// LedgerServiceImpl implements ports.LedgerService.
// It holds no ledger state: every call reads fresh state from Storage.
type LedgerServiceImpl struct {
	storage  ports.Storage
	cache    ports.IdempotencyCache // nil disables the replay cache
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	storage ports.Storage,
	cache ports.IdempotencyCache,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		storage:  storage,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      logger.Component(log, "ledger_service"),
	}
}

// CreateAccount registers a new zero-balance account.
func (s *LedgerServiceImpl) CreateAccount(ctx context.Context, req ports.CreateAccountRequest) (acc *domain.Account, err error) {
	defer func(start time.Time) { observe(opCreateAccount, start, false, err) }(time.Now())

	if req.ID == uuid.Nil {
		return nil, apperror.ErrInvalidOperation("account id is required")
	}
	currency := domain.NormalizeCurrency(req.Currency)
	if currency == "" {
		return nil, apperror.ErrInvalidOperation("currency is required")
	}
	if len(currency) > domain.MaxCurrencyLength {
		return nil, apperror.ErrInvalidOperation(
			fmt.Sprintf("currency must be at most %d characters", domain.MaxCurrencyLength))
	}

	acc, err = s.storage.CreateAccount(ctx, req.ID, currency)
	if err != nil {
		return nil, storageError(err)
	}

	s.log.Info().
		Str("account_id", acc.ID.String()).
		Str("currency", acc.Currency).
		Msg("account created")

	return acc, nil
}

// GetAccount returns the current account state.
func (s *LedgerServiceImpl) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acc, err := s.storage.GetAccount(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	return acc, nil
}

// ListTransactions returns the account's entries in posting order.
func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	entries, err := s.storage.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, storageError(err)
	}
	return entries, nil
}

// Deposit credits the account once per idempotency key.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (entries []domain.Transaction, err error) {
	var replayed bool
	defer func(start time.Time) { observe(opDeposit, start, replayed, err) }(time.Now())

	entries, replayed, err = s.applySingle(ctx, ports.ApplyRequest{
		AccountID:      req.AccountID,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
		Operation:      domain.OperationDeposit,
	})
	return entries, err
}

// Withdraw debits the account once per idempotency key. The funds check is
// evaluated by Storage in the same locked region as the posting.
func (s *LedgerServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawRequest) (entries []domain.Transaction, err error) {
	var replayed bool
	defer func(start time.Time) { observe(opWithdraw, start, replayed, err) }(time.Now())

	entries, replayed, err = s.applySingle(ctx, ports.ApplyRequest{
		AccountID:       req.AccountID,
		Amount:          req.Amount,
		IdempotencyKey:  req.IdempotencyKey,
		Operation:       domain.OperationWithdrawal,
		RejectOverdraft: true,
	})
	return entries, err
}

// Transfer moves funds between two accounts of the same currency.
// The returned entries are the debit on the source followed by the credit on
// the destination.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (entries []domain.Transaction, err error) {
	var replayed bool
	defer func(start time.Time) { observe(opTransfer, start, replayed, err) }(time.Now())

	if req.FromAccountID == req.ToAccountID {
		return nil, apperror.ErrInvalidOperation("cannot transfer to the same account")
	}
	if err := validatePosting(req.Amount, req.IdempotencyKey); err != nil {
		return nil, err
	}

	// A transfer is recorded under both legs; either one identifies a retry.
	entries, replayed, err = s.lookup(ctx, domain.OperationTransfer, req.IdempotencyKey, req.FromAccountID, req.ToAccountID)
	if err != nil || replayed {
		return entries, err
	}

	posting, err := s.storage.ApplyTransfer(ctx, ports.TransferApplyRequest{
		FromID:         req.FromAccountID,
		ToID:           req.ToAccountID,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, storageError(err)
	}
	if posting.Replayed {
		replayed = true
		entries, err = s.replayPosting(domain.OperationTransfer, req.IdempotencyKey, posting, req.FromAccountID, req.ToAccountID)
		return entries, err
	}

	s.remember(ctx, domain.OperationTransfer, req.IdempotencyKey, posting.Entries, req.FromAccountID, req.ToAccountID)

	s.log.Info().
		Str("from_account_id", req.FromAccountID.String()).
		Str("to_account_id", req.ToAccountID.String()).
		Str("amount", req.Amount.String()).
		Str("idempotency_key", req.IdempotencyKey).
		Int64("from_version", posting.Accounts[0].Version).
		Int64("to_version", posting.Accounts[1].Version).
		Msg("transfer applied")

	return posting.Entries, nil
}

// applySingle runs the shared deposit/withdraw flow. req.Amount is the
// positive amount requested by the caller.
func (s *LedgerServiceImpl) applySingle(ctx context.Context, req ports.ApplyRequest) ([]domain.Transaction, bool, error) {
	if err := validatePosting(req.Amount, req.IdempotencyKey); err != nil {
		return nil, false, err
	}

	entries, replayed, err := s.lookup(ctx, req.Operation, req.IdempotencyKey, req.AccountID)
	if err != nil || replayed {
		return entries, replayed, err
	}

	if req.Operation == domain.OperationWithdrawal {
		req.Amount = req.Amount.Neg()
	}
	posting, err := s.storage.Apply(ctx, req)
	if err != nil {
		return nil, false, storageError(err)
	}
	if posting.Replayed {
		entries, err := s.replayPosting(req.Operation, req.IdempotencyKey, posting, req.AccountID)
		return entries, true, err
	}

	s.remember(ctx, req.Operation, req.IdempotencyKey, posting.Entries, req.AccountID)

	acc := posting.Accounts[0]
	s.log.Info().
		Str("operation", string(req.Operation)).
		Str("account_id", acc.ID.String()).
		Str("amount", req.Amount.String()).
		Str("idempotency_key", req.IdempotencyKey).
		Int64("version", acc.Version).
		Msg("posting applied")

	return posting.Entries, false, nil
}

// lookup searches the replay cache and then Storage for a prior result of key
// under any of the given accounts. The boolean is true when one was found.
func (s *LedgerServiceImpl) lookup(ctx context.Context, op domain.Operation, key string, accountIDs ...uuid.UUID) ([]domain.Transaction, bool, error) {
	for _, id := range accountIDs {
		if rec := s.cachedRecord(ctx, id, key); rec != nil {
			ledgerReplaysTotal.WithLabelValues(string(op), replayFromCache).Inc()
			entries, err := s.replayRecord(op, rec, accountIDs...)
			return entries, true, err
		}
	}

	for _, id := range accountIDs {
		rec, err := s.storage.FindIdempotent(ctx, id, key)
		if err != nil {
			return nil, false, storageError(err)
		}
		if rec != nil {
			ledgerReplaysTotal.WithLabelValues(string(op), replayFromStorage).Inc()
			entries, err := s.replayRecord(op, rec, accountIDs...)
			return entries, true, err
		}
	}
	return nil, false, nil
}

func (s *LedgerServiceImpl) replayPosting(op domain.Operation, key string, p *ports.Posting, accountIDs ...uuid.UUID) ([]domain.Transaction, error) {
	ledgerReplaysTotal.WithLabelValues(string(op), replayUnderLock).Inc()
	return s.replayRecord(op, &domain.IdempotencyRecord{
		Key:       key,
		Operation: p.Operation,
		Entries:   p.Entries,
	}, accountIDs...)
}

func (s *LedgerServiceImpl) replayRecord(op domain.Operation, rec *domain.IdempotencyRecord, accountIDs ...uuid.UUID) ([]domain.Transaction, error) {
	if !rec.Matches(op) {
		return nil, apperror.ErrInvalidOperation(
			fmt.Sprintf("idempotency key %q was already used for a %s", rec.Key, rec.Operation))
	}
	if !rec.CoversAccounts(accountIDs...) {
		return nil, apperror.ErrInvalidOperation(
			fmt.Sprintf("idempotency key %q was already used with different accounts", rec.Key))
	}

	s.log.Debug().
		Str("operation", string(op)).
		Str("idempotency_key", rec.Key).
		Int("entries", len(rec.Entries)).
		Msg("idempotent replay")

	return domain.CloneEntries(rec.Entries), nil
}

// cachedRecord reads the replay cache. Any failure degrades to a miss.
func (s *LedgerServiceImpl) cachedRecord(ctx context.Context, accountID uuid.UUID, key string) *domain.IdempotencyRecord {
	if s.cache == nil {
		return nil
	}
	cacheKey := domain.BuildIdempotencyKey(accountID, key)

	data, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("idempotency cache read failed, falling through to storage")
		return nil
	}
	if data == nil {
		return nil
	}

	rec := &domain.IdempotencyRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("discarding undecodable idempotency cache entry")
		return nil
	}
	return rec
}

// remember writes the result to the replay cache (best-effort).
func (s *LedgerServiceImpl) remember(ctx context.Context, op domain.Operation, key string, entries []domain.Transaction, accountIDs ...uuid.UUID) {
	if s.cache == nil {
		return
	}
	for _, id := range accountIDs {
		rec := domain.IdempotencyRecord{
			AccountID: id,
			Key:       key,
			Operation: op,
			Entries:   entries,
			CreatedAt: entries[0].CreatedAt,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to encode idempotency record")
			return
		}
		cacheKey := domain.BuildIdempotencyKey(id, key)
		if err := s.cache.Set(ctx, cacheKey, data, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache idempotency record")
		}
	}
}

func validatePosting(amount decimal.Decimal, key string) error {
	if !domain.ValidAmount(amount) {
		return apperror.ErrInvalidAmount()
	}
	if strings.TrimSpace(key) == "" {
		return apperror.ErrInvalidOperation("idempotency key is required")
	}
	return nil
}

// storageError passes ledger errors through and classifies anything else as a
// backend failure.
func storageError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.ErrStorageUnavailable(err)
}
