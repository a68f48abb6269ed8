package handler

import (
	"mini-ledger/internal/adapter/http/dto"
	"mini-ledger/internal/core/ports"
	"mini-ledger/pkg/apperror"
	"mini-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerHandler exposes the ledger use cases over HTTP.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// CreateAccount handles POST /api/v1/accounts.
func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	acc, err := h.ledgerSvc.CreateAccount(c.Request.Context(), ports.CreateAccountRequest{
		ID:       uuid.MustParse(req.ID),
		Currency: req.Currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewAccountResponse(acc))
}

// GetAccount handles GET /api/v1/accounts/:id.
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	id, ok := accountIDParam(c)
	if !ok {
		return
	}

	acc, err := h.ledgerSvc.GetAccount(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewAccountResponse(acc))
}

// ListTransactions handles GET /api/v1/accounts/:id/transactions.
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	id, ok := accountIDParam(c)
	if !ok {
		return
	}

	entries, err := h.ledgerSvc.ListTransactions(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TransactionListResponse{Items: dto.NewTransactionResponses(entries)})
}

// Deposit handles POST /api/v1/accounts/:id/deposits.
func (h *LedgerHandler) Deposit(c *gin.Context) {
	id, ok := accountIDParam(c)
	if !ok {
		return
	}
	var req dto.PostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entries, err := h.ledgerSvc.Deposit(c.Request.Context(), ports.DepositRequest{
		AccountID:      id,
		Amount:         decimal.RequireFromString(req.Amount),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.PostingResponse{Transactions: dto.NewTransactionResponses(entries)})
}

// Withdraw handles POST /api/v1/accounts/:id/withdrawals.
func (h *LedgerHandler) Withdraw(c *gin.Context) {
	id, ok := accountIDParam(c)
	if !ok {
		return
	}
	var req dto.PostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entries, err := h.ledgerSvc.Withdraw(c.Request.Context(), ports.WithdrawRequest{
		AccountID:      id,
		Amount:         decimal.RequireFromString(req.Amount),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.PostingResponse{Transactions: dto.NewTransactionResponses(entries)})
}

// Transfer handles POST /api/v1/transfers.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entries, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		FromAccountID:  uuid.MustParse(req.FromAccountID),
		ToAccountID:    uuid.MustParse(req.ToAccountID),
		Amount:         decimal.RequireFromString(req.Amount),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.PostingResponse{Transactions: dto.NewTransactionResponses(entries)})
}

// accountIDParam parses the :id path parameter, writing a 400 on failure.
func accountIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid account id"))
		return uuid.Nil, false
	}
	return id, true
}
