package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. Each ledger failure kind maps to exactly one code.
const (
	CodeNotFound           = "LDG_001"
	CodeAlreadyExists      = "LDG_002"
	CodeInvalidAmount      = "LDG_003"
	CodeInsufficientFunds  = "LDG_004"
	CodeCurrencyMismatch   = "LDG_005"
	CodeInvalidOperation   = "LDG_006"
	CodeInternal           = "SYS_000"
	CodeStorageUnavailable = "SYS_001"
	CodeValidation         = "REQ_001"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// ---- Ledger (LDG) ----

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrAlreadyExists(entity string) *AppError {
	return New(CodeAlreadyExists, fmt.Sprintf("%s already exists", entity), http.StatusConflict)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Amount must be strictly positive", http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance in account", http.StatusPaymentRequired)
}

func ErrCurrencyMismatch(from, to string) *AppError {
	return New(CodeCurrencyMismatch, fmt.Sprintf("Currency mismatch: %s vs %s", from, to), http.StatusUnprocessableEntity)
}

func ErrInvalidOperation(message string) *AppError {
	return New(CodeInvalidOperation, message, http.StatusBadRequest)
}

// ---- System & Infrastructure (SYS) ----

// ErrStorageUnavailable wraps a backend failure.
func ErrStorageUnavailable(err error) *AppError {
	return Wrap(CodeStorageUnavailable, "Storage unavailable", http.StatusServiceUnavailable, err)
}

// Validation returns a request validation error raised by the transport adapter.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}
