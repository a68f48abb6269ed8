package dto

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	safeStringRe   = regexp.MustCompile(`^[a-zA-Z0-9_\-\.:]+$`)
	currencyCodeRe = regexp.MustCompile(`^[A-Za-z]{3}$`)
	// Plain decimal notation only: no exponent, no leading '+'.
	decimalRe = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterValidations(v)
	}
}

// RegisterValidations installs the ledger's custom tags on v.
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation("safe_id", validateSafeID)
	_ = v.RegisterValidation("currency_code", validateCurrencyCode)
	_ = v.RegisterValidation("decimal_amount", validateDecimalAmount)
}

// validateSafeID allows alphanumerics plus underscore, dash, dot and colon.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateCurrencyCode accepts three-letter codes in either case.
func validateCurrencyCode(fl validator.FieldLevel) bool {
	return currencyCodeRe.MatchString(fl.Field().String())
}

// validateDecimalAmount checks the field is a well-formed decimal string.
// Sign is not checked here: non-positive amounts are rejected by the ledger
// itself so they surface as InvalidAmount.
func validateDecimalAmount(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !decimalRe.MatchString(s) {
		return false
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}
