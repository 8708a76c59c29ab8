package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrInvalidSymbol        = errors.New("invalid symbol")
	ErrQuoteUnavailable     = errors.New("quote unavailable")
	ErrNetwork              = errors.New("network error")
	ErrInsufficientHistory  = errors.New("insufficient history")
)

// kindError attaches an error kind to a provider failure while keeping the cause reachable.
type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string {
	if e.cause == nil {
		return e.msg + ": " + e.kind.Error()
	}
	return e.msg + ": " + e.kind.Error() + ": " + e.cause.Error()
}

func (e *kindError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// NetworkError marks cause as a data-source transport failure.
func NetworkError(cause error, format string, args ...any) error {
	return &kindError{kind: ErrNetwork, msg: fmt.Sprintf(format, args...), cause: cause}
}

// QuoteUnavailableError marks cause as missing market data for a symbol.
func QuoteUnavailableError(cause error, format string, args ...any) error {
	return &kindError{kind: ErrQuoteUnavailable, msg: fmt.Sprintf(format, args...), cause: cause}
}
