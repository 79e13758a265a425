// Package market fetches, caches and assembles the raw data an analysis reads
package market

import (
	"context"
	"errors"
	"fmt"
)

// Fetch failure kinds. Provider errors wrap exactly one of these.
var (
	ErrSymbolNotFound  = errors.New("symbol not found")
	ErrPartialData     = errors.New("partial data")
	ErrProviderTimeout = errors.New("provider timeout")
	ErrProviderError   = errors.New("provider error")
)

// ErrNewsUnsupported is returned when no configured provider serves headlines
var ErrNewsUnsupported = errors.New("news not available from configured providers")

// FetchError records which provider call failed for which symbol
type FetchError struct {
	Provider string
	Symbol   string
	Op       string
	Kind     error
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s %s: %v", e.Provider, e.Op, e.Symbol, e.Kind)
	}
	return fmt.Sprintf("%s %s %s: %v: %v", e.Provider, e.Op, e.Symbol, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewFetchError wraps err, classifying it when kind is nil: context
// deadlines become ErrProviderTimeout, anything else ErrProviderError.
func NewFetchError(provider, symbol, op string, kind, err error) *FetchError {
	if kind == nil {
		kind = Classify(err)
	}
	return &FetchError{Provider: provider, Symbol: symbol, Op: op, Kind: kind, Err: err}
}

// Classify returns the failure kind of err
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSymbolNotFound):
		return ErrSymbolNotFound
	case errors.Is(err, ErrProviderTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrProviderTimeout
	case errors.Is(err, ErrPartialData):
		return ErrPartialData
	default:
		return ErrProviderError
	}
}
