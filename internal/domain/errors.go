package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrOutOfStock           = errors.New("out of stock")
	ErrStockExceeded        = errors.New("stock exceeded")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInsufficientPayment  = errors.New("insufficient payment")
	ErrMissingClient        = errors.New("client name required for deferred payment")
	ErrEmptyCart            = errors.New("cannot close a sale without products")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrActionExpired        = errors.New("pending action expired")
	ErrPersistence          = errors.New("persistence failure")
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every rejected field of a draft.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Reason)
	}
	return "invalid product: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type OutOfStockError struct {
	ProductName string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("%q is out of stock", e.ProductName)
}

func (e *OutOfStockError) Unwrap() error { return ErrOutOfStock }

type StockExceededError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("only %d of %q in stock, %d requested", e.Available, e.ProductName, e.Requested)
}

func (e *StockExceededError) Unwrap() error { return ErrStockExceeded }

type InsufficientStockError struct {
	ProductName string
	Available   int
	Required    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %q: stock %d, required %d", e.ProductName, e.Available, e.Required)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type InsufficientPaymentError struct {
	Total    int64
	Received int64
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("insufficient cash: total %d, received %d", e.Total, e.Received)
}

func (e *InsufficientPaymentError) Unwrap() error { return ErrInsufficientPayment }

// PersistenceError reports a failed write after the in-memory state already
// changed. Results returned together with it are valid.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// IsWarning reports whether err only carries persistence warnings, meaning
// the operation itself succeeded.
func IsWarning(err error) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *PersistenceError:
		return true
	case interface{ Unwrap() []error }:
		inner := e.Unwrap()
		for _, item := range inner {
			if !IsWarning(item) {
				return false
			}
		}
		return len(inner) > 0
	}
	var pe *PersistenceError
	return errors.As(err, &pe)
}
