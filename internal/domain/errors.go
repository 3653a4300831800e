package domain

import (
	"errors"
	"fmt"
)

// ErrTimeout marks a collaborator call that did not return within the
// caller-supplied deadline. The core never retries; retry policy belongs to
// the caller.
var ErrTimeout = errors.New("collaborator call timed out")

// ErrUnknownKind marks a request for an entity kind the store does not know
var ErrUnknownKind = errors.New("unknown entity kind")

// SyntaxError reports a malformed query expression together with the
// offending token
type SyntaxError struct {
	Expression string
	Token      string
	Reason     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in query %q at %q: %s", e.Expression, e.Token, e.Reason)
}

// UnknownFieldError reports a filter on a field that is not part of the
// entity kind's known field set
type UnknownFieldError struct {
	Kind  EntityKind
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q for entity kind %q", e.Field, e.Kind)
}

// NotFoundError reports a point lookup that matched nothing
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// UnsupportedCurrencyError reports a reference currency that is not a
// recognised ISO 4217 code
type UnsupportedCurrencyError struct {
	Currency string
}

func (e *UnsupportedCurrencyError) Error() string {
	return fmt.Sprintf("unsupported currency %q", e.Currency)
}

// MissingRateError reports a currency pair the FX provider has no rate
// path for
type MissingRateError struct {
	From string
	To   string
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("no exchange rate from %q to %q", e.From, e.To)
}

// IntegrityError reports a dangling instrument reference discovered during
// aggregation. It indicates store corruption: the position must not be
// silently skipped and the error is never retried automatically.
type IntegrityError struct {
	PortfolioID  string
	InstrumentID string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("portfolio %q references missing instrument %q", e.PortfolioID, e.InstrumentID)
}
