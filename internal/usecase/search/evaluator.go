package search

import (
	"context"

	"github.com/dfranco/finref-backend/internal/domain"
)

// Evaluate applies a predicate tree to a stream of candidate records of the
// given entity kind. Every field referenced by the tree is validated against
// the kind's field set before any record is pulled; an unknown field fails
// with *domain.UnknownFieldError.
//
// The returned iterator is lazy: it pulls from src only as the caller
// advances, preserves the store's natural order, and stops promptly when the
// context is cancelled. Closing it closes src.
func Evaluate(ctx context.Context, pred Predicate, kind domain.EntityKind, src domain.RecordIterator) (domain.RecordIterator, error) {
	if err := validateFields(pred, kind); err != nil {
		return nil, err
	}
	return &matchIterator{ctx: ctx, pred: pred, src: src}, nil
}

// validateFields checks every field referenced by the tree against the
// kind's known field set
func validateFields(pred Predicate, kind domain.EntityKind) error {
	known := kind.FieldSet()
	if known == nil {
		return domain.ErrUnknownKind
	}
	referenced := make(map[string]struct{})
	pred.collectFields(referenced)
	for field := range referenced {
		if _, ok := known[field]; !ok {
			return &domain.UnknownFieldError{Kind: kind, Field: field}
		}
	}
	return nil
}

type matchIterator struct {
	ctx  context.Context
	pred Predicate
	src  domain.RecordIterator
	err  error
	done bool
}

func (m *matchIterator) Next() (domain.Record, bool) {
	if m.done {
		return nil, false
	}
	for {
		if err := m.ctx.Err(); err != nil {
			m.err = err
			m.done = true
			return nil, false
		}
		rec, ok := m.src.Next()
		if !ok {
			m.err = m.src.Err()
			m.done = true
			return nil, false
		}
		if m.pred.Match(rec) {
			return rec, true
		}
	}
}

func (m *matchIterator) Err() error {
	return m.err
}

func (m *matchIterator) Close() error {
	m.done = true
	return m.src.Close()
}
