package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dfranco/finref-backend/internal/domain"
)

// Predicate is one node of a parsed filter expression. Trees are built once
// per query string, are immutable, and are discarded after evaluation.
type Predicate interface {
	// Match reports whether the record satisfies the predicate.
	// Matching is side-effect-free, so operands may be reordered safely.
	Match(rec domain.Record) bool

	// String renders the node in a canonical prefix form. Two predicates
	// are structurally equal exactly when their renderings are equal.
	String() string

	collectFields(fields map[string]struct{})
}

// matchAll is the always-true predicate produced for an empty expression
type matchAll struct{}

func (matchAll) Match(domain.Record) bool          { return true }
func (matchAll) String() string                    { return "(all)" }
func (matchAll) collectFields(map[string]struct{}) {}

// fieldMatch matches one field against a wildcard pattern
type fieldMatch struct {
	field   string
	pattern string
	re      *regexp.Regexp
}

func newFieldMatch(field, pattern string) *fieldMatch {
	return &fieldMatch{
		field:   field,
		pattern: pattern,
		re:      compileWildcard(pattern),
	}
}

func (f *fieldMatch) Match(rec domain.Record) bool {
	value, set := domain.CanonicalString(rec[f.field])
	if !set {
		// The bare "*" pattern is the only one tolerant of missing data
		return f.pattern == "*"
	}
	return f.re.MatchString(value)
}

func (f *fieldMatch) String() string {
	return fmt.Sprintf("(match %s %s)", f.field, f.pattern)
}

func (f *fieldMatch) collectFields(fields map[string]struct{}) {
	fields[f.field] = struct{}{}
}

// compileWildcard translates a wildcard pattern into an anchored,
// case-insensitive regular expression: "*" means zero or more characters,
// "?" means exactly one.
func compileWildcard(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

type andNode struct {
	left, right Predicate
}

func (n *andNode) Match(rec domain.Record) bool {
	return n.left.Match(rec) && n.right.Match(rec)
}

func (n *andNode) String() string {
	return fmt.Sprintf("(and %s %s)", n.left, n.right)
}

func (n *andNode) collectFields(fields map[string]struct{}) {
	n.left.collectFields(fields)
	n.right.collectFields(fields)
}

type orNode struct {
	left, right Predicate
}

func (n *orNode) Match(rec domain.Record) bool {
	return n.left.Match(rec) || n.right.Match(rec)
}

func (n *orNode) String() string {
	return fmt.Sprintf("(or %s %s)", n.left, n.right)
}

func (n *orNode) collectFields(fields map[string]struct{}) {
	n.left.collectFields(fields)
	n.right.collectFields(fields)
}

type notNode struct {
	child Predicate
}

func (n *notNode) Match(rec domain.Record) bool {
	return !n.child.Match(rec)
}

func (n *notNode) String() string {
	return fmt.Sprintf("(not %s)", n.child)
}

func (n *notNode) collectFields(fields map[string]struct{}) {
	n.child.collectFields(fields)
}
