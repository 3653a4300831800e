package search

import (
	"strings"

	"github.com/dfranco/finref-backend/internal/domain"
)

// Parse compiles a textual filter expression into a predicate tree.
//
// Grammar:
//
//	expression := clause (("AND" | "OR") clause)*
//	clause     := ["NOT"] field ":" pattern
//
// Connectives are case-insensitive and combine left to right; NOT binds
// tighter than AND/OR. Patterns may contain "*" (zero or more characters)
// and "?" (exactly one character), and may contain spaces. An empty or
// whitespace-only expression parses to the always-true predicate.
//
// The parser is entity-agnostic: field names are validated against the
// entity kind's field set at evaluation time, not here. Malformed input
// fails with *domain.SyntaxError identifying the offending token.
func Parse(expression string) (Predicate, error) {
	words := strings.Fields(expression)
	if len(words) == 0 {
		return matchAll{}, nil
	}

	// Group words into clause texts separated by connective tokens, so a
	// pattern like "name:JP Morgan" survives with its internal space.
	type item struct {
		connective string // "AND" or "OR", empty for a clause
		clause     string
	}
	var items []item
	var clauseWords []string
	flush := func() {
		if len(clauseWords) > 0 {
			items = append(items, item{clause: strings.Join(clauseWords, " ")})
			clauseWords = nil
		}
	}
	for _, w := range words {
		switch strings.ToUpper(w) {
		case "AND", "OR":
			flush()
			items = append(items, item{connective: strings.ToUpper(w)})
		default:
			clauseWords = append(clauseWords, w)
		}
	}
	flush()

	// Fold clauses left to right. Adjacent clause words merge during
	// grouping, so items strictly alternate clause, connective, clause, ...
	// when the expression is well-formed.
	var tree Predicate
	pending := ""
	for _, it := range items {
		if it.connective != "" {
			if tree == nil || pending != "" {
				return nil, &domain.SyntaxError{
					Expression: expression,
					Token:      it.connective,
					Reason:     "connective without a preceding clause",
				}
			}
			pending = it.connective
			continue
		}
		clause, err := parseClause(expression, it.clause)
		if err != nil {
			return nil, err
		}
		switch pending {
		case "":
			tree = clause
		case "AND":
			tree = &andNode{left: tree, right: clause}
		case "OR":
			tree = &orNode{left: tree, right: clause}
		}
		pending = ""
	}
	if pending != "" {
		return nil, &domain.SyntaxError{
			Expression: expression,
			Token:      pending,
			Reason:     "dangling connective",
		}
	}
	return tree, nil
}

// parseClause parses ["NOT"] field ":" pattern
func parseClause(expression, clause string) (Predicate, error) {
	negated := false
	text := clause
	first, rest, _ := strings.Cut(text, " ")
	if strings.EqualFold(first, "NOT") {
		negated = true
		text = rest
		if strings.TrimSpace(text) == "" {
			return nil, &domain.SyntaxError{
				Expression: expression,
				Token:      first,
				Reason:     "NOT without a clause",
			}
		}
		if next, _, _ := strings.Cut(text, " "); strings.EqualFold(next, "NOT") {
			return nil, &domain.SyntaxError{
				Expression: expression,
				Token:      next,
				Reason:     "repeated NOT",
			}
		}
	}

	field, pattern, found := strings.Cut(text, ":")
	if !found {
		return nil, &domain.SyntaxError{
			Expression: expression,
			Token:      text,
			Reason:     "clause must have the form field:pattern",
		}
	}
	field = strings.TrimSpace(field)
	pattern = strings.TrimSpace(pattern)
	if field == "" {
		return nil, &domain.SyntaxError{
			Expression: expression,
			Token:      text,
			Reason:     "empty field name",
		}
	}
	if pattern == "" {
		return nil, &domain.SyntaxError{
			Expression: expression,
			Token:      text,
			Reason:     "empty pattern",
		}
	}

	var node Predicate = newFieldMatch(field, pattern)
	if negated {
		node = &notNode{child: node}
	}
	return node, nil
}
