// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package catalog

import (
	"fmt"
	"strings"
)

// whereBuilder constructs SQL WHERE clauses with parameterized arguments.
//
//	wb := newWhereBuilder()
//	wb.addClause("library_name = ?", "Stock Library")
//	wb.addIn("t.genre", []string{"1352", "2131"})
//	where, args := wb.build()
//	// library_name = ? AND t.genre IN (?, ?)
type whereBuilder struct {
	clauses []string
	args    []any
}

func newWhereBuilder() *whereBuilder {
	return &whereBuilder{}
}

// addClause adds a raw condition with its arguments.
func (wb *whereBuilder) addClause(clause string, args ...any) *whereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// addIn adds "column IN (?, ...)". An empty list is skipped.
func (wb *whereBuilder) addIn(column string, values []string) *whereBuilder {
	if len(values) == 0 {
		return wb
	}
	clause, args := inClause(column, values)
	return wb.addClause(clause, args...)
}

// build returns the clauses joined by AND, or "1=1" when there are none.
func (wb *whereBuilder) build() (string, []any) {
	if len(wb.clauses) == 0 {
		return "1=1", wb.args
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

func (wb *whereBuilder) isEmpty() bool {
	return len(wb.clauses) == 0
}

// inClause renders "column IN (?, ?, ...)" with one argument per value.
func inClause(column string, values []string) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), args
}

// likePattern wraps s in % wildcards, escaping LIKE metacharacters with \.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
