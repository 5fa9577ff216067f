// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package dbinterface provides database interfaces to avoid import cycles.
// This package has no dependencies and can be imported by both the database
// implementation and the models stores.
package dbinterface

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Querier is the centralized interface for database operations.
// It is implemented by *sql.DB, *sql.Tx, *database.DB and *database.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// TxQuerier is a Querier bound to an open transaction.
type TxQuerier interface {
	Querier
	Commit() error
	Rollback() error
}

// TxBeginner is an interface for types that can begin transactions.
type TxBeginner interface {
	Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (TxQuerier, error)
}

// BuildQueryWithPlaceholders expands the single %s in template into numRows
// groups of placeholdersPerRow "?" markers.
func BuildQueryWithPlaceholders(template string, placeholdersPerRow, numRows int) string {
	if placeholdersPerRow <= 0 || numRows <= 0 {
		return fmt.Sprintf(template, "")
	}

	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", placeholdersPerRow), ", ") + ")"
	groups := make([]string, numRows)
	for i := range groups {
		groups[i] = row
	}
	return fmt.Sprintf(template, strings.Join(groups, ", "))
}

// InClause returns "?, ?, ?" for n values to be used inside IN (...).
func InClause(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
