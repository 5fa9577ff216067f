// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/autobrr/unlinkr/internal/dbinterface"
)

var ErrTransferHistoryNotFound = errors.New("transfer history not found")

// TransferMode values recorded by the organizer that created the link.
const (
	TransferModeLink = "link"
	TransferModeCopy = "copy"
	TransferModeMove = "move"
	TransferModeStrm = "strm"
)

// TransferHistory records one organizer transfer from a download path to a
// library path.
type TransferHistory struct {
	ID        int64     `json:"id" yaml:"id"`
	Src       string    `json:"src" yaml:"src"`
	Dest      string    `json:"dest" yaml:"dest"`
	Mode      string    `json:"mode" yaml:"mode"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

type TransferHistoryCreate struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
	Mode string `json:"mode"`
}

type TransferHistoryStore struct {
	db dbinterface.Querier
}

func NewTransferHistoryStore(db dbinterface.Querier) *TransferHistoryStore {
	return &TransferHistoryStore{db: db}
}

const transferHistoryColumns = `id, src, dest, mode, created_at`

func normalizeTransferCreate(create TransferHistoryCreate) (TransferHistoryCreate, error) {
	create.Src = strings.TrimSpace(create.Src)
	create.Dest = strings.TrimSpace(create.Dest)
	create.Mode = strings.ToLower(strings.TrimSpace(create.Mode))
	if create.Src == "" || create.Dest == "" {
		return create, errors.New("src and dest are required")
	}
	if create.Mode == "" {
		create.Mode = TransferModeLink
	}
	switch create.Mode {
	case TransferModeLink, TransferModeCopy, TransferModeMove, TransferModeStrm:
	default:
		return create, fmt.Errorf("unknown transfer mode %q", create.Mode)
	}
	return create, nil
}

func (s *TransferHistoryStore) Create(ctx context.Context, create TransferHistoryCreate) (*TransferHistory, error) {
	create, err := normalizeTransferCreate(create)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO transfer_history (src, dest, mode, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`, create.Src, create.Dest, create.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// transferBatchRows keeps each INSERT well under SQLite's bound-variable limit.
const transferBatchRows = 500

// CreateBatch inserts all records, or none of them when the store can open a
// transaction.
func (s *TransferHistoryStore) CreateBatch(ctx context.Context, creates []TransferHistoryCreate) (int64, error) {
	if len(creates) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(creates)*3)
	for i, create := range creates {
		create, err := normalizeTransferCreate(create)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		args = append(args, create.Src, create.Dest, create.Mode)
	}

	exec := s.db
	var tx dbinterface.TxQuerier
	if beginner, ok := s.db.(dbinterface.TxBeginner); ok {
		var err error
		tx, err = beginner.BeginTx(ctx, nil)
		if err != nil {
			return 0, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()
		exec = tx
	}

	var total int64
	for start := 0; start < len(creates); start += transferBatchRows {
		end := min(start+transferBatchRows, len(creates))
		query := dbinterface.BuildQueryWithPlaceholders("INSERT INTO transfer_history (src, dest, mode) VALUES %s", 3, end-start)
		result, err := exec.ExecContext(ctx, query, args[start*3:end*3]...)
		if err != nil {
			return 0, fmt.Errorf("failed to create transfer history batch: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		total += n
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("failed to commit transfer history batch: %w", err)
		}
	}
	return total, nil
}

func (s *TransferHistoryStore) GetByID(ctx context.Context, id int64) (*TransferHistory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transferHistoryColumns+` FROM transfer_history WHERE id = ?`, id)

	var h TransferHistory
	err := row.Scan(&h.ID, &h.Src, &h.Dest, &h.Mode, &h.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransferHistoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer history: %w", err)
	}
	return &h, nil
}

// List returns the newest records first. A limit <= 0 returns everything.
func (s *TransferHistoryStore) List(ctx context.Context, limit int) ([]*TransferHistory, error) {
	query := `SELECT ` + transferHistoryColumns + ` FROM transfer_history ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

func (s *TransferHistoryStore) GetBySource(ctx context.Context, src string) ([]*TransferHistory, error) {
	return s.query(ctx, `SELECT `+transferHistoryColumns+` FROM transfer_history WHERE src = ? ORDER BY id`, src)
}

func (s *TransferHistoryStore) GetByDestination(ctx context.Context, dest string) ([]*TransferHistory, error) {
	return s.query(ctx, `SELECT `+transferHistoryColumns+` FROM transfer_history WHERE dest = ? ORDER BY id`, dest)
}

// DeleteBySource removes every record whose source is src and reports
// whether any existed.
func (s *TransferHistoryStore) DeleteBySource(ctx context.Context, src string) (bool, error) {
	return s.delete(ctx, `DELETE FROM transfer_history WHERE src = ?`, src)
}

// DeleteByDestination removes every record whose destination is dest and
// reports whether any existed.
func (s *TransferHistoryStore) DeleteByDestination(ctx context.Context, dest string) (bool, error) {
	return s.delete(ctx, `DELETE FROM transfer_history WHERE dest = ?`, dest)
}

func (s *TransferHistoryStore) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM transfer_history WHERE id IN (`+dbinterface.InClause(len(ids))+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transfer history: %w", err)
	}
	return result.RowsAffected()
}

func (s *TransferHistoryStore) delete(ctx context.Context, query, value string) (bool, error) {
	result, err := s.db.ExecContext(ctx, query, value)
	if err != nil {
		return false, fmt.Errorf("failed to delete transfer history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (s *TransferHistoryStore) query(ctx context.Context, query string, args ...any) ([]*TransferHistory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer history: %w", err)
	}
	defer rows.Close()

	var out []*TransferHistory
	for rows.Next() {
		var h TransferHistory
		if err := rows.Scan(&h.ID, &h.Src, &h.Dest, &h.Mode, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer history: %w", err)
		}
		out = append(out, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfer history: %w", err)
	}
	return out, nil
}
