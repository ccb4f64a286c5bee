package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tanaste-io/tanaste/internal/storage"
	"github.com/tanaste-io/tanaste/internal/types"
)

func (s *SQLiteStorage) GetEditionByID(ctx context.Context, id string) (*types.Edition, error) {
	const q = `SELECT id, work_id, format_label FROM editions WHERE id = ?`
	e := &types.Edition{}
	var label sql.NullString
	err := s.db.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.WorkID, &label)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: scan edition: %w", err)
	}
	if label.Valid {
		e.FormatLabel = &label.String
	}
	return e, nil
}

func (s *SQLiteStorage) ListEditionsForWork(ctx context.Context, workID string) ([]*types.Edition, error) {
	const q = `SELECT id, work_id, format_label FROM editions WHERE work_id = ?`
	rows, err := s.db.QueryContext(ctx, q, workID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list editions for work %s: %w", workID, err)
	}
	defer rows.Close()

	var out []*types.Edition
	for rows.Next() {
		e := &types.Edition{}
		var label sql.NullString
		if err := rows.Scan(&e.ID, &e.WorkID, &label); err != nil {
			return nil, fmt.Errorf("sqlite: scan edition: %w", err)
		}
		if label.Valid {
			e.FormatLabel = &label.String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) UpsertEdition(ctx context.Context, edition *types.Edition) error {
	const q = `INSERT INTO editions (id, work_id, format_label) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET work_id = excluded.work_id, format_label = excluded.format_label`
	if _, err := s.db.ExecContext(ctx, q, edition.ID, edition.WorkID, edition.FormatLabel); err != nil {
		return fmt.Errorf("sqlite: upsert edition %s: %w", edition.ID, err)
	}
	return nil
}
