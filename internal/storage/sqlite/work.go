package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tanaste-io/tanaste/internal/storage"
	"github.com/tanaste-io/tanaste/internal/types"
)

func (s *SQLiteStorage) GetWorkByID(ctx context.Context, id string) (*types.Work, error) {
	const q = `SELECT id, hub_id, media_type, sequence_index FROM works WHERE id = ?`
	return scanWork(s.db.QueryRowContext(ctx, q, id))
}

func (s *SQLiteStorage) FindWorkInHub(ctx context.Context, hubID string, mediaType types.MediaType) (*types.Work, error) {
	const q = `SELECT id, hub_id, media_type, sequence_index FROM works WHERE hub_id = ? AND media_type = ? LIMIT 1`
	return scanWork(s.db.QueryRowContext(ctx, q, hubID, string(mediaType)))
}

func scanWork(row *sql.Row) (*types.Work, error) {
	w := &types.Work{}
	var mediaType string
	var seq sql.NullInt64
	if err := row.Scan(&w.ID, &w.HubID, &mediaType, &seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: scan work: %w", err)
	}
	w.MediaType = types.MediaType(mediaType)
	if seq.Valid {
		v := int(seq.Int64)
		w.SequenceIndex = &v
	}
	return w, nil
}

func (s *SQLiteStorage) UpsertWork(ctx context.Context, work *types.Work) error {
	const q = `INSERT INTO works (id, hub_id, media_type, sequence_index) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET hub_id = excluded.hub_id, media_type = excluded.media_type, sequence_index = excluded.sequence_index`
	if _, err := s.db.ExecContext(ctx, q, work.ID, work.HubID, string(work.MediaType), work.SequenceIndex); err != nil {
		return fmt.Errorf("sqlite: upsert work %s: %w", work.ID, err)
	}
	return nil
}

func (s *SQLiteStorage) ReassignWorksToHub(ctx context.Context, oldHubID, newHubID string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE works SET hub_id = ? WHERE hub_id = ?`, newHubID, oldHubID); err != nil {
		return fmt.Errorf("sqlite: reassign works %s -> %s: %w", oldHubID, newHubID, err)
	}
	return nil
}

var _ storage.WorkStore = (*SQLiteStorage)(nil)
