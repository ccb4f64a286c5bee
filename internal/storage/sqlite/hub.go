package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tanaste-io/tanaste/internal/storage"
	"github.com/tanaste-io/tanaste/internal/types"
)

func (s *SQLiteStorage) GetHubByID(ctx context.Context, id string) (*types.Hub, error) {
	const q = `SELECT id, universe_id, name, created_at FROM hubs WHERE id = ?`
	return scanHub(s.db.QueryRowContext(ctx, q, id))
}

func (s *SQLiteStorage) GetHubByName(ctx context.Context, name string) (*types.Hub, error) {
	const q = `SELECT id, universe_id, name, created_at FROM hubs WHERE name = ? COLLATE NOCASE`
	return scanHub(s.db.QueryRowContext(ctx, q, name))
}

func scanHub(row *sql.Row) (*types.Hub, error) {
	h := &types.Hub{}
	var universeID sql.NullString
	var createdAt string
	if err := row.Scan(&h.ID, &universeID, &h.Name, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: scan hub: %w", err)
	}
	if universeID.Valid {
		h.UniverseID = &universeID.String
	}
	var err error
	h.CreatedAt, err = types.ParseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: parse hub created_at: %w", err)
	}
	return h, nil
}

func (s *SQLiteStorage) UpsertHub(ctx context.Context, hub *types.Hub) error {
	const q = `INSERT INTO hubs (id, universe_id, name, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET universe_id = excluded.universe_id, name = excluded.name`
	if _, err := s.db.ExecContext(ctx, q, hub.ID, hub.UniverseID, hub.Name, types.FormatTime(hub.CreatedAt)); err != nil {
		return fmt.Errorf("sqlite: upsert hub %s: %w", hub.ID, err)
	}
	return nil
}

// DeleteHub removes a hub and reassigns its works to the unassigned
// sentinel hub, so no Work is ever left orphaned.
func (s *SQLiteStorage) DeleteHub(ctx context.Context, id string) error {
	if id == types.UnassignedHubID {
		return fmt.Errorf("sqlite: cannot delete the unassigned sentinel hub")
	}
	return s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		w := tx.(*txWrapper)
		if _, err := w.tx.ExecContext(ctx,
			`INSERT INTO hubs (id, universe_id, name, created_at)
			 SELECT ?, NULL, 'Unassigned', ? WHERE NOT EXISTS (SELECT 1 FROM hubs WHERE id = ?)`,
			types.UnassignedHubID, types.FormatTime(types.Now()), types.UnassignedHubID); err != nil {
			return fmt.Errorf("sqlite: ensure unassigned hub: %w", err)
		}
		if _, err := w.tx.ExecContext(ctx, `UPDATE works SET hub_id = ? WHERE hub_id = ?`, types.UnassignedHubID, id); err != nil {
			return fmt.Errorf("sqlite: reassign works from %s: %w", id, err)
		}
		if _, err := w.tx.ExecContext(ctx, `DELETE FROM hubs WHERE id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: delete hub %s: %w", id, err)
		}
		return nil
	})
}
