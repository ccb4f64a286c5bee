package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tanaste-io/tanaste/internal/types"
)

func insertClaims(ctx context.Context, exec execer, claims []*types.MetadataClaim) error {
	const q = `INSERT INTO metadata_claims
		(id, entity_id, entity_type, provider_id, claim_key, claim_value, confidence, claimed_at, is_user_locked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, c := range claims {
		locked := 0
		if c.IsUserLocked {
			locked = 1
		}
		if _, err := exec.ExecContext(ctx, q, c.ID, c.EntityID, string(c.EntityType), c.ProviderID,
			c.Key, c.Value, c.Confidence, types.FormatTime(c.ClaimedAt), locked); err != nil {
			return fmt.Errorf("sqlite: insert claim %s: %w", c.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) InsertBatch(ctx context.Context, claims []*types.MetadataClaim) error {
	return insertClaims(ctx, s.db, claims)
}

func (t *txWrapper) InsertClaims(ctx context.Context, claims []*types.MetadataClaim) error {
	return insertClaims(ctx, t.tx, claims)
}

func (s *SQLiteStorage) GetClaimsByEntity(ctx context.Context, entityID string) ([]*types.MetadataClaim, error) {
	const q = `SELECT id, entity_id, entity_type, provider_id, claim_key, claim_value, confidence, claimed_at, is_user_locked
		FROM metadata_claims WHERE entity_id = ? ORDER BY claimed_at ASC`
	rows, err := s.db.QueryContext(ctx, q, entityID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get claims for %s: %w", entityID, err)
	}
	defer rows.Close()

	var out []*types.MetadataClaim
	for rows.Next() {
		c := &types.MetadataClaim{}
		var entityType, claimedAt string
		var locked int
		if err := rows.Scan(&c.ID, &c.EntityID, &entityType, &c.ProviderID, &c.Key, &c.Value,
			&c.Confidence, &claimedAt, &locked); err != nil {
			return nil, fmt.Errorf("sqlite: scan claim: %w", err)
		}
		c.EntityType = types.EntityType(entityType)
		c.IsUserLocked = locked == 1
		c.ClaimedAt, err = types.ParseTime(claimedAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse claimed_at: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
