package sqlite

import (
	"context"
	"fmt"

	"github.com/tanaste-io/tanaste/internal/types"
)

func upsertCanonicalValues(ctx context.Context, exec execer, values []*types.CanonicalValue) error {
	const q = `INSERT INTO canonical_values (entity_id, entity_type, claim_key, claim_value, last_scored_at, is_conflicted)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_id, claim_key) DO UPDATE SET
			claim_value = excluded.claim_value,
			last_scored_at = excluded.last_scored_at,
			is_conflicted = excluded.is_conflicted`
	for _, v := range values {
		conflicted := 0
		if v.IsConflicted {
			conflicted = 1
		}
		if _, err := exec.ExecContext(ctx, q, v.EntityID, string(v.EntityType), v.Key, v.Value,
			types.FormatTime(v.LastScoredAt), conflicted); err != nil {
			return fmt.Errorf("sqlite: upsert canonical %s/%s: %w", v.EntityID, v.Key, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) UpsertBatch(ctx context.Context, values []*types.CanonicalValue) error {
	return upsertCanonicalValues(ctx, s.db, values)
}

func (t *txWrapper) UpsertCanonicalValues(ctx context.Context, values []*types.CanonicalValue) error {
	return upsertCanonicalValues(ctx, t.tx, values)
}

func scanCanonicalRows(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]*types.CanonicalValue, error) {
	var out []*types.CanonicalValue
	for rows.Next() {
		v := &types.CanonicalValue{}
		var entityType, lastScoredAt string
		var conflicted int
		if err := rows.Scan(&v.EntityID, &entityType, &v.Key, &v.Value, &lastScoredAt, &conflicted); err != nil {
			return nil, fmt.Errorf("sqlite: scan canonical: %w", err)
		}
		v.EntityType = types.EntityType(entityType)
		v.IsConflicted = conflicted == 1
		var err error
		v.LastScoredAt, err = types.ParseTime(lastScoredAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse last_scored_at: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) GetCanonicalsByEntity(ctx context.Context, entityID string) ([]*types.CanonicalValue, error) {
	const q = `SELECT entity_id, entity_type, claim_key, claim_value, last_scored_at, is_conflicted
		FROM canonical_values WHERE entity_id = ? ORDER BY claim_key ASC`
	rows, err := s.db.QueryContext(ctx, q, entityID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get canonicals for %s: %w", entityID, err)
	}
	defer rows.Close()
	return scanCanonicalRows(rows)
}

func (s *SQLiteStorage) GetConflicted(ctx context.Context) ([]*types.CanonicalValue, error) {
	const q = `SELECT entity_id, entity_type, claim_key, claim_value, last_scored_at, is_conflicted
		FROM canonical_values WHERE is_conflicted = 1 ORDER BY last_scored_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get conflicted canonicals: %w", err)
	}
	defer rows.Close()
	return scanCanonicalRows(rows)
}
