package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tanaste-io/tanaste/internal/storage"
	"github.com/tanaste-io/tanaste/internal/types"
)

func (s *SQLiteStorage) FindPersonByNameRole(ctx context.Context, name string, role types.PersonRole) (*types.Person, error) {
	const q = `SELECT id, name, role, external_id, portrait_url, biography, created_at, enriched_at
		FROM persons WHERE name = ? COLLATE NOCASE AND role = ?`
	row := s.db.QueryRowContext(ctx, q, name, string(role))

	p := &types.Person{}
	var roleStr, createdAt string
	var externalID, portraitURL, biography, enrichedAt sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &roleStr, &externalID, &portraitURL, &biography, &createdAt, &enrichedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: scan person: %w", err)
	}
	p.Role = types.PersonRole(roleStr)
	if externalID.Valid {
		p.ExternalID = &externalID.String
	}
	if portraitURL.Valid {
		p.PortraitURL = &portraitURL.String
	}
	if biography.Valid {
		p.Biography = &biography.String
	}
	var err error
	p.CreatedAt, err = types.ParseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: parse person created_at: %w", err)
	}
	if enrichedAt.Valid {
		t, err := types.ParseTime(enrichedAt.String)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse person enriched_at: %w", err)
		}
		p.EnrichedAt = &t
	}
	return p, nil
}

func (s *SQLiteStorage) UpsertPerson(ctx context.Context, person *types.Person) error {
	var enrichedAt *string
	if person.EnrichedAt != nil {
		v := types.FormatTime(*person.EnrichedAt)
		enrichedAt = &v
	}
	const q = `INSERT INTO persons (id, name, role, external_id, portrait_url, biography, created_at, enriched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, role = excluded.role, external_id = excluded.external_id,
			portrait_url = excluded.portrait_url, biography = excluded.biography, enriched_at = excluded.enriched_at`
	if _, err := s.db.ExecContext(ctx, q, person.ID, person.Name, string(person.Role),
		person.ExternalID, person.PortraitURL, person.Biography, types.FormatTime(person.CreatedAt), enrichedAt); err != nil {
		return fmt.Errorf("sqlite: upsert person %s: %w", person.ID, err)
	}
	return nil
}

// LinkPerson is an idempotent insert: the same (asset, person, role) link
// is never duplicated.
func (s *SQLiteStorage) LinkPerson(ctx context.Context, link *types.PersonMediaLink) error {
	const q = `INSERT OR IGNORE INTO person_media_links (asset_id, person_id, role) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, link.AssetID, link.PersonID, string(link.Role)); err != nil {
		return fmt.Errorf("sqlite: link person %s to asset %s: %w", link.PersonID, link.AssetID, err)
	}
	return nil
}

func (s *SQLiteStorage) MarkPersonEnriched(ctx context.Context, id string, externalID, portraitURL, biography *string, at time.Time) error {
	const q = `UPDATE persons SET external_id = COALESCE(?, external_id), portrait_url = COALESCE(?, portrait_url),
		biography = COALESCE(?, biography), enriched_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, externalID, portraitURL, biography, types.FormatTime(at), id); err != nil {
		return fmt.Errorf("sqlite: mark person enriched %s: %w", id, err)
	}
	return nil
}
