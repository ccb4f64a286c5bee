package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tanaste-io/tanaste/internal/storage"
	"github.com/tanaste-io/tanaste/internal/types"
)

func scanAsset(row *sql.Row) (*types.MediaAsset, error) {
	a := &types.MediaAsset{}
	var status string
	if err := row.Scan(&a.ID, &a.EditionID, &a.ContentHash, &a.PathRoot, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: scan asset: %w", err)
	}
	a.Status = types.AssetStatus(status)
	return a, nil
}

func (s *SQLiteStorage) GetAssetByHash(ctx context.Context, hash string) (*types.MediaAsset, error) {
	const q = `SELECT id, edition_id, content_hash, path_root, status FROM media_assets WHERE content_hash = ?`
	return scanAsset(s.db.QueryRowContext(ctx, q, hash))
}

func (s *SQLiteStorage) GetAssetByPathRoot(ctx context.Context, pathRoot string) (*types.MediaAsset, error) {
	const q = `SELECT id, edition_id, content_hash, path_root, status FROM media_assets WHERE path_root = ?`
	return scanAsset(s.db.QueryRowContext(ctx, q, pathRoot))
}

// insertAsset performs the at-most-once-per-hash insert described in C1.
// INSERT OR IGNORE lets concurrent racing inserts of the same hash resolve
// to exactly one winner with no error raised to either caller.
func insertAsset(ctx context.Context, exec execer, asset *types.MediaAsset) (bool, error) {
	const q = `INSERT OR IGNORE INTO media_assets (id, edition_id, content_hash, path_root, status)
		VALUES (?, ?, ?, ?, ?)`
	res, err := exec.ExecContext(ctx, q, asset.ID, asset.EditionID, asset.ContentHash, asset.PathRoot, string(asset.Status))
	if err != nil {
		return false, fmt.Errorf("sqlite: insert asset %s: %w", asset.ContentHash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: rows affected for asset insert: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStorage) InsertAsset(ctx context.Context, asset *types.MediaAsset) (bool, error) {
	return insertAsset(ctx, s.db, asset)
}

func (t *txWrapper) InsertAsset(ctx context.Context, asset *types.MediaAsset) (bool, error) {
	return insertAsset(ctx, t.tx, asset)
}

func (s *SQLiteStorage) SetAssetStatus(ctx context.Context, id string, status types.AssetStatus) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE media_assets SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return fmt.Errorf("sqlite: set asset status %s: %w", id, err)
	}
	return nil
}
