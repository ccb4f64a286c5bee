package sidecar

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/tanaste-io/tanaste/internal/storage"
	"github.com/tanaste-io/tanaste/internal/types"
)

// ScanSummary is the result of one Library Scanner pass.
type ScanSummary struct {
	HubsUpserted     int
	EditionsUpserted int
	Errors           int
	Elapsed          time.Duration
}

// Scanner rebuilds canonical database state from sidecar files only — no
// hashing, no media parsing — the "great inhale" described in spec §4.7.
// It is read-heavy against the filesystem and must never modify it; the
// hierarchical later-wins precedence mirrors the teacher's
// molecules.Loader.LoadAll override walk.
type Scanner struct {
	store storage.Storage
}

func NewScanner(store storage.Storage) *Scanner {
	return &Scanner{store: store}
}

// LibraryScan walks libraryRoot recursively, classifying each tanaste.xml
// by its root element and upserting the database accordingly.
func (s *Scanner) LibraryScan(ctx context.Context, libraryRoot string) (ScanSummary, error) {
	start := time.Now()
	summary := ScanSummary{}

	err := filepath.WalkDir(libraryRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			summary.Errors++
			return nil // keep scanning; a single unreadable entry isn't fatal
		}
		if d.IsDir() || d.Name() != FileName {
			return nil
		}

		kind, err := Classify(path)
		if err != nil {
			summary.Errors++
			return nil
		}

		switch kind {
		case "tanaste-hub":
			if err := s.applyHub(ctx, path); err != nil {
				summary.Errors++
				return nil
			}
			summary.HubsUpserted++
		case "tanaste-edition":
			upserted, err := s.applyEdition(ctx, path)
			if err != nil {
				summary.Errors++
				return nil
			}
			if upserted {
				summary.EditionsUpserted++
			}
		}
		return nil
	})
	summary.Elapsed = time.Since(start)
	if err != nil {
		return summary, fmt.Errorf("sidecar: walk %s: %w", libraryRoot, err)
	}
	return summary, nil
}

// applyHub finds an existing hub by case-insensitive display name,
// updating it in place; otherwise creates it. The sidecar always wins on
// conflict.
func (s *Scanner) applyHub(ctx context.Context, path string) error {
	hub, err := ReadHub(path)
	if err != nil {
		return err
	}

	existing, err := s.store.GetHubByName(ctx, hub.DisplayName)
	id := types.NewID()
	createdAt := types.Now()
	if err == nil {
		id = existing.ID
		createdAt = existing.CreatedAt
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	var universeID *string
	if hub.ExternalID != "" {
		universeID = &hub.ExternalID
	}
	return s.store.UpsertHub(ctx, &types.Hub{
		ID:         id,
		UniverseID: universeID,
		Name:       hub.DisplayName,
		CreatedAt:  createdAt,
	})
}

// applyEdition looks up the asset by content hash. If absent, the edition
// is skipped (not an error: a normal ingestion pass is required first per
// spec §4.7 step 3). If present, it upserts canonical values and
// re-inserts any user-locked claims missing from the claim log.
func (s *Scanner) applyEdition(ctx context.Context, path string) (bool, error) {
	edition, err := ReadEdition(path)
	if err != nil {
		return false, err
	}

	asset, err := s.store.GetAssetByHash(ctx, edition.ContentHash)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := types.Now()
	canonicals := []*types.CanonicalValue{
		{EntityID: asset.ID, EntityType: types.EntityAsset, Key: "title", Value: edition.Title, LastScoredAt: now},
		{EntityID: asset.ID, EntityType: types.EntityAsset, Key: "media-type", Value: edition.MediaType, LastScoredAt: now},
	}
	if edition.Author != "" {
		canonicals = append(canonicals, &types.CanonicalValue{EntityID: asset.ID, EntityType: types.EntityAsset, Key: "author", Value: edition.Author, LastScoredAt: now})
	}
	if edition.ISBN != "" {
		canonicals = append(canonicals, &types.CanonicalValue{EntityID: asset.ID, EntityType: types.EntityAsset, Key: "isbn", Value: edition.ISBN, LastScoredAt: now})
	}
	if edition.ASIN != "" {
		canonicals = append(canonicals, &types.CanonicalValue{EntityID: asset.ID, EntityType: types.EntityAsset, Key: "asin", Value: edition.ASIN, LastScoredAt: now})
	}
	if err := s.store.UpsertBatch(ctx, canonicals); err != nil {
		return false, err
	}

	existingClaims, err := s.store.GetClaimsByEntity(ctx, asset.ID)
	if err != nil {
		return false, err
	}
	hasLock := make(map[string]bool)
	for _, c := range existingClaims {
		if c.IsUserLocked {
			hasLock[c.Key+"="+c.Value] = true
		}
	}

	var missing []*types.MetadataClaim
	for _, lock := range edition.Claims {
		if hasLock[lock.Key+"="+lock.Value] {
			continue
		}
		claimedAt := now
		if t, err := types.ParseTime(lock.LockedAt); err == nil {
			claimedAt = t
		}
		missing = append(missing, &types.MetadataClaim{
			ID: types.NewID(), EntityID: asset.ID, EntityType: types.EntityAsset,
			ProviderID: "sidecar", Key: lock.Key, Value: lock.Value,
			Confidence: 1.0, ClaimedAt: claimedAt, IsUserLocked: true,
		})
	}
	if len(missing) > 0 {
		if err := s.store.InsertBatch(ctx, missing); err != nil {
			return false, err
		}
	}

	return true, nil
}
