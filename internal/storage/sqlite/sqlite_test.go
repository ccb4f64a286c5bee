package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tanaste-io/tanaste/internal/storage"
	"github.com/tanaste-io/tanaste/internal/types"
)

func setupTestDB(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	dir, err := os.MkdirTemp("", "tanaste-sqlite-test-*")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	store, err := Open(filepath.Join(dir, "tanaste.db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("open: %v", err)
	}
	return store, func() {
		store.Close()
		os.RemoveAll(dir)
	}
}

func TestHubUpsertAndLookup(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	hub := &types.Hub{ID: types.NewID(), Name: "The Hobbit", CreatedAt: types.Now()}
	if err := store.UpsertHub(ctx, hub); err != nil {
		t.Fatalf("upsert hub: %v", err)
	}

	got, err := store.GetHubByName(ctx, "the hobbit")
	if err != nil {
		t.Fatalf("get hub by name: %v", err)
	}
	if got.ID != hub.ID {
		t.Fatalf("expected case-insensitive lookup to find %s, got %s", hub.ID, got.ID)
	}
}

func TestAssetInsertIsAtMostOncePerHash(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	asset := &types.MediaAsset{
		ID:          types.NewID(),
		EditionID:   types.NewID(),
		ContentHash: "deadbeef",
		PathRoot:    "/watch/a.epub",
		Status:      types.AssetNormal,
	}
	inserted, err := store.InsertAsset(ctx, asset)
	if err != nil {
		t.Fatalf("insert asset: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first insert to succeed")
	}

	dupe := &types.MediaAsset{
		ID:          types.NewID(),
		EditionID:   types.NewID(),
		ContentHash: "deadbeef",
		PathRoot:    "/watch/b.epub",
		Status:      types.AssetNormal,
	}
	inserted, err = store.InsertAsset(ctx, dupe)
	if err != nil {
		t.Fatalf("insert dupe asset: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate content hash insert to be a no-op")
	}
}

func TestClaimLogIsAppendOnly(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	entityID := types.NewID()
	claim := &types.MetadataClaim{
		ID: types.NewID(), EntityID: entityID, EntityType: types.EntityAsset,
		ProviderID: "localProcessor", Key: "title", Value: "The Hobbit",
		Confidence: 0.9, ClaimedAt: types.Now(),
	}
	if err := store.InsertBatch(ctx, []*types.MetadataClaim{claim}); err != nil {
		t.Fatalf("insert batch: %v", err)
	}

	claims, err := store.GetClaimsByEntity(ctx, entityID)
	if err != nil {
		t.Fatalf("get claims: %v", err)
	}
	if len(claims) != 1 || claims[0].Value != "The Hobbit" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestCanonicalUpsertOverwritesSameKey(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	entityID := types.NewID()
	first := &types.CanonicalValue{EntityID: entityID, EntityType: types.EntityAsset, Key: "title", Value: "Dune", LastScoredAt: types.Now()}
	if err := store.UpsertBatch(ctx, []*types.CanonicalValue{first}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	second := &types.CanonicalValue{EntityID: entityID, EntityType: types.EntityAsset, Key: "title", Value: "Dune: Part One", LastScoredAt: types.Now(), IsConflicted: true}
	if err := store.UpsertBatch(ctx, []*types.CanonicalValue{second}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	values, err := store.GetCanonicalsByEntity(ctx, entityID)
	if err != nil {
		t.Fatalf("get canonicals: %v", err)
	}
	if len(values) != 1 || values[0].Value != "Dune: Part One" || !values[0].IsConflicted {
		t.Fatalf("unexpected canonical state: %+v", values)
	}
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	entityID := types.NewID()
	wantErr := context.Canceled
	err := store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		claim := &types.MetadataClaim{
			ID: types.NewID(), EntityID: entityID, EntityType: types.EntityAsset,
			ProviderID: "localProcessor", Key: "title", Value: "The Hobbit",
			Confidence: 0.9, ClaimedAt: types.Now(),
		}
		if err := tx.InsertClaims(ctx, []*types.MetadataClaim{claim}); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected transaction to surface callback error, got %v", err)
	}

	claims, err := store.GetClaimsByEntity(ctx, entityID)
	if err != nil {
		t.Fatalf("get claims: %v", err)
	}
	if len(claims) != 0 {
		t.Fatalf("expected rollback to leave no claims, got %d", len(claims))
	}
}
