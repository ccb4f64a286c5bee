package person

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tanaste-io/tanaste/internal/harvest"
	"github.com/tanaste-io/tanaste/internal/storage/sqlite"
	"github.com/tanaste-io/tanaste/internal/types"
)

func setupTestStore(t *testing.T) *sqlite.SQLiteStorage {
	t.Helper()
	dir, err := os.MkdirTemp("", "tanaste-person-test-*")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	store, err := sqlite.Open(filepath.Join(dir, "tanaste.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
		os.RemoveAll(dir)
	})
	return store
}

func TestProcessCreatesPersonAndEnqueuesEnrichment(t *testing.T) {
	store := setupTestStore(t)
	queue := harvest.NewQueue()
	svc := NewService(store, queue)
	ctx := context.Background()

	asset := &types.MediaAsset{ID: types.NewID(), ContentHash: "hash1", PathRoot: "/x/a.epub", Status: types.AssetNormal}
	if _, err := store.InsertAsset(ctx, asset); err != nil {
		t.Fatalf("insert asset: %v", err)
	}

	errs := svc.Process(ctx, asset.ID, []Reference{{Name: "Ursula K. Le Guin", Role: types.RoleAuthor}})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	p, err := store.FindPersonByNameRole(ctx, "Ursula K. Le Guin", types.RoleAuthor)
	if err != nil {
		t.Fatalf("find person: %v", err)
	}
	if p == nil {
		t.Fatalf("expected person to be created")
	}
	if queue.Len() != 1 {
		t.Fatalf("expected one enrichment request queued, got %d", queue.Len())
	}
}

func TestProcessIsIdempotentAcrossAssets(t *testing.T) {
	store := setupTestStore(t)
	queue := harvest.NewQueue()
	svc := NewService(store, queue)
	ctx := context.Background()

	first := &types.MediaAsset{ID: types.NewID(), ContentHash: "hash1", PathRoot: "/x/a.epub", Status: types.AssetNormal}
	second := &types.MediaAsset{ID: types.NewID(), ContentHash: "hash2", PathRoot: "/x/b.epub", Status: types.AssetNormal}
	if _, err := store.InsertAsset(ctx, first); err != nil {
		t.Fatalf("insert asset: %v", err)
	}
	if _, err := store.InsertAsset(ctx, second); err != nil {
		t.Fatalf("insert asset: %v", err)
	}

	svc.Process(ctx, first.ID, []Reference{{Name: "Ann Leckie", Role: types.RoleAuthor}})
	svc.Process(ctx, second.ID, []Reference{{Name: "ann leckie", Role: types.RoleAuthor}})

	p, err := store.FindPersonByNameRole(ctx, "Ann Leckie", types.RoleAuthor)
	if err != nil {
		t.Fatalf("find person: %v", err)
	}
	if p == nil {
		t.Fatalf("expected person to exist")
	}
	if queue.Len() != 1 {
		t.Fatalf("expected a single enrichment request for the same person across both assets, got %d", queue.Len())
	}
}

func TestProcessSkipsEmptyNamesAndContinuesOnError(t *testing.T) {
	store := setupTestStore(t)
	queue := harvest.NewQueue()
	svc := NewService(store, queue)
	ctx := context.Background()

	asset := &types.MediaAsset{ID: types.NewID(), ContentHash: "hash1", PathRoot: "/x/a.epub", Status: types.AssetNormal}
	if _, err := store.InsertAsset(ctx, asset); err != nil {
		t.Fatalf("insert asset: %v", err)
	}

	errs := svc.Process(ctx, asset.ID, []Reference{
		{Name: "", Role: types.RoleAuthor},
		{Name: "Becky Chambers", Role: types.RoleAuthor},
	})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if queue.Len() != 1 {
		t.Fatalf("expected only the non-empty reference to enqueue work, got %d", queue.Len())
	}
}
