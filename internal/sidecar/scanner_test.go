package sidecar

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tanaste-io/tanaste/internal/storage/sqlite"
	"github.com/tanaste-io/tanaste/internal/types"
)

func newTestStore(t *testing.T) *sqlite.SQLiteStorage {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.Open(filepath.Join(dir, "tanaste.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLibraryScanCreatesHub(t *testing.T) {
	store := newTestStore(t)
	root := t.TempDir()
	hubDir := filepath.Join(root, "Books", "The Hobbit (1937)")
	if err := os.MkdirAll(hubDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := WriteHub(hubDir, HubSidecar{DisplayName: "The Hobbit", Year: "1937"}); err != nil {
		t.Fatalf("write hub: %v", err)
	}

	scanner := NewScanner(store)
	summary, err := scanner.LibraryScan(context.Background(), root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if summary.HubsUpserted != 1 {
		t.Fatalf("expected 1 hub upserted, got %d", summary.HubsUpserted)
	}

	hub, err := store.GetHubByName(context.Background(), "the hobbit")
	if err != nil {
		t.Fatalf("get hub: %v", err)
	}
	if hub.Name != "The Hobbit" {
		t.Fatalf("unexpected hub: %+v", hub)
	}
}

func TestLibraryScanSkipsUnmatchedEditionWithoutError(t *testing.T) {
	store := newTestStore(t)
	root := t.TempDir()
	if err := WriteEdition(root, EditionSidecar{Title: "Unknown", MediaType: "Ebook", ContentHash: "nope"}); err != nil {
		t.Fatalf("write edition: %v", err)
	}

	scanner := NewScanner(store)
	summary, err := scanner.LibraryScan(context.Background(), root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if summary.EditionsUpserted != 0 {
		t.Fatalf("expected no editions upserted for an unmatched asset, got %d", summary.EditionsUpserted)
	}
	if summary.Errors != 0 {
		t.Fatalf("expected unmatched edition to not count as an error, got %d", summary.Errors)
	}
}

func TestLibraryScanRestoresCanonicalsAndLocks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	asset := &types.MediaAsset{ID: types.NewID(), EditionID: types.NewID(), ContentHash: "deadbeef", PathRoot: "/x", Status: types.AssetNormal}
	if _, err := store.InsertAsset(ctx, asset); err != nil {
		t.Fatalf("insert asset: %v", err)
	}

	root := t.TempDir()
	if err := WriteEdition(root, EditionSidecar{
		Title: "The Hobbit", Author: "J.R.R. Tolkien", MediaType: "Ebook", ContentHash: "deadbeef",
		Claims: []ClaimLock{{Key: "title", Value: "The Hobbit", LockedAt: "2026-01-01T00:00:00Z"}},
	}); err != nil {
		t.Fatalf("write edition: %v", err)
	}

	scanner := NewScanner(store)
	summary, err := scanner.LibraryScan(ctx, root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if summary.EditionsUpserted != 1 {
		t.Fatalf("expected 1 edition upserted, got %d", summary.EditionsUpserted)
	}

	canonicals, err := store.GetCanonicalsByEntity(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get canonicals: %v", err)
	}
	if len(canonicals) == 0 {
		t.Fatalf("expected restored canonicals, got none")
	}

	claims, err := store.GetClaimsByEntity(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get claims: %v", err)
	}
	var sawLock bool
	for _, c := range claims {
		if c.IsUserLocked && c.Value == "The Hobbit" {
			sawLock = true
		}
	}
	if !sawLock {
		t.Fatalf("expected the missing user lock to be re-inserted into the claim log")
	}
}

func TestLibraryScanIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	root := t.TempDir()
	if err := WriteHub(root, HubSidecar{DisplayName: "Dune"}); err != nil {
		t.Fatalf("write hub: %v", err)
	}

	scanner := NewScanner(store)
	first, err := scanner.LibraryScan(context.Background(), root)
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	second, err := scanner.LibraryScan(context.Background(), root)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if first.HubsUpserted != second.HubsUpserted {
		t.Fatalf("expected idempotent hub counts, got %d then %d", first.HubsUpserted, second.HubsUpserted)
	}
}
