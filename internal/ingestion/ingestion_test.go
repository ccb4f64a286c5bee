package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tanaste-io/tanaste/internal/events"
	"github.com/tanaste-io/tanaste/internal/harvest"
	"github.com/tanaste-io/tanaste/internal/processor"
	"github.com/tanaste-io/tanaste/internal/scoring"
	"github.com/tanaste-io/tanaste/internal/storage/sqlite"
	"github.com/tanaste-io/tanaste/internal/watcher"
)

func newTestEngine(t *testing.T, cfg Config) (*Engine, *sqlite.SQLiteStorage) {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.Open(filepath.Join(dir, "tanaste.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry := processor.NewRegistry()
	registry.Register(processor.NewGenericProcessor(), 0)

	queue := harvest.NewQueue()
	bus := events.NewBus()

	engine := NewEngine(store, registry, scoring.NewEngine(), queue, bus, func() Config { return cfg })
	return engine, store
}

func TestIngestNewFileCreatesAsset(t *testing.T) {
	root := t.TempDir()
	engine, store := newTestEngine(t, Config{Scoring: scoring.DefaultConfig()})

	path := filepath.Join(root, "My Book 1999.epub")
	if err := os.WriteFile(path, []byte("contents"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	ctx := context.Background()
	c := watcher.Candidate{Path: path, Kind: watcher.Created, DetectedAt: time.Now(), ReadyAt: time.Now()}
	if err := engine.Submit(ctx, c); err != nil {
		t.Fatalf("submit: %v", err)
	}

	asset, err := store.GetAssetByPathRoot(ctx, path)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if asset.ContentHash == "" {
		t.Fatalf("expected a content hash to be recorded")
	}

	claims, err := store.GetClaimsByEntity(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get claims: %v", err)
	}
	if len(claims) == 0 {
		t.Fatalf("expected generic-processor claims to be persisted against the asset")
	}
}

func TestIngestIsIdempotentForDuplicateContent(t *testing.T) {
	root := t.TempDir()
	engine, store := newTestEngine(t, Config{Scoring: scoring.DefaultConfig()})
	ctx := context.Background()

	first := filepath.Join(root, "a.epub")
	second := filepath.Join(root, "b.epub")
	if err := os.WriteFile(first, []byte("same bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(second, []byte("same bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := engine.Submit(ctx, watcher.Candidate{Path: first, Kind: watcher.Created}); err != nil {
		t.Fatalf("submit first: %v", err)
	}
	if err := engine.Submit(ctx, watcher.Candidate{Path: second, Kind: watcher.Created}); err != nil {
		t.Fatalf("submit second: %v", err)
	}

	firstAsset, err := store.GetAssetByPathRoot(ctx, first)
	if err != nil {
		t.Fatalf("get first asset: %v", err)
	}
	if _, err := store.GetAssetByPathRoot(ctx, second); err == nil {
		t.Fatalf("expected the duplicate path to never be inserted as its own asset")
	}
	if firstAsset.Status != "Normal" {
		t.Fatalf("expected normal status, got %s", firstAsset.Status)
	}
}

func TestDeletedCandidateOrphansAsset(t *testing.T) {
	root := t.TempDir()
	engine, store := newTestEngine(t, Config{Scoring: scoring.DefaultConfig()})
	ctx := context.Background()

	path := filepath.Join(root, "gone.epub")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := engine.Submit(ctx, watcher.Candidate{Path: path, Kind: watcher.Created}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	os.Remove(path)

	if err := engine.Submit(ctx, watcher.Candidate{Path: path, Kind: watcher.Deleted}); err != nil {
		t.Fatalf("submit delete: %v", err)
	}

	asset, err := store.GetAssetByPathRoot(ctx, path)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if asset.Status != "Orphaned" {
		t.Fatalf("expected orphaned status, got %s", asset.Status)
	}
}
