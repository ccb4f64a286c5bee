package sidecar

import (
	"path/filepath"
	"testing"
)

func TestHubSidecarRoundTrips(t *testing.T) {
	dir := t.TempDir()
	hub := HubSidecar{DisplayName: "The Hobbit", Year: "1937", LastOrganized: "2026-01-01T00:00:00Z"}
	if err := WriteHub(dir, hub); err != nil {
		t.Fatalf("write hub: %v", err)
	}

	kind, err := Classify(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if kind != "tanaste-hub" {
		t.Fatalf("expected tanaste-hub, got %q", kind)
	}

	got, err := ReadHub(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read hub: %v", err)
	}
	if got.DisplayName != hub.DisplayName || got.Year != hub.Year {
		t.Fatalf("round-trip mismatch: got %+v want %+v", got, hub)
	}
}

func TestEditionSidecarRoundTripsLocks(t *testing.T) {
	dir := t.TempDir()
	edition := EditionSidecar{
		Title:       "The Hobbit",
		Author:      "J.R.R. Tolkien",
		MediaType:   "Ebook",
		ContentHash: "deadbeef",
		Claims:      []ClaimLock{{Key: "title", Value: "My Chosen Title", LockedAt: "2026-01-01T00:00:00Z"}},
	}
	if err := WriteEdition(dir, edition); err != nil {
		t.Fatalf("write edition: %v", err)
	}

	got, err := ReadEdition(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read edition: %v", err)
	}
	if got.ContentHash != edition.ContentHash || len(got.Claims) != 1 || got.Claims[0].Value != "My Chosen Title" {
		t.Fatalf("round-trip mismatch: got %+v", got)
	}
	if got.CoverPath != DefaultCoverPath {
		t.Fatalf("expected default cover path, got %q", got.CoverPath)
	}
}
