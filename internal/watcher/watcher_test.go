package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDebounceCoalescesBurstIntoOneCandidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.epub")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	t.Setenv("TANASTE_WATCHER_FALLBACK", "poll")
	candidates := make(chan Candidate, 10)
	w, err := New(func(c Candidate) { candidates <- c })
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.WithSettleDelay(50 * time.Millisecond)

	for i := 0; i < 5; i++ {
		w.schedule(path, Modified)
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case c := <-candidates:
		if c.Path != path || c.Kind != Modified {
			t.Fatalf("unexpected candidate: %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a settled candidate after the burst quieted")
	}

	select {
	case c := <-candidates:
		t.Fatalf("expected exactly one candidate for the burst, got a second: %+v", c)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDeletedEventShortCircuitsSettleWindow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.epub")

	t.Setenv("TANASTE_WATCHER_FALLBACK", "poll")
	candidates := make(chan Candidate, 10)
	w, err := New(func(c Candidate) { candidates <- c })
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.WithSettleDelay(5 * time.Second)

	w.schedule(path, Deleted)

	select {
	case c := <-candidates:
		if c.Kind != Deleted {
			t.Fatalf("expected deleted candidate, got %+v", c)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected delete to short-circuit the settle window")
	}
}

func TestPollingModeDetectsNewFile(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("TANASTE_WATCHER_FALLBACK", "poll")
	candidates := make(chan Candidate, 10)
	w, err := New(func(c Candidate) { candidates <- c })
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.WithSettleDelay(10 * time.Millisecond)
	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatalf("add directory: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "new.epub")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	select {
	case c := <-candidates:
		if c.Path != path {
			t.Fatalf("unexpected candidate path: %+v", c)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected polling mode to detect the new file")
	}
}
