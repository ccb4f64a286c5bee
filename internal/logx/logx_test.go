package logx

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewWithFilePathRotatesThroughLumberjack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tanasted.log")
	log := New(Options{FilePath: path})
	log.Info("started", "watchDirectory", dir)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file to exist: %v", err)
	}
}

func TestDiscardNeverPanics(t *testing.T) {
	log := Discard()
	log.Info("noop")
	log.With("component", "test").Error("also noop")
}

func TestNonZeroFallsBackOnZero(t *testing.T) {
	if got := nonZero(0, 42); got != 42 {
		t.Fatalf("expected fallback 42, got %d", got)
	}
	if got := nonZero(7, 42); got != 7 {
		t.Fatalf("expected explicit value 7, got %d", got)
	}
}
