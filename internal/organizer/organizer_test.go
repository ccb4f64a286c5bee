package organizer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveHappyPath(t *testing.T) {
	tokens := Tokens{
		Category: "Books",
		HubName:  "The Hobbit",
		Year:     "1937",
		Format:   "Epub",
	}
	got := Resolve("{Category}/{HubName} ({Year})/{Format} - Standard", tokens)
	want := filepath.Join("Books", "The Hobbit (1937)", "Epub - Standard")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestConditionalGroupCollapsesWhenEmpty(t *testing.T) {
	tokens := Tokens{HubName: "Dune"}
	got := Resolve("{HubName} ({Year})", tokens)
	if got != "Dune" {
		t.Fatalf("expected empty Year to collapse the conditional group, got %q", got)
	}
}

func TestIllegalCharactersReplaced(t *testing.T) {
	tokens := Tokens{Title: "Weird: Title/Name"}
	got := Resolve("{Title}", tokens)
	for _, r := range got {
		if r == '/' || r == '\\' {
			t.Fatalf("expected no path separators in resolved segment, got %q", got)
		}
	}
}

func TestResolveCollisionFreeAppendsSuffix(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "book.epub")
	if err := os.WriteFile(existing, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got := ResolveCollisionFree(existing)
	want := filepath.Join(dir, "book (2).epub")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestExecuteMoveCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source.epub")
	if err := os.WriteFile(source, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	dest := filepath.Join(dir, "Books", "Dune", "dest.epub")

	if ok := ExecuteMove(source, dest); !ok {
		t.Fatalf("expected move to succeed")
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected file at destination: %v", err)
	}
}
