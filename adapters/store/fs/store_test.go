package storefs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-pagecache/pagecache"
)

func TestStore_EnsureDirIdempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "pdfS")
	store := NewStore(root)

	for i := 0; i < 2; i++ {
		if err := store.EnsureDir(context.Background()); err != nil {
			t.Fatalf("ensure dir (%d): %v", i, err)
		}
	}
	info, err := os.Stat(root)
	if err != nil {
		t.Fatalf("stat root: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("expected directory")
	}
}

func TestStore_PutDelete(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	store.Now = func() time.Time {
		return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	}

	artifact, err := store.Put(context.Background(), "abc.pdf", bytes.NewBufferString("%PDF-1.4"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if artifact.Size != 8 {
		t.Fatalf("expected size 8, got %d", artifact.Size)
	}
	if artifact.CreatedAt.Year() != 2024 {
		t.Fatalf("expected injected clock, got %s", artifact.CreatedAt)
	}
	data, err := os.ReadFile(filepath.Join(root, "abc.pdf"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Fatalf("unexpected payload %q", string(data))
	}

	entries, _ := os.ReadDir(root)
	if len(entries) != 1 {
		t.Fatalf("expected temp file to be renamed away, got %d entries", len(entries))
	}

	if err := store.Delete(context.Background(), "abc.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(context.Background(), "abc.pdf"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "abc.pdf")); !os.IsNotExist(err) {
		t.Fatalf("expected artifact removed, got %v", err)
	}
}

func TestStore_RejectsEscapingNames(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, name := range []string{"", "..", "../x.pdf", "a/b.pdf"} {
		_, err := store.Put(context.Background(), name, bytes.NewBufferString("x"))
		if pagecache.KindFromError(err) != pagecache.KindValidation {
			t.Fatalf("name %q: expected validation error, got %v", name, err)
		}
	}
}

func TestStore_PurgeIsFlat(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	for _, name := range []string{"a.pdf", "b.pdf"} {
		if _, err := store.Put(context.Background(), name, bytes.NewBufferString("x")); err != nil {
			t.Fatalf("put %s: %v", name, err)
		}
	}
	nested := filepath.Join(root, "nested")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(nested, "keep.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write nested: %v", err)
	}

	removed, err := store.Purge(context.Background())
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, err := os.Stat(filepath.Join(nested, "keep.pdf")); err != nil {
		t.Fatalf("expected nested file to survive: %v", err)
	}
}

func TestStore_PurgeMissingRoot(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing"))
	removed, err := store.Purge(context.Background())
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected 0 removed, got %d", removed)
	}
}
