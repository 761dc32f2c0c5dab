package indexbun

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-pagecache/pagecache"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func TestIndex_WriteReadClear(t *testing.T) {
	ctx := context.Background()
	index := NewIndex(newTestDB(t))

	entries, err := index.Read(ctx)
	if err != nil {
		t.Fatalf("read empty: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty mapping, got %v", entries)
	}

	want := map[string]string{
		"http://localhost:3000/a?x=1": "a.pdf",
		"http://localhost:3000/b":     "b.pdf",
	}
	if err := index.Write(ctx, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := index.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got["http://localhost:3000/a?x=1"] != "a.pdf" || got["http://localhost:3000/b"] != "b.pdf" {
		t.Fatalf("unexpected mapping %v", got)
	}

	if err := index.Write(ctx, map[string]string{"http://localhost:3000/c": "c.pdf"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = index.Read(ctx)
	if len(got) != 1 || got["http://localhost:3000/c"] != "c.pdf" {
		t.Fatalf("expected full replacement, got %v", got)
	}

	if err := index.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, _ = index.Read(ctx)
	if len(got) != 0 {
		t.Fatalf("expected cleared mapping, got %v", got)
	}
}

func TestIndex_UpdateKeepsExistingRows(t *testing.T) {
	ctx := context.Background()
	index := NewIndex(newTestDB(t))
	index.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	for n := 0; n < 3; n++ {
		key := fmt.Sprintf("http://localhost:3000/p%d", n)
		err := index.Update(ctx, func(entries map[string]string) error {
			entries[key] = fmt.Sprintf("p%d.pdf", n)
			return nil
		})
		if err != nil {
			t.Fatalf("update %d: %v", n, err)
		}
	}

	got, err := index.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %v", got)
	}
}

func TestIndex_UpdateErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	index := NewIndex(newTestDB(t))
	if err := index.Write(ctx, map[string]string{"k": "v.pdf"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := index.Update(ctx, func(entries map[string]string) error {
		delete(entries, "k")
		return fmt.Errorf("abort")
	})
	if err == nil {
		t.Fatalf("expected update error")
	}
	got, _ := index.Read(ctx)
	if got["k"] != "v.pdf" {
		t.Fatalf("expected rollback, got %v", got)
	}
}

func TestIndex_NotConfigured(t *testing.T) {
	var index *Index
	_, err := index.Read(context.Background())
	if pagecache.KindFromError(err) != pagecache.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := NewIndex(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}
