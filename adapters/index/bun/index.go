package indexbun

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/goliatone/go-pagecache/pagecache"
	"github.com/uptrace/bun"
)

var _ pagecache.Index = (*Index)(nil)

// Index stores the cache mapping as rows in a Bun-backed database.
type Index struct {
	DB  *bun.DB
	Now func() time.Time

	mu sync.Mutex
}

// NewIndex creates a Bun-backed index.
func NewIndex(db *bun.DB) *Index {
	return &Index{DB: db, Now: time.Now}
}

// EnsureSchema creates the entries table when missing.
func (i *Index) EnsureSchema(ctx context.Context) error {
	if err := i.check(); err != nil {
		return err
	}
	_, err := i.DB.NewCreateTable().Model((*entryModel)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return pagecache.NewError(pagecache.KindStorage, "create cache index table", err)
	}
	return nil
}

// Read returns every cached URL and its artifact name.
func (i *Index) Read(ctx context.Context) (map[string]string, error) {
	if err := i.check(); err != nil {
		return nil, err
	}
	return readEntries(ctx, i.DB)
}

// Write replaces every row with entries.
func (i *Index) Write(ctx context.Context, entries map[string]string) error {
	if err := i.check(); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return i.replace(ctx, tx, entries)
	})
}

// Update reads, applies fn and writes back in one transaction.
func (i *Index) Update(ctx context.Context, fn func(entries map[string]string) error) error {
	if err := i.check(); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		entries, err := readEntries(ctx, tx)
		if err != nil {
			return err
		}
		if err := fn(entries); err != nil {
			return err
		}
		return i.replace(ctx, tx, entries)
	})
}

// Clear deletes every row.
func (i *Index) Clear(ctx context.Context) error {
	if err := i.check(); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, err := i.DB.NewDelete().Model((*entryModel)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		return pagecache.NewError(pagecache.KindStorage, "clear cache index", err)
	}
	return nil
}

func (i *Index) replace(ctx context.Context, db bun.IDB, entries map[string]string) error {
	if _, err := db.NewDelete().Model((*entryModel)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		return pagecache.NewError(pagecache.KindStorage, "reset cache index", err)
	}
	if len(entries) == 0 {
		return nil
	}

	now := i.now()
	models := make([]entryModel, 0, len(entries))
	for url, filename := range entries {
		models = append(models, entryModel{URL: url, Filename: filename, CreatedAt: now})
	}
	if _, err := db.NewInsert().Model(&models).Exec(ctx); err != nil {
		return pagecache.NewError(pagecache.KindStorage, "write cache index", err)
	}
	return nil
}

func readEntries(ctx context.Context, db bun.IDB) (map[string]string, error) {
	models := make([]entryModel, 0)
	if err := db.NewSelect().Model(&models).Scan(ctx); err != nil {
		return nil, pagecache.NewError(pagecache.KindStorage, "read cache index", err)
	}
	entries := make(map[string]string, len(models))
	for _, model := range models {
		if model.Filename == "" {
			return nil, pagecache.NewError(pagecache.KindIndexCorrupt, "cache index row has no filename", nil)
		}
		entries[model.URL] = model.Filename
	}
	return entries, nil
}

func (i *Index) check() error {
	if i == nil || i.DB == nil {
		return pagecache.NewError(pagecache.KindInternal, "index database not configured", nil)
	}
	return nil
}

func (i *Index) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

type entryModel struct {
	bun.BaseModel `bun:"table:page_cache_entries,alias:page_cache_entries"`

	URL       string    `bun:"url,pk"`
	Filename  string    `bun:"filename,notnull"`
	CreatedAt time.Time `bun:"created_at"`
}
