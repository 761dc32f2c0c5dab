package indexjson

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goliatone/go-pagecache/pagecache"
)

var _ pagecache.Index = (*Index)(nil)

// Index persists the cache mapping as a single JSON document.
//
// The document is loaded on every read and rewritten in full on every write.
// Update holds the instance mutex across its read and write; separate
// processes sharing the file are not coordinated.
type Index struct {
	Path string

	mu sync.Mutex
}

// NewIndex creates a JSON index backed by path.
func NewIndex(path string) *Index {
	return &Index{Path: filepath.Clean(path)}
}

// Read loads the mapping. A missing document is an empty mapping.
func (i *Index) Read(ctx context.Context) (map[string]string, error) {
	_ = ctx
	if err := i.check(); err != nil {
		return nil, err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.load()
}

// Write replaces the whole document.
func (i *Index) Write(ctx context.Context, entries map[string]string) error {
	_ = ctx
	if err := i.check(); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.save(entries)
}

// Update reads, applies fn and writes back under one lock.
func (i *Index) Update(ctx context.Context, fn func(entries map[string]string) error) error {
	_ = ctx
	if err := i.check(); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	entries, err := i.load()
	if err != nil {
		return err
	}
	if err := fn(entries); err != nil {
		return err
	}
	return i.save(entries)
}

// Clear removes the document.
func (i *Index) Clear(ctx context.Context) error {
	_ = ctx
	if err := i.check(); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := os.Remove(i.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return pagecache.NewError(pagecache.KindStorage, "remove cache index", err)
	}
	return nil
}

func (i *Index) load() (map[string]string, error) {
	//nolint:gosec // path comes from trusted configuration
	data, err := os.ReadFile(i.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, pagecache.NewError(pagecache.KindStorage, "read cache index", err)
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, pagecache.NewError(pagecache.KindIndexCorrupt, "cache index is corrupt", err)
	}
	if entries == nil {
		entries = make(map[string]string)
	}
	return entries, nil
}

func (i *Index) save(entries map[string]string) error {
	if entries == nil {
		entries = map[string]string{}
	}
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return pagecache.NewError(pagecache.KindInternal, "encode cache index", err)
	}

	dir := filepath.Dir(i.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pagecache.NewError(pagecache.KindStorage, "create cache index directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".index-*")
	if err != nil {
		return pagecache.NewError(pagecache.KindStorage, "create cache index", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(payload); err != nil {
		return pagecache.NewError(pagecache.KindStorage, "write cache index", err)
	}
	if err := tmp.Sync(); err != nil {
		return pagecache.NewError(pagecache.KindStorage, "sync cache index", err)
	}
	if err := tmp.Close(); err != nil {
		return pagecache.NewError(pagecache.KindStorage, "close cache index", err)
	}
	if err := os.Rename(tmp.Name(), i.Path); err != nil {
		return pagecache.NewError(pagecache.KindStorage, "commit cache index", err)
	}
	return nil
}

func (i *Index) check() error {
	if i == nil {
		return pagecache.NewError(pagecache.KindInternal, "index is nil", nil)
	}
	if i.Path == "" || i.Path == "." {
		return pagecache.NewError(pagecache.KindValidation, "index path is required", nil)
	}
	return nil
}
