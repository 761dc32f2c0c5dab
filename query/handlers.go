package query

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-pagecache/pagecache"
)

// EntryReader reads the cache index.
type EntryReader interface {
	Entries(ctx context.Context) (map[string]string, error)
}

// CacheEntriesHandler returns the index mapping.
type CacheEntriesHandler struct {
	Service EntryReader
}

func NewCacheEntriesHandler(svc EntryReader) *CacheEntriesHandler {
	return &CacheEntriesHandler{Service: svc}
}

func (h *CacheEntriesHandler) Query(ctx context.Context, msg CacheEntries) (map[string]string, error) {
	_ = msg
	if h == nil || h.Service == nil {
		return nil, errors.New("pagecache service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.Entries(ctx)
}

// CacheEntryHandler resolves one canonical URL to its artifact name.
type CacheEntryHandler struct {
	Service EntryReader
}

func NewCacheEntryHandler(svc EntryReader) *CacheEntryHandler {
	return &CacheEntryHandler{Service: svc}
}

func (h *CacheEntryHandler) Query(ctx context.Context, msg CacheEntry) (string, error) {
	if h == nil || h.Service == nil {
		return "", errors.New("pagecache service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	entries, err := h.Service.Entries(ctx)
	if err != nil {
		return "", err
	}
	name, ok := entries[msg.URL]
	if !ok {
		return "", pagecache.NewError(pagecache.KindNotFound, fmt.Sprintf("no cached artifact for %s", msg.URL), nil)
	}
	return name, nil
}
