package query

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// CacheEntries requests the full index mapping.
type CacheEntries struct{}

func (CacheEntries) Type() string { return "pagecache:entries" }

func (CacheEntries) Validate() error { return nil }

// CacheEntry requests the artifact name cached for a canonical URL.
type CacheEntry struct {
	URL string
}

func (CacheEntry) Type() string { return "pagecache:entry" }

func (msg CacheEntry) Validate() error {
	if strings.TrimSpace(msg.URL) == "" {
		return errors.New("url is required", errors.CategoryValidation).
			WithTextCode("URL_REQUIRED")
	}
	return nil
}
