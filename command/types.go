package command

import (
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-pagecache/pagecache"
)

// RenderPage serves a page from the cache, rendering it on a miss.
type RenderPage struct {
	// Query is the raw request query, e.g. "targetPath=/invoice&id=42".
	Query  string
	Result *pagecache.Result
}

func (RenderPage) Type() string { return "pagecache:render" }

func (msg RenderPage) Validate() error {
	if strings.TrimSpace(msg.Query) == "" {
		return errors.New("query is required", errors.CategoryValidation).
			WithTextCode("QUERY_REQUIRED")
	}
	return nil
}

// ClearCache purges every artifact and resets the index.
type ClearCache struct {
	Result *int
}

func (ClearCache) Type() string { return "pagecache:clear" }

func (ClearCache) Validate() error { return nil }
