package command

import (
	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-pagecache/pagecache"
	"github.com/goliatone/go-pagecache/query"
)

// Handlers groups the command and query handlers built for a service.
type Handlers struct {
	Render  *RenderPageHandler
	Clear   *ClearCacheHandler
	Entries *query.CacheEntriesHandler
	Entry   *query.CacheEntryHandler
}

// NewHandlers builds every handler for svc.
func NewHandlers(svc pagecache.Service) Handlers {
	return Handlers{
		Render:  NewRenderPageHandler(svc),
		Clear:   NewClearCacheHandler(svc),
		Entries: query.NewCacheEntriesHandler(svc),
		Entry:   query.NewCacheEntryHandler(svc),
	}
}

// RegisterHandlers subscribes the page cache commands and queries to the
// global dispatcher and, when reg is set, registers them with the registry.
// Callers unsubscribe the returned subscriptions on shutdown.
func RegisterHandlers(reg *gcmd.Registry, svc pagecache.Service) ([]dispatcher.Subscription, error) {
	if svc == nil {
		return nil, errors.New("pagecache service is required", errors.CategoryValidation).
			WithTextCode("SERVICE_REQUIRED")
	}

	handlers := NewHandlers(svc)
	subscriptions := []dispatcher.Subscription{
		dispatcher.SubscribeCommand(handlers.Render),
		dispatcher.SubscribeCommand(handlers.Clear),
		dispatcher.SubscribeQuery(handlers.Entries),
		dispatcher.SubscribeQuery(handlers.Entry),
	}

	if reg != nil {
		registered := []any{
			handlers.Render,
			handlers.Clear,
			handlers.Entries,
			handlers.Entry,
		}
		for _, handler := range registered {
			if err := reg.RegisterCommand(handler); err != nil {
				return subscriptions, err
			}
		}
	}

	return subscriptions, nil
}
