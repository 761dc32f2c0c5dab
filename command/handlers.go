package command

import (
	"context"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-pagecache/pagecache"
)

// RenderPageHandler handles render requests.
type RenderPageHandler struct {
	Service pagecache.Service
}

func NewRenderPageHandler(svc pagecache.Service) *RenderPageHandler {
	return &RenderPageHandler{Service: svc}
}

func (h *RenderPageHandler) Execute(ctx context.Context, msg RenderPage) error {
	if h == nil || h.Service == nil {
		return errors.New("pagecache service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	result, err := h.Service.Render(ctx, msg.Query)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = result
	}
	if res := gcmd.ResultFromContext[pagecache.Result](ctx); res != nil {
		res.Store(result)
	}
	return nil
}

// ClearCacheHandler clears the cache. It can run on a schedule.
type ClearCacheHandler struct {
	Service pagecache.Service
	Config  gcmd.HandlerConfig
}

func NewClearCacheHandler(svc pagecache.Service) *ClearCacheHandler {
	return &ClearCacheHandler{Service: svc}
}

func (h *ClearCacheHandler) Execute(ctx context.Context, msg ClearCache) error {
	if h == nil || h.Service == nil {
		return errors.New("pagecache service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	removed, err := h.Service.Clear(ctx)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = removed
	}
	if res := gcmd.ResultFromContext[int](ctx); res != nil {
		res.Store(removed)
	}
	return nil
}

func (h *ClearCacheHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), ClearCache{})
	}
}

func (h *ClearCacheHandler) CronOptions() gcmd.HandlerConfig {
	return h.Config
}
