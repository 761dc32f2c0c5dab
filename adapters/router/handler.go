package pagecacherouter

import (
	"github.com/goliatone/go-pagecache/adapters/pagecacheapi"
	"github.com/goliatone/go-pagecache/pagecache"
	"github.com/goliatone/go-router"
)

// Config configures the go-router adapter.
type Config = pagecacheapi.Config

// Handler exposes the page cache endpoint for go-router.
type Handler struct {
	controller *pagecacheapi.Controller
}

// NewHandler creates a go-router handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: pagecacheapi.NewController(cfg)}
}

// RegisterRoutes registers the endpoint on a compatible go-router router.
// Methods other than GET and DELETE are routed too so they receive the
// envelope-shaped 405 instead of the router's default.
func (h *Handler) RegisterRoutes(router any) {
	r, ok := router.(routeRegistrar)
	if !ok {
		return
	}
	base := h.basePath()

	r.Get(base, h.Handle)
	r.Delete(base, h.Handle)
	r.Post(base, h.Handle)
	if extra, ok := router.(updateRegistrar); ok {
		extra.Put(base, h.Handle)
		extra.Patch(base, h.Handle)
	}
}

// Handle executes the shared render/clear workflow.
func (h *Handler) Handle(c router.Context) error {
	if c == nil {
		return nil
	}
	if h == nil || h.controller == nil {
		pagecacheapi.WriteError(routerResponse{ctx: c}, pagecache.NewError(pagecache.KindInternal, "handler is nil", nil))
		return nil
	}
	h.controller.Serve(routerRequest{ctx: c}, routerResponse{ctx: c})
	return nil
}

func (h *Handler) basePath() string {
	if h == nil || h.controller == nil || h.controller.BasePath() == "" {
		return pagecacheapi.DefaultBasePath
	}
	return h.controller.BasePath()
}

type routeRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

type updateRegistrar interface {
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Patch(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}
