package pagecachehttp

import (
	"net/http"

	"github.com/goliatone/go-pagecache/adapters/pagecacheapi"
	"github.com/goliatone/go-pagecache/pagecache"
)

// Config configures the HTTP adapter.
type Config = pagecacheapi.Config

// Handler exposes the page cache endpoint over net/http.
type Handler struct {
	controller *pagecacheapi.Controller
}

// NewHandler creates a new HTTP handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: pagecacheapi.NewController(cfg)}
}

// RegisterRoutes registers the endpoint on a compatible router.
func (h *Handler) RegisterRoutes(router any) {
	switch r := router.(type) {
	case interface{ Handle(string, http.Handler) }:
		r.Handle(h.basePath(), h)
	case interface {
		HandleFunc(string, func(http.ResponseWriter, *http.Request))
	}:
		r.HandleFunc(h.basePath(), h.ServeHTTP)
	}
}

// ServeHTTP dispatches the request to the shared controller.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	if h == nil || h.controller == nil {
		pagecacheapi.WriteError(httpResponse{w: w}, pagecache.NewError(pagecache.KindInternal, "handler is nil", nil))
		return
	}
	h.controller.Serve(httpRequest{r: r}, httpResponse{w: w})
}

func (h *Handler) basePath() string {
	if h == nil || h.controller == nil || h.controller.BasePath() == "" {
		return pagecacheapi.DefaultBasePath
	}
	return h.controller.BasePath()
}
