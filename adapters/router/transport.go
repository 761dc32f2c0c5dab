package pagecacherouter

import (
	"context"
	"strings"

	"github.com/goliatone/go-pagecache/adapters/pagecacheapi"
	"github.com/goliatone/go-router"
)

var (
	_ pagecacheapi.Request  = routerRequest{}
	_ pagecacheapi.Response = routerResponse{}
)

type routerRequest struct {
	ctx router.Context
}

func (req routerRequest) Context() context.Context {
	if req.ctx == nil {
		return context.Background()
	}
	return req.ctx.Context()
}

func (req routerRequest) Method() string {
	if req.ctx == nil {
		return ""
	}
	return req.ctx.Method()
}

// RawQuery prefers the underlying *http.Request and falls back to the
// original request URI so parameter order is kept on every adapter.
func (req routerRequest) RawQuery() string {
	if req.ctx == nil {
		return ""
	}
	if httpCtx, ok := router.AsHTTPContext(req.ctx); ok {
		if httpReq := httpCtx.Request(); httpReq != nil && httpReq.URL != nil {
			return httpReq.URL.RawQuery
		}
	}
	raw := strings.TrimSpace(req.ctx.OriginalURL())
	_, query, found := strings.Cut(raw, "?")
	if !found {
		return ""
	}
	query, _, _ = strings.Cut(query, "#")
	return query
}

type routerResponse struct {
	ctx router.Context
}

func (res routerResponse) SetHeader(name, value string) {
	if res.ctx == nil {
		return
	}
	res.ctx.SetHeader(name, value)
}

func (res routerResponse) WriteJSON(status int, payload any) error {
	if res.ctx == nil {
		return nil
	}
	return res.ctx.JSON(status, payload)
}
