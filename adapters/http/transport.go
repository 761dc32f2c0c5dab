package pagecachehttp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/goliatone/go-pagecache/adapters/pagecacheapi"
)

type httpRequest struct {
	r *http.Request
}

func (req httpRequest) Context() context.Context {
	if req.r == nil {
		return context.Background()
	}
	return req.r.Context()
}

func (req httpRequest) Method() string {
	if req.r == nil {
		return ""
	}
	return req.r.Method
}

func (req httpRequest) RawQuery() string {
	if req.r == nil || req.r.URL == nil {
		return ""
	}
	return req.r.URL.RawQuery
}

type httpResponse struct {
	w http.ResponseWriter
}

func (res httpResponse) SetHeader(name, value string) {
	if res.w == nil {
		return
	}
	res.w.Header().Set(name, value)
}

func (res httpResponse) WriteJSON(status int, payload any) error {
	if res.w == nil {
		return nil
	}
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	return json.NewEncoder(res.w).Encode(payload)
}

var (
	_ pagecacheapi.Request  = httpRequest{}
	_ pagecacheapi.Response = httpResponse{}
)
