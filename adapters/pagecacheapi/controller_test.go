package pagecacheapi

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-pagecache/pagecache"
)

type stubRequest struct {
	method string
	query  string
}

func (r stubRequest) Context() context.Context { return context.Background() }
func (r stubRequest) Method() string           { return r.method }
func (r stubRequest) RawQuery() string         { return r.query }

type recordedResponse struct {
	headers map[string]string
	status  int
	payload any
}

func newRecordedResponse() *recordedResponse {
	return &recordedResponse{headers: map[string]string{}}
}

func (r *recordedResponse) SetHeader(name, value string) { r.headers[name] = value }

func (r *recordedResponse) WriteJSON(status int, payload any) error {
	r.status = status
	r.payload = payload
	return nil
}

func (r *recordedResponse) envelope(t *testing.T) Envelope {
	t.Helper()
	env, ok := r.payload.(Envelope)
	if !ok {
		t.Fatalf("expected Envelope payload, got %T", r.payload)
	}
	return env
}

type stubService struct {
	result  pagecache.Result
	err     error
	entries map[string]string
	cleared int
	queries []string
}

func (s *stubService) Render(ctx context.Context, rawQuery string) (pagecache.Result, error) {
	_ = ctx
	s.queries = append(s.queries, rawQuery)
	if s.err != nil {
		return pagecache.Result{}, s.err
	}
	if _, err := pagecache.ParseTarget(rawQuery, pagecache.TargetOptions{BaseURL: "http://localhost:3000"}); err != nil {
		return pagecache.Result{}, err
	}
	return s.result, nil
}

func (s *stubService) RenderTarget(ctx context.Context, target pagecache.Target) (pagecache.Result, error) {
	return s.Render(ctx, target.Query())
}

func (s *stubService) Clear(ctx context.Context) (int, error) {
	_ = ctx
	s.cleared++
	return 2, s.err
}

func (s *stubService) Entries(ctx context.Context) (map[string]string, error) {
	_ = ctx
	return s.entries, nil
}

func steppingClock(step time.Duration) func() time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		current := now
		now = now.Add(step)
		return current
	}
}

func TestController_RenderSuccess(t *testing.T) {
	svc := &stubService{result: pagecache.Result{
		URL:       "http://localhost:3000/invoice?id=1",
		PublicURL: "http://localhost:3000/pdfS/abc.pdf",
		Filename:  "abc.pdf",
	}}
	controller := NewController(Config{Service: svc, Now: steppingClock(1500 * time.Millisecond)})
	res := newRecordedResponse()

	controller.Serve(stubRequest{method: http.MethodGet, query: "targetPath=/invoice&id=1"}, res)

	if res.status != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.status)
	}
	env := res.envelope(t)
	if !env.IsSuccess || env.Error != nil {
		t.Fatalf("expected success envelope, got %+v", env)
	}
	data, ok := env.Data.(RenderData)
	if !ok {
		t.Fatalf("expected RenderData, got %T", env.Data)
	}
	if data.URL != "http://localhost:3000/invoice?id=1" || data.PsdURL != "http://localhost:3000/pdfS/abc.pdf" || data.PDFFileName != "abc.pdf" {
		t.Fatalf("unexpected data %+v", data)
	}
	if data.TimeTaken != 1500 {
		t.Fatalf("expected 1500ms, got %d", data.TimeTaken)
	}
	if svc.queries[0] != "targetPath=/invoice&id=1" {
		t.Fatalf("expected raw query to be forwarded untouched, got %q", svc.queries[0])
	}
}

func TestController_MissingTargetIncludesCache(t *testing.T) {
	svc := &stubService{entries: map[string]string{"http://localhost:3000/a": "a.pdf"}}
	controller := NewController(Config{Service: svc})
	res := newRecordedResponse()

	controller.Serve(stubRequest{method: http.MethodGet, query: "id=1"}, res)

	if res.status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.status)
	}
	env := res.envelope(t)
	if env.IsSuccess || env.Error == nil {
		t.Fatalf("expected failure envelope, got %+v", env)
	}
	if env.Error.Message != "targetPath is required" {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
	cache, ok := env.Error.Cache.(map[string]string)
	if !ok || cache["http://localhost:3000/a"] != "a.pdf" {
		t.Fatalf("expected cache mapping, got %#v", env.Error.Cache)
	}
}

func TestController_InvalidTarget(t *testing.T) {
	controller := NewController(Config{Service: &stubService{}})
	res := newRecordedResponse()

	controller.Serve(stubRequest{method: http.MethodGet, query: "targetPath=invoice"}, res)

	if res.status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.status)
	}
	env := res.envelope(t)
	if env.Error.Message != "Target path should start with /" {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
	if env.Error.Cache != nil {
		t.Fatalf("expected no cache on malformed target, got %#v", env.Error.Cache)
	}
}

func TestController_RenderFailureCarriesCause(t *testing.T) {
	svc := &stubService{err: pagecache.NewError(pagecache.KindRender, "render failed", errors.New("net::ERR_CONNECTION_REFUSED"))}
	controller := NewController(Config{Service: svc})
	res := newRecordedResponse()

	controller.Serve(stubRequest{method: http.MethodGet, query: "targetPath=/x"}, res)

	if res.status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.status)
	}
	env := res.envelope(t)
	if env.Error.Message != "render failed: net::ERR_CONNECTION_REFUSED" {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
}

func TestController_IndexCorruptIsServerError(t *testing.T) {
	svc := &stubService{err: pagecache.NewError(pagecache.KindIndexCorrupt, "cache index is corrupt", errors.New("unexpected end of JSON input"))}
	controller := NewController(Config{Service: svc})
	res := newRecordedResponse()

	controller.Serve(stubRequest{method: http.MethodGet, query: "targetPath=/x"}, res)

	if res.status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.status)
	}
}

func TestController_Clear(t *testing.T) {
	svc := &stubService{}
	controller := NewController(Config{Service: svc})
	res := newRecordedResponse()

	controller.Serve(stubRequest{method: http.MethodDelete}, res)

	if res.status != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.status)
	}
	env := res.envelope(t)
	data, ok := env.Data.(MessageData)
	if !ok || data.Message != "Cache Cleared" {
		t.Fatalf("unexpected data %#v", env.Data)
	}
	if svc.cleared != 1 {
		t.Fatalf("expected clear to run once, got %d", svc.cleared)
	}
}

func TestController_MethodNotAllowed(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch} {
		svc := &stubService{}
		controller := NewController(Config{Service: svc})
		res := newRecordedResponse()

		controller.Serve(stubRequest{method: method, query: "targetPath=/x"}, res)

		if res.status != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected 405, got %d", method, res.status)
		}
		env := res.envelope(t)
		if env.IsSuccess || env.Error == nil || env.Error.Message != "Method Not Allowed" {
			t.Fatalf("%s: unexpected envelope %+v", method, env)
		}
		if res.headers["Allow"] != "GET, DELETE" {
			t.Fatalf("%s: expected Allow header, got %q", method, res.headers["Allow"])
		}
		if len(svc.queries) != 0 || svc.cleared != 0 {
			t.Fatalf("%s: expected no side effects", method)
		}
	}
}

func TestController_NilService(t *testing.T) {
	controller := NewController(Config{})
	res := newRecordedResponse()
	controller.Serve(stubRequest{method: http.MethodGet}, res)
	if res.status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.status)
	}
	if controller.BasePath() != DefaultBasePath {
		t.Fatalf("expected default base path, got %q", controller.BasePath())
	}
}
