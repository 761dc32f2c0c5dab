package pagecache

import (
	"context"
	"io"
	"time"
)

// DefaultTargetParam is the reserved query parameter naming the path to render.
const DefaultTargetParam = "targetPath"

// DefaultArtifactExt is appended to generated artifact names.
const DefaultArtifactExt = ".pdf"

// ParamOrder controls how forwarded query parameters are ordered in the cache key.
type ParamOrder string

const (
	// ParamOrderRequest keeps parameters in the order the request carried them.
	ParamOrderRequest ParamOrder = "request"
	// ParamOrderSorted sorts parameters by key, then by position.
	ParamOrderSorted ParamOrder = "sorted"
)

// Param is a single forwarded query parameter.
type Param struct {
	Key   string
	Value string
}

// Target is the canonical render target derived from a request.
type Target struct {
	BaseURL string
	Path    string
	Params  []Param
}

// PDFOptions configures PDF export.
type PDFOptions struct {
	PageSize          string
	Landscape         *bool
	PrintBackground   *bool
	Scale             float64
	MarginTop         string
	MarginBottom      string
	MarginLeft        string
	MarginRight       string
	PreferCSSPageSize *bool
}

// RenderRequest describes a single page render.
type RenderRequest struct {
	URL string
	PDF PDFOptions
}

// Engine renders an addressable page into PDF bytes.
type Engine interface {
	Render(ctx context.Context, req RenderRequest) ([]byte, error)
}

// EngineFunc adapts a function to an Engine.
type EngineFunc func(ctx context.Context, req RenderRequest) ([]byte, error)

func (f EngineFunc) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	if f == nil {
		return nil, NewError(KindInternal, "engine func is nil", nil)
	}
	return f(ctx, req)
}

// Artifact describes a stored render output.
type Artifact struct {
	Name      string
	Path      string
	Size      int64
	CreatedAt time.Time
}

// ArtifactStore manages the artifact directory.
type ArtifactStore interface {
	EnsureDir(ctx context.Context) error
	Put(ctx context.Context, name string, r io.Reader) (Artifact, error)
	Delete(ctx context.Context, name string) error
	Purge(ctx context.Context) (int, error)
}

// Index is the durable canonical URL to artifact name mapping.
//
// Update performs a read-modify-write that implementations serialize so
// concurrent callers in the same process never lose updates.
type Index interface {
	Read(ctx context.Context) (map[string]string, error)
	Write(ctx context.Context, entries map[string]string) error
	Update(ctx context.Context, fn func(entries map[string]string) error) error
	Clear(ctx context.Context) error
}

// Result describes a served render.
type Result struct {
	URL       string
	PublicURL string
	Filename  string
	Cached    bool
	Shared    bool
	Duration  time.Duration
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
