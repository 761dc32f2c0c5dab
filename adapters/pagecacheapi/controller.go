package pagecacheapi

import (
	"net/http"
	"strings"
	"time"

	errorslib "github.com/goliatone/go-errors"
	"github.com/goliatone/go-pagecache/pagecache"
)

const (
	// DefaultBasePath is the endpoint the adapters register when none is configured.
	DefaultBasePath = "/api/pdf"

	messageCacheCleared     = "Cache Cleared"
	messageMethodNotAllowed = "Method Not Allowed"
	allowedMethods          = "GET, DELETE"
)

// Config configures the shared page cache controller.
type Config struct {
	Service  pagecache.Service
	BasePath string
	Logger   pagecache.Logger
	Now      func() time.Time
}

// Controller serves the render/clear endpoint for multiple transports.
type Controller struct {
	service  pagecache.Service
	basePath string
	logger   pagecache.Logger
	now      func() time.Time
}

// NewController creates a shared controller.
func NewController(cfg Config) *Controller {
	basePath := strings.TrimRight(cfg.BasePath, "/")
	if basePath == "" {
		basePath = DefaultBasePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pagecache.NopLogger{}
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Controller{
		service:  cfg.Service,
		basePath: basePath,
		logger:   logger,
		now:      nowFn,
	}
}

// BasePath returns the configured endpoint path.
func (c *Controller) BasePath() string {
	if c == nil {
		return ""
	}
	return c.basePath
}

// Serve dispatches on the request method.
func (c *Controller) Serve(req Request, res Response) {
	if res == nil {
		return
	}
	if c == nil || c.service == nil {
		WriteError(res, pagecache.NewError(pagecache.KindInternal, "handler is nil", nil))
		return
	}
	if req == nil {
		WriteError(res, pagecache.NewError(pagecache.KindInternal, "request is nil", nil))
		return
	}

	switch req.Method() {
	case http.MethodGet:
		c.handleRender(req, res)
	case http.MethodDelete:
		c.handleClear(req, res)
	default:
		res.SetHeader("Allow", allowedMethods)
		WriteError(res, pagecache.NewError(pagecache.KindMethodNotAllowed, messageMethodNotAllowed, nil))
	}
}

func (c *Controller) handleRender(req Request, res Response) {
	start := c.now()
	result, err := c.service.Render(req.Context(), req.RawQuery())
	if err != nil {
		if pagecache.CodeFromError(err) == pagecache.CodeTargetRequired {
			c.writeMissingTarget(req, res, err)
			return
		}
		c.logger.Errorf("pagecache: render request failed: %v", err)
		WriteError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, Envelope{
		Data: RenderData{
			URL:         result.URL,
			PsdURL:      result.PublicURL,
			PDFFileName: result.Filename,
			TimeTaken:   c.now().Sub(start).Milliseconds(),
		},
		IsSuccess: true,
	})
}

func (c *Controller) writeMissingTarget(req Request, res Response, err error) {
	body := errorBody(err)
	if entries, readErr := c.service.Entries(req.Context()); readErr == nil {
		body.Cache = entries
	} else {
		c.logger.Errorf("pagecache: cache index unreadable: %v", readErr)
	}
	writeJSON(res, statusForError(pagecache.AsGoError(err)), Envelope{Error: &body})
}

func (c *Controller) handleClear(req Request, res Response) {
	removed, err := c.service.Clear(req.Context())
	if err != nil {
		c.logger.Errorf("pagecache: clear failed: %v", err)
		WriteError(res, err)
		return
	}
	c.logger.Debugf("pagecache: clear removed %d artifact(s)", removed)
	writeJSON(res, http.StatusOK, Envelope{
		Data:      MessageData{Message: messageCacheCleared},
		IsSuccess: true,
	})
}

// WriteError writes the failure envelope with the status mapped from err.
func WriteError(res Response, err error) {
	if err == nil {
		err = pagecache.NewError(pagecache.KindInternal, "unknown error", nil)
	}
	body := errorBody(err)
	writeJSON(res, statusForError(pagecache.AsGoError(err)), Envelope{Error: &body})
}

// errorBody uses the short message for client errors and the full chain
// otherwise, so server failures carry the underlying cause.
func errorBody(err error) ErrorBody {
	ge := pagecache.AsGoError(err)
	if statusForError(ge) < http.StatusInternalServerError {
		return ErrorBody{Message: ge.Message}
	}
	return ErrorBody{Message: err.Error()}
}

func writeJSON(res Response, status int, payload any) {
	_ = res.WriteJSON(status, payload)
}

func statusForError(err *errorslib.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	if err.TextCode == "method_not_allowed" {
		return http.StatusMethodNotAllowed
	}
	switch err.Category {
	case errorslib.CategoryValidation:
		return http.StatusBadRequest
	case errorslib.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
