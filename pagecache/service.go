package pagecache

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Service coordinates canonicalization, cache lookup and rendering.
type Service interface {
	// Render validates a raw request query and serves the matching artifact.
	Render(ctx context.Context, rawQuery string) (Result, error)
	// RenderTarget serves an already canonicalized target.
	RenderTarget(ctx context.Context, target Target) (Result, error)
	// Clear purges every artifact and resets the index.
	Clear(ctx context.Context) (int, error)
	// Entries returns the current index mapping.
	Entries(ctx context.Context) (map[string]string, error)
}

// ServiceConfig supplies dependencies for Service.
type ServiceConfig struct {
	Engine Engine
	Store  ArtifactStore
	Index  Index

	BaseURL       string
	TargetParam   string
	ParamOrder    ParamOrder
	PublicBaseURL string
	PDF           PDFOptions

	// DisableDedupe lets concurrent misses for one key render independently.
	DisableDedupe bool

	Logger        Logger
	Now           func() time.Time
	NameGenerator func() string
}

type service struct {
	engine Engine
	store  ArtifactStore
	index  Index

	targetOpts    TargetOptions
	publicBaseURL string
	pdf           PDFOptions
	dedupe        bool

	logger  Logger
	now     func() time.Time
	newName func() string

	// commit is held shared while a render stores its artifact and index
	// entry, and exclusively by Clear.
	commit sync.RWMutex
	group  singleflight.Group
}

// NewService creates a Service with the provided configuration.
func NewService(cfg ServiceConfig) Service {
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger{}
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	nameGen := cfg.NameGenerator
	if nameGen == nil {
		nameGen = DefaultNameGenerator
	}
	order := cfg.ParamOrder
	if order == "" {
		order = ParamOrderRequest
	}

	return &service{
		engine: cfg.Engine,
		store:  cfg.Store,
		index:  cfg.Index,
		targetOpts: TargetOptions{
			BaseURL:     cfg.BaseURL,
			TargetParam: cfg.TargetParam,
			Order:       order,
		},
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		pdf:           cfg.PDF,
		dedupe:        !cfg.DisableDedupe,
		logger:        logger,
		now:           nowFn,
		newName:       nameGen,
	}
}

// DefaultNameGenerator returns a random artifact file name.
func DefaultNameGenerator() string {
	return uuid.NewString() + DefaultArtifactExt
}

func (s *service) Render(ctx context.Context, rawQuery string) (Result, error) {
	if s == nil {
		return Result{}, NewError(KindInternal, "service is nil", nil)
	}
	target, err := ParseTarget(rawQuery, s.targetOpts)
	if err != nil {
		return Result{}, err
	}
	return s.RenderTarget(ctx, target)
}

func (s *service) RenderTarget(ctx context.Context, target Target) (Result, error) {
	if s == nil {
		return Result{}, NewError(KindInternal, "service is nil", nil)
	}
	if err := s.validate(); err != nil {
		return Result{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := s.now()
	key := target.URL()

	entries, err := s.index.Read(ctx)
	if err != nil {
		return Result{}, wrapError(KindStorage, "cache index read failed", err)
	}
	if name, ok := entries[key]; ok {
		s.logger.Debugf("pagecache: hit %s -> %s", key, name)
		return s.result(key, name, start, true, false), nil
	}

	// Once started a render runs to completion or failure. Callers that go
	// away only stop waiting for it.
	renderCtx := context.WithoutCancel(ctx)

	if !s.dedupe {
		outcome, err := s.renderMiss(renderCtx, key, false)
		if err != nil {
			return Result{}, err
		}
		return s.result(key, outcome.name, start, outcome.cached, false), nil
	}

	flight := s.group.DoChan(key, func() (any, error) {
		return s.renderMiss(renderCtx, key, true)
	})
	select {
	case res := <-flight:
		if res.Err != nil {
			return Result{}, res.Err
		}
		outcome := res.Val.(missOutcome)
		return s.result(key, outcome.name, start, outcome.cached, res.Shared), nil
	case <-ctx.Done():
		return Result{}, wrapError(KindCanceled, "request canceled", ctx.Err())
	}
}

type missOutcome struct {
	name   string
	cached bool
}

func (s *service) renderMiss(ctx context.Context, key string, recheck bool) (missOutcome, error) {
	// A flight that completed between our lookup and Do already committed.
	if recheck {
		entries, err := s.index.Read(ctx)
		if err != nil {
			return missOutcome{}, wrapError(KindStorage, "cache index read failed", err)
		}
		if name, ok := entries[key]; ok {
			return missOutcome{name: name, cached: true}, nil
		}
	}

	if err := s.store.EnsureDir(ctx); err != nil {
		return missOutcome{}, wrapError(KindStorage, "artifact directory unavailable", err)
	}

	name := s.newName()
	s.logger.Infof("pagecache: rendering %s", key)
	pdf, err := s.engine.Render(ctx, RenderRequest{URL: key, PDF: s.pdf})
	if err != nil {
		s.logger.Errorf("pagecache: render %s failed: %v", key, err)
		return missOutcome{}, wrapError(KindRender, "render failed", err)
	}

	s.commit.RLock()
	defer s.commit.RUnlock()

	if _, err := s.store.Put(ctx, name, bytes.NewReader(pdf)); err != nil {
		return missOutcome{}, wrapError(KindStorage, "artifact write failed", err)
	}

	winner := name
	err = s.index.Update(ctx, func(entries map[string]string) error {
		if existing, ok := entries[key]; ok {
			winner = existing
			return nil
		}
		entries[key] = name
		return nil
	})
	if err != nil {
		s.discard(ctx, name)
		return missOutcome{}, wrapError(KindStorage, "cache index update failed", err)
	}
	if winner != name {
		s.discard(ctx, name)
		return missOutcome{name: winner, cached: true}, nil
	}

	s.logger.Infof("pagecache: stored %s -> %s (%d bytes)", key, name, len(pdf))
	return missOutcome{name: name}, nil
}

func (s *service) discard(ctx context.Context, name string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), name); err != nil {
		s.logger.Errorf("pagecache: discard artifact %s failed: %v", name, err)
	}
}

func (s *service) Clear(ctx context.Context) (int, error) {
	if s == nil {
		return 0, NewError(KindInternal, "service is nil", nil)
	}
	if s.store == nil || s.index == nil {
		return 0, NewError(KindInternal, "store and index are required", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.commit.Lock()
	defer s.commit.Unlock()

	// Index first: a failure in between leaves unreferenced files, never
	// entries pointing at missing files.
	if err := s.index.Clear(ctx); err != nil {
		return 0, wrapError(KindStorage, "cache index clear failed", err)
	}
	removed, err := s.store.Purge(ctx)
	if err != nil {
		return removed, wrapError(KindStorage, "artifact purge failed", err)
	}

	s.logger.Infof("pagecache: cache cleared, %d artifact(s) removed", removed)
	return removed, nil
}

func (s *service) Entries(ctx context.Context) (map[string]string, error) {
	if s == nil || s.index == nil {
		return nil, NewError(KindInternal, "index is required", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := s.index.Read(ctx)
	if err != nil {
		return nil, wrapError(KindStorage, "cache index read failed", err)
	}
	return entries, nil
}

func (s *service) validate() error {
	if s.engine == nil {
		return NewError(KindInternal, "render engine is required", nil)
	}
	if s.store == nil {
		return NewError(KindInternal, "artifact store is required", nil)
	}
	if s.index == nil {
		return NewError(KindInternal, "cache index is required", nil)
	}
	return nil
}

func (s *service) result(key, name string, start time.Time, cached, shared bool) Result {
	return Result{
		URL:       key,
		PublicURL: s.publicBaseURL + "/" + name,
		Filename:  name,
		Cached:    cached,
		Shared:    shared,
		Duration:  s.now().Sub(start),
	}
}

// wrapError keeps typed errors intact and classifies everything else.
func wrapError(kind ErrorKind, msg string, err error) error {
	var pcErr *Error
	if errors.As(err, &pcErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewError(KindFromError(err), msg, err)
	}
	return NewError(kind, msg, err)
}
