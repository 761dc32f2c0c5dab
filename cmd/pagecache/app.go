package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-pagecache/adapters/chromium"
	indexbun "github.com/goliatone/go-pagecache/adapters/index/bun"
	indexjson "github.com/goliatone/go-pagecache/adapters/index/jsonfile"
	logzerolog "github.com/goliatone/go-pagecache/adapters/logging/zerolog"
	storefs "github.com/goliatone/go-pagecache/adapters/store/fs"
	pagecachecmd "github.com/goliatone/go-pagecache/command"
	"github.com/goliatone/go-pagecache/config"
	"github.com/goliatone/go-pagecache/pagecache"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// App holds the wired page cache components.
type App struct {
	Config   config.Config
	Logger   *logzerolog.Logger
	Engine   pagecache.Engine
	Store    *storefs.Store
	Index    pagecache.Index
	Service  pagecache.Service
	Registry *gcmd.Registry

	subscriptions []dispatcher.Subscription
	closers       []func() error
}

// appOption customizes NewApp. Tests use it to swap the engine.
type appOption func(*appDeps)

type appDeps struct {
	engine pagecache.Engine
}

func withEngine(engine pagecache.Engine) appOption {
	return func(d *appDeps) {
		d.engine = engine
	}
}

// NewApp wires the engine, store, index and service from cfg and subscribes
// the command handlers.
func NewApp(ctx context.Context, cfg config.Config, logOut io.Writer, opts ...appOption) (*App, error) {
	deps := appDeps{}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}

	logger := logzerolog.New(logOut, cfg.Log.Level, cfg.Log.Pretty)
	app := &App{
		Config: cfg,
		Logger: logger,
		Store:  storefs.NewStore(cfg.Cache.ArtifactDir),
	}

	engine := deps.engine
	if engine == nil {
		chrome := chromium.NewEngine()
		chrome.BrowserPath = cfg.Chromium.Path
		chrome.Headless = cfg.Chromium.Headless
		chrome.Args = cfg.Chromium.Args
		chrome.Timeout = cfg.Chromium.Timeout
		chrome.DefaultPDF = chromium.MergePDFOptions(chromium.DefaultPDFOptions(), cfg.PDFOptions())
		chrome.Logger = logger.With("chromium")
		if err := chrome.Validate(); err != nil {
			return nil, fmt.Errorf("chromium engine: %w", err)
		}
		app.closers = append(app.closers, chrome.Close)
		engine = chrome
	}
	app.Engine = engine

	index, err := app.openIndex(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Index = index

	app.Service = pagecache.NewService(pagecache.ServiceConfig{
		Engine:        app.Engine,
		Store:         app.Store,
		Index:         app.Index,
		BaseURL:       cfg.BaseURL(),
		TargetParam:   cfg.Cache.TargetParam,
		ParamOrder:    pagecache.ParamOrder(cfg.Cache.ParamOrder),
		PublicBaseURL: cfg.PublicBaseURL(),
		DisableDedupe: !cfg.Cache.Dedupe,
		Logger:        logger.With("pagecache"),
	})

	app.Registry = gcmd.NewRegistry()
	subs, err := pagecachecmd.RegisterHandlers(app.Registry, app.Service)
	app.subscriptions = subs
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("register commands: %w", err)
	}

	return app, nil
}

func (a *App) openIndex(ctx context.Context) (pagecache.Index, error) {
	switch a.Config.Cache.IndexBackend {
	case config.IndexBackendSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, a.Config.Cache.IndexDSN)
		if err != nil {
			return nil, fmt.Errorf("open index database: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		db := bun.NewDB(sqldb, sqlitedialect.New())
		a.closers = append(a.closers, db.Close)

		index := indexbun.NewIndex(db)
		if err := index.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("prepare index schema: %w", err)
		}
		return index, nil
	default:
		return indexjson.NewIndex(a.Config.Cache.IndexPath), nil
	}
}

// Close unsubscribes handlers and releases the browser and database.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	for _, sub := range a.subscriptions {
		sub.Unsubscribe()
	}
	a.subscriptions = nil

	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
