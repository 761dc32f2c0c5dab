package command

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"strings"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-pagecache/pagecache"
)

// WarmLoader loads the queries a warm run should render.
type WarmLoader func(ctx context.Context) ([]string, error)

// Renderer renders a raw query through the cache.
type Renderer interface {
	Render(ctx context.Context, rawQuery string) (pagecache.Result, error)
}

// RendererFunc adapts a function to a Renderer.
type RendererFunc func(ctx context.Context, rawQuery string) (pagecache.Result, error)

func (f RendererFunc) Render(ctx context.Context, rawQuery string) (pagecache.Result, error) {
	if f == nil {
		return pagecache.Result{}, errors.New("renderer is required", errors.CategoryInternal).
			WithTextCode("RENDERER_NIL")
	}
	return f(ctx, rawQuery)
}

// WarmLimits bounds warm run throughput.
type WarmLimits struct {
	MaxRequests int
	MinInterval time.Duration
}

// WarmReport summarizes a warm run.
type WarmReport struct {
	Rendered int
	Cached   int
	Failed   int
}

// Total is the number of queries processed.
func (r WarmReport) Total() int {
	return r.Rendered + r.Cached + r.Failed
}

// WarmCommand pre-renders a list of queries so later requests hit the cache.
// It runs from the CLI or on a cron schedule.
type WarmCommand struct {
	renderer   Renderer
	loader     WarmLoader
	cliConfig  gcmd.CLIConfig
	cronConfig gcmd.HandlerConfig
	limits     WarmLimits
	stopOnFail bool
	logger     pagecache.Logger
	sleep      func(time.Duration)
}

// WarmOption customizes warm commands.
type WarmOption func(*WarmCommand)

// WithWarmLimits overrides warm run limits.
func WithWarmLimits(limits WarmLimits) WarmOption {
	return func(cmd *WarmCommand) {
		cmd.limits = limits
	}
}

// WithWarmStopOnFailure aborts the run on the first failed render.
func WithWarmStopOnFailure(stop bool) WarmOption {
	return func(cmd *WarmCommand) {
		cmd.stopOnFail = stop
	}
}

// WithWarmLogger sets the logger used to report failed renders.
func WithWarmLogger(logger pagecache.Logger) WarmOption {
	return func(cmd *WarmCommand) {
		if logger != nil {
			cmd.logger = logger
		}
	}
}

// NewWarmCommand creates a cache warm CLI/Cron command.
func NewWarmCommand(renderer Renderer, loader WarmLoader, opts ...WarmOption) *WarmCommand {
	cmd := &WarmCommand{
		renderer: renderer,
		loader:   loader,
		cliConfig: gcmd.CLIConfig{
			Path:        []string{"pagecache-warm"},
			Description: "Pre-render pages into the cache",
			Group:       "pagecache",
		},
		cronConfig: gcmd.HandlerConfig{Expression: "0 * * * *"},
		logger:     pagecache.NopLogger{},
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cmd)
		}
	}
	return cmd
}

// Run renders the queries listed in the JSON file at from, or the loader's
// queries when from is empty.
func (c *WarmCommand) Run(ctx context.Context, from string) (WarmReport, error) {
	return c.run(ctx, from)
}

// CronHandler executes scheduled warm runs.
func (c *WarmCommand) CronHandler() func() error {
	return func() error {
		_, err := c.run(context.Background(), "")
		return err
	}
}

// CronOptions returns cron configuration.
func (c *WarmCommand) CronOptions() gcmd.HandlerConfig {
	if c == nil {
		return gcmd.HandlerConfig{}
	}
	return c.cronConfig
}

// CLIHandler exposes the CLI handler.
func (c *WarmCommand) CLIHandler() any {
	return &warmCLI{cmd: c}
}

// CLIOptions returns CLI configuration.
func (c *WarmCommand) CLIOptions() gcmd.CLIConfig {
	if c == nil {
		return gcmd.CLIConfig{}
	}
	return c.cliConfig
}

func (c *WarmCommand) run(ctx context.Context, from string) (WarmReport, error) {
	var report WarmReport
	if c == nil {
		return report, errors.New("warm command is nil", errors.CategoryInternal).
			WithTextCode("WARM_CMD_NIL")
	}
	if c.renderer == nil {
		return report, errors.New("renderer is required", errors.CategoryValidation).
			WithTextCode("RENDERER_REQUIRED")
	}

	queries, err := c.loadQueries(ctx, from)
	if err != nil {
		return report, err
	}

	for _, query := range queries {
		if c.limits.MaxRequests > 0 && report.Total() >= c.limits.MaxRequests {
			break
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		query = strings.TrimSpace(query)
		if query == "" {
			continue
		}

		result, err := c.renderer.Render(ctx, query)
		switch {
		case err != nil:
			report.Failed++
			c.logger.Errorf("pagecache: warm %q failed: %v", query, err)
			if c.stopOnFail {
				return report, err
			}
		case result.Cached:
			report.Cached++
		default:
			report.Rendered++
		}

		if c.limits.MinInterval > 0 && c.sleep != nil {
			c.sleep(c.limits.MinInterval)
		}
	}
	return report, nil
}

func (c *WarmCommand) loadQueries(ctx context.Context, from string) ([]string, error) {
	if strings.TrimSpace(from) != "" {
		return loadWarmQueriesFromFile(from)
	}
	if c.loader == nil {
		return nil, errors.New("warm loader not configured", errors.CategoryValidation).
			WithTextCode("LOADER_REQUIRED")
	}
	return c.loader(ctx)
}

type warmCLI struct {
	cmd  *WarmCommand
	From string `kong:"name='from',help='Path to a JSON array of raw queries'"`
}

func (c *warmCLI) Run() error {
	if c == nil || c.cmd == nil {
		return errors.New("warm command is required", errors.CategoryInternal).
			WithTextCode("WARM_CMD_NIL")
	}
	_, err := c.cmd.run(context.Background(), c.From)
	return err
}

// LoadWarmQueries reads a JSON array of raw queries from path.
func LoadWarmQueries(path string) WarmLoader {
	return func(ctx context.Context) ([]string, error) {
		_ = ctx
		return loadWarmQueriesFromFile(path)
	}
}

func loadWarmQueriesFromFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "read warm file failed").
			WithTextCode("WARM_FILE_READ")
	}

	var queries []string
	if err := json.Unmarshal(content, &queries); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "warm file invalid JSON").
			WithTextCode("WARM_FILE_INVALID")
	}
	return queries, nil
}

// BuildWarmQueries returns one raw query per target path, each carrying the
// shared params in the given order.
func BuildWarmQueries(targetParam string, paths []string, params []pagecache.Param) []string {
	if len(paths) == 0 {
		return nil
	}
	if targetParam == "" {
		targetParam = pagecache.DefaultTargetParam
	}

	queries := make([]string, 0, len(paths))
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		target := pagecache.Target{Path: path, Params: params}
		query := url.QueryEscape(targetParam) + "=" + url.QueryEscape(path)
		if rest := target.Query(); rest != "" {
			query += "&" + rest
		}
		queries = append(queries, query)
	}
	return queries
}

// CLIHandler exposes clear via CLI.
func (h *ClearCacheHandler) CLIHandler() any {
	return &clearCLI{handler: h}
}

// CLIOptions describes clear CLI metadata.
func (h *ClearCacheHandler) CLIOptions() gcmd.CLIConfig {
	return gcmd.CLIConfig{
		Path:        []string{"pagecache-clear"},
		Description: "Remove every cached artifact",
		Group:       "pagecache",
	}
}

type clearCLI struct {
	handler *ClearCacheHandler
}

func (c *clearCLI) Run() error {
	if c == nil || c.handler == nil {
		return errors.New("clear handler is required", errors.CategoryInternal).
			WithTextCode("CLEAR_HANDLER_REQUIRED")
	}
	return c.handler.Execute(context.Background(), ClearCache{})
}
