package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-pagecache/adapters/pagecacheapi"
	pagecachecmd "github.com/goliatone/go-pagecache/command"
	"github.com/goliatone/go-pagecache/config"
	"github.com/goliatone/go-pagecache/pagecache"
	"github.com/goliatone/go-pagecache/query"
	"github.com/spf13/cobra"
)

// appFactory builds the application for a command run.
type appFactory func(ctx context.Context, cfg config.Config) (*App, error)

// CLI is the pagecache command line.
type CLI struct {
	cfg     config.Config
	newApp  appFactory
	rootCmd *cobra.Command
}

// NewCLI creates the command tree.
func NewCLI(cfg config.Config, newApp appFactory) *CLI {
	rootCmd := &cobra.Command{
		Use:           "pagecache",
		Short:         "Render pages to PDF and cache the results",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c := &CLI{
		cfg:     cfg,
		newApp:  newApp,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newRenderCmd())
	rootCmd.AddCommand(c.newClearCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newWarmCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func (c *CLI) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	app, err := c.newApp(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			app.Logger.Errorf("close: %v", cerr)
		}
	}()
	return fn(ctx, app)
}

func (c *CLI) newServeCmd() *cobra.Command {
	var clearEvery time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render endpoint and cached artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *App) error {
				return serve(ctx, app, clearEvery)
			})
		},
	}
	cmd.Flags().DurationVar(&clearEvery, "clear-every", 0, "Clear the cache on this interval (0 disables)")
	return cmd
}

func (c *CLI) newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render <query>",
		Short: "Render a target through the cache, e.g. 'targetPath=/invoice&id=42'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *App) error {
				result, err := dispatcher.DispatchWithResult[pagecachecmd.RenderPage, pagecache.Result](
					ctx,
					pagecachecmd.RenderPage{Query: args[0]},
				)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(pagecacheapi.RenderData{
					URL:         result.URL,
					PsdURL:      result.PublicURL,
					PDFFileName: result.Filename,
					TimeTaken:   result.Duration.Milliseconds(),
				})
			})
		},
	}
}

func (c *CLI) newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached artifact and reset the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *App) error {
				removed, err := dispatcher.DispatchWithResult[pagecachecmd.ClearCache, int](ctx, pagecachecmd.ClearCache{})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cache Cleared (%d artifacts removed)\n", removed)
				return err
			})
		},
	}
}

func (c *CLI) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the cache index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *App) error {
				entries, err := dispatcher.Query[query.CacheEntries, map[string]string](ctx, query.CacheEntries{})
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(entries))
				for key := range entries {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				out := cmd.OutOrStdout()
				for _, key := range keys {
					if _, err := fmt.Fprintf(out, "%s\t%s\n", key, entries[key]); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func (c *CLI) newWarmCmd() *cobra.Command {
	var (
		from        string
		maxRequests int
		interval    time.Duration
		stopOnFail  bool
	)
	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Pre-render the queries listed in a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *App) error {
				renderer := pagecachecmd.RendererFunc(func(ctx context.Context, rawQuery string) (pagecache.Result, error) {
					return dispatcher.DispatchWithResult[pagecachecmd.RenderPage, pagecache.Result](
						ctx,
						pagecachecmd.RenderPage{Query: rawQuery},
					)
				})
				warm := pagecachecmd.NewWarmCommand(renderer, nil,
					pagecachecmd.WithWarmLimits(pagecachecmd.WarmLimits{MaxRequests: maxRequests, MinInterval: interval}),
					pagecachecmd.WithWarmStopOnFailure(stopOnFail),
					pagecachecmd.WithWarmLogger(app.Logger.With("warm")),
				)
				report, err := warm.Run(ctx, from)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "rendered=%d cached=%d failed=%d\n", report.Rendered, report.Cached, report.Failed)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Path to a JSON array of raw queries")
	cmd.Flags().IntVar(&maxRequests, "max", 0, "Stop after this many queries (0 is unlimited)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Pause between renders")
	cmd.Flags().BoolVar(&stopOnFail, "stop-on-failure", false, "Abort on the first failed render")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func serve(ctx context.Context, app *App, clearEvery time.Duration) error {
	if err := app.Store.EnsureDir(ctx); err != nil {
		return err
	}

	srv := buildServer(app)
	if err := app.SetupRoutes(srv.Router()); err != nil {
		return err
	}

	addr := app.Config.Address()
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(addr)
	}()
	app.Logger.Infof("serving http://%s (endpoint %s, artifacts %s)", addr, app.Config.Server.Endpoint, app.Config.Server.PublicPath)

	if clearEvery > 0 {
		go clearPeriodically(ctx, app, clearEvery)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.Logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.Config.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func clearPeriodically(ctx context.Context, app *App, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := dispatcher.Dispatch(ctx, pagecachecmd.ClearCache{}); err != nil {
				app.Logger.Errorf("scheduled clear failed: %v", err)
			}
		}
	}
}
