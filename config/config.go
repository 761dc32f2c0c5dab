// Package config loads the page cache configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-pagecache/pagecache"
)

// Index backends.
const (
	IndexBackendJSON   = "json"
	IndexBackendSQLite = "sqlite"
)

// Config holds the service configuration.
type Config struct {
	Server   ServerConfig
	Cache    CacheConfig
	Chromium ChromiumConfig
	PDF      PDFConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `env:"PAGECACHE_HOST" envDefault:"localhost"`
	Port            string        `env:"PAGECACHE_PORT" envDefault:"3000"`
	Endpoint        string        `env:"PAGECACHE_ENDPOINT" envDefault:"/api/pdf"`
	PublicPath      string        `env:"PAGECACHE_PUBLIC_PATH" envDefault:"/pdfS"`
	DemoPage        bool          `env:"PAGECACHE_DEMO_PAGE" envDefault:"true"`
	ShutdownTimeout time.Duration `env:"PAGECACHE_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// CacheConfig holds canonicalization, storage and index settings.
type CacheConfig struct {
	// BaseURL is prefixed to every target path. Empty means the local server.
	BaseURL string `env:"PAGECACHE_BASE_URL"`
	// PublicBaseURL is where artifacts are reachable. Empty derives it from
	// BaseURL and Server.PublicPath.
	PublicBaseURL string `env:"PAGECACHE_PUBLIC_BASE_URL"`
	ArtifactDir   string `env:"PAGECACHE_ARTIFACT_DIR" envDefault:"./public/pdfS"`
	IndexBackend  string `env:"PAGECACHE_INDEX_BACKEND" envDefault:"json"`
	IndexPath     string `env:"PAGECACHE_INDEX_PATH" envDefault:"./cache.json"`
	IndexDSN      string `env:"PAGECACHE_INDEX_DSN" envDefault:"file:pagecache.db?cache=shared"`
	TargetParam   string `env:"PAGECACHE_TARGET_PARAM" envDefault:"targetPath"`
	ParamOrder    string `env:"PAGECACHE_PARAM_ORDER" envDefault:"request"`
	Dedupe        bool   `env:"PAGECACHE_DEDUPE" envDefault:"true"`
}

// ChromiumConfig holds browser settings.
type ChromiumConfig struct {
	Path     string        `env:"PAGECACHE_CHROMIUM_PATH"`
	Headless bool          `env:"PAGECACHE_CHROMIUM_HEADLESS" envDefault:"true"`
	Args     []string      `env:"PAGECACHE_CHROMIUM_ARGS" envSeparator:","`
	Timeout  time.Duration `env:"PAGECACHE_RENDER_TIMEOUT" envDefault:"0s"`
}

// PDFConfig holds print settings.
type PDFConfig struct {
	PageSize          string  `env:"PAGECACHE_PDF_PAGE_SIZE" envDefault:"A4"`
	Landscape         bool    `env:"PAGECACHE_PDF_LANDSCAPE" envDefault:"false"`
	PrintBackground   bool    `env:"PAGECACHE_PDF_PRINT_BACKGROUND" envDefault:"true"`
	Scale             float64 `env:"PAGECACHE_PDF_SCALE" envDefault:"1"`
	MarginTop         string  `env:"PAGECACHE_PDF_MARGIN_TOP"`
	MarginBottom      string  `env:"PAGECACHE_PDF_MARGIN_BOTTOM"`
	MarginLeft        string  `env:"PAGECACHE_PDF_MARGIN_LEFT"`
	MarginRight       string  `env:"PAGECACHE_PDF_MARGIN_RIGHT"`
	PreferCSSPageSize bool    `env:"PAGECACHE_PDF_PREFER_CSS_PAGE_SIZE" envDefault:"false"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `env:"PAGECACHE_LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"PAGECACHE_LOG_PRETTY" envDefault:"false"`
}

// Defaults returns the configuration with no environment applied.
func Defaults() Config {
	cfg, err := parse(map[string]string{})
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(nil)
}

// LoadFrom reads the given environment instead of the process one.
func LoadFrom(environ map[string]string) (Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return parse(environ)
}

func parse(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated and structural settings.
func (c Config) Validate() error {
	switch c.Cache.IndexBackend {
	case IndexBackendJSON, IndexBackendSQLite:
	default:
		return fmt.Errorf("config: unknown index backend %q", c.Cache.IndexBackend)
	}
	switch pagecache.ParamOrder(c.Cache.ParamOrder) {
	case pagecache.ParamOrderRequest, pagecache.ParamOrderSorted:
	default:
		return fmt.Errorf("config: unknown param order %q", c.Cache.ParamOrder)
	}
	if !strings.HasPrefix(c.Server.Endpoint, "/") {
		return fmt.Errorf("config: endpoint %q must start with /", c.Server.Endpoint)
	}
	if !strings.HasPrefix(c.Server.PublicPath, "/") {
		return fmt.Errorf("config: public path %q must start with /", c.Server.PublicPath)
	}
	if c.Cache.TargetParam == "" {
		return fmt.Errorf("config: target param is required")
	}
	if c.Chromium.Timeout < 0 {
		return fmt.Errorf("config: render timeout must not be negative")
	}
	return nil
}

// Address is the listen address.
func (c Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

// BaseURL is the origin targets are rendered from.
func (c Config) BaseURL() string {
	if c.Cache.BaseURL != "" {
		return strings.TrimRight(c.Cache.BaseURL, "/")
	}
	return "http://" + c.Address()
}

// PublicBaseURL is the origin and prefix artifacts are served from.
func (c Config) PublicBaseURL() string {
	if c.Cache.PublicBaseURL != "" {
		return strings.TrimRight(c.Cache.PublicBaseURL, "/")
	}
	return c.BaseURL() + strings.TrimRight(c.Server.PublicPath, "/")
}

// PDFOptions converts the print settings.
func (c Config) PDFOptions() pagecache.PDFOptions {
	landscape := c.PDF.Landscape
	background := c.PDF.PrintBackground
	preferCSS := c.PDF.PreferCSSPageSize
	return pagecache.PDFOptions{
		PageSize:          c.PDF.PageSize,
		Landscape:         &landscape,
		PrintBackground:   &background,
		Scale:             c.PDF.Scale,
		MarginTop:         c.PDF.MarginTop,
		MarginBottom:      c.PDF.MarginBottom,
		MarginLeft:        c.PDF.MarginLeft,
		MarginRight:       c.PDF.MarginRight,
		PreferCSSPageSize: &preferCSS,
	}
}
