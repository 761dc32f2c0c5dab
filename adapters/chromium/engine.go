package chromium

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-pagecache/pagecache"
)

var _ pagecache.Engine = (*Engine)(nil)

// launchFunc starts a browser and returns its context plus a release func.
type launchFunc func() (context.Context, context.CancelFunc, error)

// Engine renders pages to PDF using one shared headless Chromium.
type Engine struct {
	BrowserPath string
	Headless    bool
	// Timeout bounds a single render. Zero means no limit.
	Timeout time.Duration
	Args    []string

	DefaultPDF pagecache.PDFOptions
	Logger     pagecache.Logger

	mu            sync.RWMutex
	launch        launchFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	launches      int
}

// NewEngine creates a headless engine with default PDF options.
func NewEngine() *Engine {
	return &Engine{Headless: true, DefaultPDF: DefaultPDFOptions()}
}

// Validate checks the default PDF options without starting a browser.
func (e *Engine) Validate() error {
	if e == nil {
		return pagecache.NewError(pagecache.KindInternal, "chromium engine is nil", nil)
	}
	_, err := buildPrintToPDFParams(e.pdfOptions(pagecache.PDFOptions{}))
	return err
}

// Render loads req.URL in a fresh tab and prints it once the network is idle.
func (e *Engine) Render(ctx context.Context, req pagecache.RenderRequest) ([]byte, error) {
	if e == nil {
		return nil, pagecache.NewError(pagecache.KindInternal, "chromium engine is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if req.URL == "" {
		return nil, pagecache.NewError(pagecache.KindValidation, "render url is required", nil)
	}

	params, err := buildPrintToPDFParams(e.pdfOptions(req.PDF))
	if err != nil {
		return nil, err
	}

	browserCtx, err := e.acquire()
	if err != nil {
		return nil, pagecache.NewError(pagecache.KindRender, "chromium start failed", err)
	}

	tabCtx, closeTab := chromedp.NewContext(browserCtx)
	defer closeTab()

	linkedCtx, cancelReq := context.WithCancel(tabCtx)
	defer cancelReq()
	go func() {
		select {
		case <-ctx.Done():
			cancelReq()
		case <-linkedCtx.Done():
		}
	}()
	execCtx := linkedCtx
	if e.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		execCtx, cancelTimeout = context.WithTimeout(linkedCtx, e.Timeout)
		defer cancelTimeout()
	}

	idle := newIdleWatcher()
	chromedp.ListenTarget(tabCtx, idle.handle)

	var pdf []byte
	err = chromedp.Run(execCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
				return err
			}
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			idle.arm(tree.Frame.ID)
			return nil
		}),
		chromedp.Navigate(req.URL),
		chromedp.ActionFunc(idle.wait),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = params.Do(ctx)
			return err
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, pagecache.NewError(pagecache.KindTimeout, "chromium render timed out", err)
		}
		if browserCtx.Err() != nil {
			e.logger().Errorf("chromium: browser exited during render of %s", req.URL)
		}
		return nil, pagecache.NewError(pagecache.KindRender, "chromium render failed", err)
	}
	return pdf, nil
}

// Close shuts the browser down. A later Render starts a new one.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.browserCancel != nil {
		e.browserCancel()
	}
	e.browserCtx = nil
	e.browserCancel = nil
	return nil
}

// Launches reports how many browsers this engine has started.
func (e *Engine) Launches() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.launches
}

func (e *Engine) acquire() (context.Context, error) {
	e.mu.RLock()
	if e.browserCtx != nil && e.browserCtx.Err() == nil {
		ctx := e.browserCtx
		e.mu.RUnlock()
		return ctx, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.browserCtx != nil && e.browserCtx.Err() == nil {
		return e.browserCtx, nil
	}
	if e.browserCancel != nil {
		e.browserCancel()
		e.logger().Infof("chromium: browser context ended, relaunching")
	}

	launch := e.launch
	if launch == nil {
		launch = e.launchChromium
	}
	ctx, cancel, err := launch()
	if err != nil {
		e.browserCtx = nil
		e.browserCancel = nil
		return nil, err
	}
	e.browserCtx = ctx
	e.browserCancel = cancel
	e.launches++
	e.logger().Infof("chromium: browser started (launch %d)", e.launches)
	return ctx, nil
}

func (e *Engine) launchChromium() (context.Context, context.CancelFunc, error) {
	options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if e.BrowserPath != "" {
		options = append(options, chromedp.ExecPath(e.BrowserPath))
	}
	options = append(options, allocatorOptions(launchFlags(e.Headless, e.Args))...)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), options...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	release := func() {
		browserCancel()
		allocCancel()
	}
	// An empty Run starts the process and attaches the first target.
	if err := chromedp.Run(browserCtx); err != nil {
		release()
		return nil, nil, err
	}
	return browserCtx, release, nil
}

func (e *Engine) pdfOptions(override pagecache.PDFOptions) pagecache.PDFOptions {
	return MergePDFOptions(MergePDFOptions(DefaultPDFOptions(), e.DefaultPDF), override)
}

func (e *Engine) logger() pagecache.Logger {
	if e.Logger == nil {
		return pagecache.NopLogger{}
	}
	return e.Logger
}
