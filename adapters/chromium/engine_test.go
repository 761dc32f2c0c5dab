package chromium

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-pagecache/pagecache"
)

func chromeBinaryPath(t *testing.T) string {
	t.Helper()

	chromePath := os.Getenv("CHROME_BIN")
	if chromePath == "" {
		for _, candidate := range []string{"google-chrome", "chromium", "chromium-browser"} {
			if path, err := exec.LookPath(candidate); err == nil {
				chromePath = path
				break
			}
		}
	}
	if chromePath == "" {
		t.Skip("chromium binary not found; set CHROME_BIN to run this test")
	}
	return chromePath
}

type fakeBrowsers struct {
	mu      sync.Mutex
	cancels []context.CancelFunc
	fail    error
}

func (f *fakeBrowsers) launch() (context.Context, context.CancelFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, nil, f.fail
	}
	// Widen the window in which concurrent acquires race.
	time.Sleep(5 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	f.cancels = append(f.cancels, cancel)
	return ctx, cancel, nil
}

func (f *fakeBrowsers) kill(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels[n]()
}

func TestEngine_AcquireStartsOneBrowser(t *testing.T) {
	browsers := &fakeBrowsers{}
	engine := NewEngine()
	engine.launch = browsers.launch

	var wg sync.WaitGroup
	contexts := make([]context.Context, 16)
	for i := range contexts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, err := engine.acquire()
			if err != nil {
				t.Errorf("acquire %d: %v", i, err)
			}
			contexts[i] = ctx
		}(i)
	}
	wg.Wait()

	if engine.Launches() != 1 {
		t.Fatalf("expected 1 launch, got %d", engine.Launches())
	}
	for i := range contexts {
		if contexts[i] != contexts[0] {
			t.Fatalf("acquire %d returned a different browser", i)
		}
	}
}

func TestEngine_AcquireRelaunchesDeadBrowser(t *testing.T) {
	browsers := &fakeBrowsers{}
	engine := NewEngine()
	engine.launch = browsers.launch

	first, err := engine.acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	browsers.kill(0)

	second, err := engine.acquire()
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if second == first || second.Err() != nil {
		t.Fatalf("expected a fresh live browser")
	}
	if engine.Launches() != 2 {
		t.Fatalf("expected 2 launches, got %d", engine.Launches())
	}

	if _, err := engine.acquire(); err != nil {
		t.Fatalf("acquire live: %v", err)
	}
	if engine.Launches() != 2 {
		t.Fatalf("expected live browser to be reused, got %d launches", engine.Launches())
	}
}

func TestEngine_CloseReleasesBrowser(t *testing.T) {
	browsers := &fakeBrowsers{}
	engine := NewEngine()
	engine.launch = browsers.launch

	ctx, err := engine.acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatalf("expected browser context to be cancelled")
	}
}

func TestEngine_RenderLaunchFailure(t *testing.T) {
	engine := NewEngine()
	engine.launch = (&fakeBrowsers{fail: errors.New("exec: chromium not found")}).launch

	_, err := engine.Render(context.Background(), pagecache.RenderRequest{URL: "http://localhost/"})
	if pagecache.KindFromError(err) != pagecache.KindRender {
		t.Fatalf("expected render error, got %v", err)
	}
	if engine.Launches() != 0 {
		t.Fatalf("expected no successful launch, got %d", engine.Launches())
	}
}

func TestEngine_RenderRejectsBadOptionsBeforeLaunch(t *testing.T) {
	browsers := &fakeBrowsers{}
	engine := NewEngine()
	engine.launch = browsers.launch

	_, err := engine.Render(context.Background(), pagecache.RenderRequest{
		URL: "http://localhost/",
		PDF: pagecache.PDFOptions{PageSize: "B5"},
	})
	if pagecache.KindFromError(err) != pagecache.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if engine.Launches() != 0 {
		t.Fatalf("expected no launch, got %d", engine.Launches())
	}
}

func TestEngine_Validate(t *testing.T) {
	engine := NewEngine()
	if err := engine.Validate(); err != nil {
		t.Fatalf("validate defaults: %v", err)
	}
	engine.DefaultPDF.Scale = 5
	if err := engine.Validate(); pagecache.KindFromError(err) != pagecache.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEngine_Render_Smoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping chromium smoke test in short mode")
	}
	chromePath := chromeBinaryPath(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow.css" {
			time.Sleep(200 * time.Millisecond)
			w.Header().Set("Content-Type", "text/css")
			_, _ = w.Write([]byte("h1 { color: red; }"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><link rel="stylesheet" href="/slow.css"></head><body><h1>` + r.URL.Query().Get("name") + `</h1></body></html>`))
	}))
	defer server.Close()

	engine := NewEngine()
	engine.BrowserPath = chromePath
	engine.Timeout = 20 * time.Second
	engine.Args = []string{"--disable-dev-shm-usage"}
	t.Cleanup(func() {
		_ = engine.Close()
	})

	for _, name := range []string{"first", "second"} {
		pdf, err := engine.Render(context.Background(), pagecache.RenderRequest{URL: server.URL + "/invoice?name=" + name})
		if err != nil {
			t.Fatalf("render %s: %v", name, err)
		}
		if len(pdf) < 4 || string(pdf[:4]) != "%PDF" {
			t.Fatalf("expected pdf output for %s", name)
		}
	}
	if engine.Launches() != 1 {
		t.Fatalf("expected browser reuse, got %d launches", engine.Launches())
	}
}

func TestEngine_Render_UnreachableTarget(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping chromium smoke test in short mode")
	}
	chromePath := chromeBinaryPath(t)

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	engine := NewEngine()
	engine.BrowserPath = chromePath
	engine.Timeout = 20 * time.Second
	t.Cleanup(func() {
		_ = engine.Close()
	})

	_, err := engine.Render(context.Background(), pagecache.RenderRequest{URL: url + "/gone"})
	if pagecache.KindFromError(err) != pagecache.KindRender {
		t.Fatalf("expected render error, got %v", err)
	}
}
