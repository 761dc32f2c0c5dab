package chromium

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
)

const (
	lifecycleInit        = "init"
	lifecycleNetworkIdle = "networkIdle"
)

// idleWatcher waits for the networkIdle lifecycle event of the document most
// recently committed in one frame. Events seen before arm are ignored.
type idleWatcher struct {
	mu       sync.Mutex
	frameID  cdp.FrameID
	loaderID cdp.LoaderID
	done     chan struct{}
	once     sync.Once
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{done: make(chan struct{})}
}

func (w *idleWatcher) arm(frameID cdp.FrameID) {
	w.mu.Lock()
	w.frameID = frameID
	w.loaderID = ""
	w.mu.Unlock()
}

func (w *idleWatcher) handle(ev any) {
	lifecycle, ok := ev.(*page.EventLifecycleEvent)
	if !ok {
		return
	}
	w.observe(lifecycle.FrameID, lifecycle.LoaderID, lifecycle.Name)
}

func (w *idleWatcher) observe(frameID cdp.FrameID, loaderID cdp.LoaderID, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.frameID == "" || frameID != w.frameID {
		return
	}
	switch name {
	case lifecycleInit:
		w.loaderID = loaderID
	case lifecycleNetworkIdle:
		if w.loaderID != "" && loaderID == w.loaderID {
			w.once.Do(func() { close(w.done) })
		}
	}
}

func (w *idleWatcher) wait(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
