package demopage

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPage_RenderEchoesQuery(t *testing.T) {
	page, err := New("")
	if err != nil {
		t.Fatalf("new page: %v", err)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf, "src=/logo.png&id=42&tag=a&tag=b"); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `<img src="/logo.png"`) {
		t.Fatalf("expected image tag, got %s", out)
	}
	for _, want := range []string{"id", "42", "tag", "Page cache"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output", want)
		}
	}
}

func TestPage_RenderEscapes(t *testing.T) {
	page, err := New("demo")
	if err != nil {
		t.Fatalf("new page: %v", err)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf, "src=x%22+onerror%3D%22alert(1)&name=%3Cscript%3E"); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, `onerror="alert`) {
		t.Fatalf("expected src to be escaped, got %s", out)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("expected query values to be escaped, got %s", out)
	}
}

func TestPage_RenderWithoutSrcOmitsImage(t *testing.T) {
	page, err := New("demo")
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	var buf bytes.Buffer
	if err := page.Render(&buf, "id=1"); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(buf.String(), "<img") {
		t.Fatalf("expected no image tag")
	}
}

func TestPage_ServeHTTP(t *testing.T) {
	page, err := New("demo")
	if err != nil {
		t.Fatalf("new page: %v", err)
	}

	rec := httptest.NewRecorder()
	page.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?src=/a.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}

	rec = httptest.NewRecorder()
	page.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
