// Package demopage serves a small page that echoes its query string. It is a
// convenient render target for trying the cache locally.
package demopage

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/goliatone/go-router"
)

const pageSource = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{ title }}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
pre { background: #f4f4f4; padding: 1rem; }
</style>
</head>
<body>
<h1>{{ title }}</h1>
<pre>{{ query_json }}</pre>
{% if src %}<img src="{{ src }}" alt="">{% endif %}
</body>
</html>
`

// Page renders the demo document.
type Page struct {
	Title string
	tpl   *pongo2.Template
}

// New compiles the demo template.
func New(title string) (*Page, error) {
	tpl, err := pongo2.FromString(pageSource)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = "Page cache"
	}
	return &Page{Title: title, tpl: tpl}, nil
}

// Render writes the page for rawQuery. Repeated keys render as arrays.
func (p *Page) Render(w io.Writer, rawQuery string) error {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		values = url.Values{}
	}

	query := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			query[key] = vals[0]
			continue
		}
		query[key] = vals
	}
	payload, err := json.MarshalIndent(query, "", "  ")
	if err != nil {
		return err
	}

	return p.tpl.ExecuteWriter(pongo2.Context{
		"title":      p.Title,
		"query_json": string(payload),
		"src":        values.Get("src"),
	}, w)
}

// ServeHTTP serves the page over net/http.
func (p *Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.Render(w, r.URL.RawQuery); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Handle serves the page through go-router.
func (p *Page) Handle(c router.Context) error {
	rawQuery := ""
	if httpCtx, ok := router.AsHTTPContext(c); ok {
		if req := httpCtx.Request(); req != nil && req.URL != nil {
			rawQuery = req.URL.RawQuery
		}
	} else if _, query, found := strings.Cut(c.OriginalURL(), "?"); found {
		rawQuery = query
	}

	var buf bytes.Buffer
	if err := p.Render(&buf, rawQuery); err != nil {
		return err
	}
	c.SetHeader("Content-Type", "text/html; charset=utf-8")
	return c.Status(http.StatusOK).Send(buf.Bytes())
}
