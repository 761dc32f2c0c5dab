package pagecachehttp

import (
	"net/http"
	"strings"
)

// DefaultArtifactsPath is the public prefix artifacts are served under.
const DefaultArtifactsPath = "/pdfS/"

// ArtifactsHandler serves stored artifacts read-only from root under prefix.
// Directory listings are not exposed.
func ArtifactsHandler(prefix, root string) http.Handler {
	if prefix == "" {
		prefix = DefaultArtifactsPath
	}
	prefix = ensureTrailingSlash(prefix)
	files := http.StripPrefix(prefix, http.FileServer(http.Dir(root)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func ensureTrailingSlash(value string) string {
	if value == "" {
		return ""
	}
	if value[len(value)-1] == '/' {
		return value
	}
	return value + "/"
}
