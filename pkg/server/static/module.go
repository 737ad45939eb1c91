package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed site
var staticFiles embed.FS

// Site serves the embedded client page.
func Site() (http.Handler, error) {
	content, err := fs.Sub(staticFiles, "site")
	if err != nil {
		return nil, err
	}

	return http.FileServer(http.FS(content)), nil
}
