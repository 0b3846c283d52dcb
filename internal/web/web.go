// Package web carries the embedded HTML templates and the view engine used
// by the handlers. Embedding keeps rendering working regardless of the
// process working directory (the test binaries run from their package dirs).
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templatesFS embed.FS

// Layout is the shared page layout wrapped around every render.
const Layout = "layouts/main"

// NewEngine creates the HTML view engine backed by the embedded templates.
func NewEngine() *html.Engine {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err) // embed is broken at build time, not recoverable
	}
	return html.NewFileSystem(http.FS(sub), ".html")
}
