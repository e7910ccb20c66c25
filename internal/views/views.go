// Package views holds the server-rendered HTML pages.
package views

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var files embed.FS

// Load parses every page and partial. Pages are addressed by file name, e.g. "home.html".
func Load() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"timestamp": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04")
		},
	}).ParseFS(files, "templates/*.html")
}

// MustLoad is Load for process startup.
func MustLoad() *template.Template {
	return template.Must(Load())
}
