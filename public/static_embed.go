// Package public embeds the stylesheet and script shared by every page.
package public

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed static/*
var static embed.FS

// StaticFS exposes the embedded static directory.
func StaticFS() (fs.FS, error) {
	return fs.Sub(static, "static")
}

// Handler serves the embedded assets under prefix (for example "/static/").
func Handler(prefix string) (http.Handler, error) {
	content, err := StaticFS()
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return http.StripPrefix(prefix, http.FileServer(http.FS(content))), nil
}
