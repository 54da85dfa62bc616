/*
Package handler serves the embedded browser chat client.
*/
package handler

import (
	"embed"
	"io/fs"
	"net/http"

	"chatrelay/internal/pkg/logx"
)

//go:embed public
var publicFS embed.FS

// WebClientHandler returns an http.Handler serving the embedded chat client
// from the public directory.
func WebClientHandler() http.Handler {
	sub, err := fs.Sub(publicFS, "public")
	if err != nil {
		logx.Fatal(err, "Embedded public directory is missing")
	}

	return http.FileServer(http.FS(sub))
}
