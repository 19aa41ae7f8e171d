// Package web carries the embedded browser client: the upload and download
// pages plus the WebCrypto glue that encrypts files before they ever leave
// the browser.
package web

import (
	"embed"
	"net/http"
)

//go:embed index.html download.html css/* js/*
var FS embed.FS

// Assets exposes the embedded files as an http.FileSystem for the router.
func Assets() http.FileSystem {
	return http.FS(FS)
}
