// Package frontend provides the embedded landing page.
//
// It is served at / when the static directory has no index.html of its own.
package frontend

import (
	"embed"
	"io/fs"
)

//go:embed dist/*
var files embed.FS

// Files returns the embedded assets rooted at dist, so that index.html is at
// the top level.
func Files() fs.FS {
	sub, err := fs.Sub(files, "dist")
	if err != nil {
		panic(err)
	}
	return sub
}
