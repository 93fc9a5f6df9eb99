// Package pages holds the built-in pages served when no static directory
// is configured.
package pages

import (
	"embed"
	"io/fs"
)

// ErrorPage is shown when a page request fails unexpectedly
const ErrorPage = "error.html"

//go:embed *.html
var files embed.FS

// FS returns the embedded pages rooted at "/"
func FS() fs.FS {
	return files
}

// Read returns the content of the named embedded page
func Read(name string) ([]byte, error) {
	return files.ReadFile(name)
}
