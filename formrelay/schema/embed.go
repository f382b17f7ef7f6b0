package schema

import (
	"embed"
	"io/fs"
)

//go:embed forms/*.yaml
var embeddedForms embed.FS

// EmbeddedFS returns the bundled form descriptors.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedForms, "forms")
	if err != nil {
		// the embed directive guarantees the subdirectory exists
		panic(err)
	}
	return sub
}

// Default loads the bundled Career, Contact and Schedule-Demo forms.
func Default() (*Store, error) {
	return LoadFS(EmbeddedFS())
}
