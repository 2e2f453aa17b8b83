package registry

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed catalog/*.yaml
var catalogFS embed.FS

// Catalog returns the built-in family catalog
func Catalog() fs.FS {
	sub, err := fs.Sub(catalogFS, "catalog")
	if err != nil {
		panic(err)
	}
	return sub
}

// CatalogFrom returns the catalog at dir, or the built-in one when dir is
// empty.
func CatalogFrom(dir string) fs.FS {
	if dir == "" {
		return Catalog()
	}
	return os.DirFS(dir)
}
