package assets

import (
	"embed"
	"io"
)

//go:embed default_catalog.csv
var FS embed.FS

// DefaultCatalog opens the embedded fallback catalog CSV.
// Callers own closing the reader.
func DefaultCatalog() (io.ReadCloser, error) {
	return FS.Open("default_catalog.csv")
}
