// Package output contains the record sinks a crawl can emit into: JSON
// lines on stdout or a file, or an XLSX workbook.
package output

import (
	"strings"

	"github.com/leadharvest/scrape/pkg/models"
)

// Sink receives normalized records. Close finalizes the destination and
// must be called on every exit path.
type Sink interface {
	Emit(rec models.Record) error
	Count() int
	Close() error
}

// Open picks a sink from the destination path. Empty or "-" writes JSON
// lines to stdout; a ".xlsx" suffix selects a workbook; anything else is a
// JSON-lines file.
func Open(path string) (Sink, error) {
	switch {
	case path == "" || path == "-":
		return NewJSONL(nil), nil
	case strings.HasSuffix(strings.ToLower(path), ".xlsx"):
		return NewXLSX(path), nil
	default:
		return OpenJSONL(path)
	}
}
