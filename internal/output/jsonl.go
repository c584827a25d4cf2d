package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/leadharvest/scrape/pkg/models"
)

// JSONLSink writes one compact JSON object per record. Empty record fields
// are never serialized.
type JSONLSink struct {
	w     *bufio.Writer
	file  *os.File
	count int
}

// NewJSONL wraps an arbitrary writer; nil means stdout.
func NewJSONL(w io.Writer) *JSONLSink {
	if w == nil {
		w = os.Stdout
	}
	return &JSONLSink{w: bufio.NewWriter(w)}
}

// OpenJSONL creates (truncating) a JSON-lines file at path.
func OpenJSONL(path string) (*JSONLSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &JSONLSink{w: bufio.NewWriter(f), file: f}, nil
}

// Emit appends one record line.
func (s *JSONLSink) Emit(rec models.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	s.count++
	return nil
}

// Count reports how many records were emitted.
func (s *JSONLSink) Count() int { return s.count }

// Close flushes buffered lines and closes the file when one is open.
func (s *JSONLSink) Close() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
