package output

import (
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/leadharvest/scrape/pkg/models"
)

// ProgressSink decorates another sink with a stderr progress bar so the
// data stream on stdout stays clean.
type ProgressSink struct {
	inner Sink
	bar   *progressbar.ProgressBar
}

// WithProgress wraps sink with a bar sized to limit. A zero limit means the
// total is unknown and a spinner is shown instead.
func WithProgress(sink Sink, limit int) *ProgressSink {
	total := int64(limit)
	if total <= 0 {
		total = -1
	}
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetDescription("records"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
	)
	return &ProgressSink{inner: sink, bar: bar}
}

func (s *ProgressSink) Emit(rec models.Record) error {
	if err := s.inner.Emit(rec); err != nil {
		return err
	}
	_ = s.bar.Add(1)
	return nil
}

func (s *ProgressSink) Count() int { return s.inner.Count() }

func (s *ProgressSink) Close() error {
	_ = s.bar.Finish()
	return s.inner.Close()
}
