package progress

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Tracker counts bytes processed by codec and cipher workers. All
// methods are safe for concurrent use, and a nil *Tracker ignores
// every call so callers never need to check for one.
type Tracker struct {
	processed atomic.Uint64
	total     uint64
	started   time.Time

	logger *slog.Logger
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// New returns a tracker for total bytes that does not report.
func New(total uint64) *Tracker {
	return &Tracker{total: total, started: time.Now()}
}

// Start returns a tracker that logs progress through logger every
// interval until Stop is called.
func Start(logger *slog.Logger, total uint64, interval time.Duration) *Tracker {
	t := New(total)
	t.logger = logger
	t.done = make(chan struct{})
	t.wg.Add(1)
	go t.report(interval)
	return t
}

// Add records n processed bytes.
func (t *Tracker) Add(n int) {
	if t == nil || n <= 0 {
		return
	}
	t.processed.Add(uint64(n))
}

// Processed returns the number of bytes recorded so far.
func (t *Tracker) Processed() uint64 {
	if t == nil {
		return 0
	}
	return t.processed.Load()
}

// Stop ends reporting and logs a summary. It is safe to call more
// than once.
func (t *Tracker) Stop() {
	if t == nil || t.done == nil {
		return
	}
	t.once.Do(func() {
		close(t.done)
		t.wg.Wait()
	})
}

func (t *Tracker) report(interval time.Duration) {
	defer t.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var previous uint64
	for {
		select {
		case <-ticker.C:
			current := t.processed.Load()
			rate := uint64(float64(current-previous) / interval.Seconds())
			previous = current

			attrs := []any{
				"processed", humanize.IBytes(current),
				"rate", humanize.IBytes(rate) + "/s",
			}
			if t.total > 0 {
				attrs = append(attrs,
					"total", humanize.IBytes(t.total),
					"percent", float64(current)/float64(t.total)*100,
				)
				if rate > 0 && current < t.total {
					eta := time.Duration(float64(t.total-current) / float64(rate) * float64(time.Second))
					attrs = append(attrs, "eta", eta.Round(time.Second).String())
				}
			}
			t.logger.Info("progress", attrs...)

		case <-t.done:
			elapsed := time.Since(t.started)
			seconds := max(elapsed.Seconds(), 0.001)
			total := t.processed.Load()
			t.logger.Info("processing complete",
				"processed", humanize.IBytes(total),
				"elapsed", elapsed.Round(time.Millisecond).String(),
				"avg_rate", humanize.IBytes(uint64(float64(total)/seconds))+"/s",
			)
			return
		}
	}
}

// Writer is a writer that records bytes written on a Tracker.
type Writer struct {
	W       io.Writer
	Tracker *Tracker
}

// Write implements io.Writer and records the bytes written.
func (pw *Writer) Write(p []byte) (n int, err error) {
	n, err = pw.W.Write(p)
	pw.Tracker.Add(n)
	return
}
