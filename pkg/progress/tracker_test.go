package progress

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerConcurrentAdd(t *testing.T) {
	tracker := New(0)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				tracker.Add(3)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(16*1000*3), tracker.Processed())
}

func TestNilTracker(t *testing.T) {
	var tracker *Tracker
	tracker.Add(10)
	tracker.Stop()
	assert.Zero(t, tracker.Processed())
}

func TestTrackerIgnoresNonPositive(t *testing.T) {
	tracker := New(10)
	tracker.Add(0)
	tracker.Add(-5)
	assert.Zero(t, tracker.Processed())
}

// syncBuffer guards a bytes.Buffer shared with the reporter goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStartLogsSummaryOnStop(t *testing.T) {
	var out syncBuffer
	logger := slog.New(slog.NewTextHandler(&out, nil))

	tracker := Start(logger, 4096, time.Millisecond)
	tracker.Add(2048)
	time.Sleep(10 * time.Millisecond)
	tracker.Add(2048)
	tracker.Stop()
	tracker.Stop()

	logged := out.String()
	assert.Contains(t, logged, "msg=progress")
	assert.Equal(t, 1, strings.Count(logged, "processing complete"))
	assert.Contains(t, logged, "processed=\"4.0 KiB\"")
}

func TestWriterCountsBytes(t *testing.T) {
	tracker := New(0)
	var dst bytes.Buffer
	w := &Writer{W: &dst, Tracker: tracker}

	n, err := w.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, uint64(5), tracker.Processed())
	assert.Equal(t, "hello", dst.String())
}
