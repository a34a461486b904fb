// Package parallel applies the cipher to whole files, splitting large
// files into contiguous regions that independent workers process with
// positioned reads and writes.
//
// The partition depends on the number of processing units. Encrypting
// on one machine and decrypting on another with a different CPU count
// produces different region boundaries, and because the key phase
// restarts at every region and every window, the decrypted output is
// wrong. Pin Options.ProcessingUnits, or carry the Layout used for
// encryption to the decrypting side (see WriteLayout), to make the
// ciphertext portable.
package parallel

import (
	"fmt"
	"log/slog"
	"runtime"

	"gsea/pkg/cipher"
	"gsea/pkg/progress"
	"gsea/pkg/status"
)

// Defaults for Options.
const (
	DefaultParallelThreshold = 1024 * 1024
	DefaultMaxWorkers        = 8
)

// Options configures planning and processing of a single file.
type Options struct {
	// Window is the read window per worker; the key phase resets at
	// the start of each window. Zero means cipher.DefaultWindow.
	Window int
	// ParallelThreshold is the smallest file size processed by more
	// than one worker. Zero means DefaultParallelThreshold.
	ParallelThreshold int64
	// MaxWorkers caps the number of region workers. Zero means
	// DefaultMaxWorkers.
	MaxWorkers int
	// ProcessingUnits is the CPU count used for planning. Zero means
	// runtime.NumCPU().
	ProcessingUnits int

	// Layout, when set, is applied instead of planning. It must
	// describe a file of exactly the input's size.
	Layout *Layout

	Logger   *slog.Logger
	Progress *progress.Tracker
}

func (o Options) window() int {
	if o.Window <= 0 {
		return cipher.DefaultWindow
	}
	return o.Window
}

func (o Options) parallelThreshold() int64 {
	if o.ParallelThreshold <= 0 {
		return DefaultParallelThreshold
	}
	return o.ParallelThreshold
}

func (o Options) maxWorkers() int {
	if o.MaxWorkers <= 0 {
		return DefaultMaxWorkers
	}
	return o.MaxWorkers
}

func (o Options) processingUnits() int {
	if o.ProcessingUnits <= 0 {
		return runtime.NumCPU()
	}
	return o.ProcessingUnits
}

// Region is a contiguous byte range of a file assigned to one worker.
type Region struct {
	Offset int64 `cbor:"offset"`
	Length int64 `cbor:"length"`
}

// End returns the offset one past the last byte of the region.
func (r Region) End() int64 {
	return r.Offset + r.Length
}

// Layout is the partition of a file into regions. A sequential layout
// has a single worker that streams the file from offset zero.
type Layout struct {
	Version    int      `cbor:"version"`
	FileSize   int64    `cbor:"file_size"`
	Window     int      `cbor:"window"`
	Sequential bool     `cbor:"sequential"`
	Workers    int      `cbor:"workers"`
	Regions    []Region `cbor:"regions"`
}

// LayoutVersion is the current Layout encoding version.
const LayoutVersion = 1

// Plan returns the layout for a file of the given size. It is a pure
// function of size and opts: the same inputs always give the same
// regions, which is what makes decryption reproduce encryption.
func Plan(size int64, opts Options) Layout {
	workers := min(opts.processingUnits(), opts.maxWorkers())
	layout := Layout{
		Version:  LayoutVersion,
		FileSize: size,
		Window:   opts.window(),
	}

	if size == 0 || size < opts.parallelThreshold() || workers <= 1 {
		layout.Sequential = true
		layout.Workers = 1
		if size > 0 {
			layout.Regions = []Region{{Offset: 0, Length: size}}
		}
		return layout
	}

	chunk := (size + int64(workers) - 1) / int64(workers)
	for i := range int64(workers) {
		offset := i * chunk
		if offset >= size {
			break
		}
		end := min(offset+chunk, size)
		layout.Regions = append(layout.Regions, Region{Offset: offset, Length: end - offset})
	}
	layout.Workers = len(layout.Regions)
	return layout
}

// Validate checks that the layout partitions a file of size bytes
// exactly: regions are in order, contiguous from zero, and cover every
// byte once.
func (l Layout) Validate(size int64) error {
	if l.FileSize != size {
		return fmt.Errorf("layout describes %d bytes, file has %d: %w", l.FileSize, size, status.ErrLayoutMismatch)
	}
	if l.Window <= 0 {
		return fmt.Errorf("layout window %d: %w", l.Window, status.ErrLayoutMismatch)
	}
	if l.Window > cipher.MaxWindow {
		return fmt.Errorf("layout window %d exceeds %d: %w", l.Window, cipher.MaxWindow, status.ErrResourceExhausted)
	}
	var next int64
	for i, region := range l.Regions {
		if region.Offset != next || region.Length <= 0 {
			return fmt.Errorf("region %d [%d,+%d) does not continue at %d: %w",
				i, region.Offset, region.Length, next, status.ErrLayoutMismatch)
		}
		next = region.End()
	}
	if next != size {
		return fmt.Errorf("regions cover %d of %d bytes: %w", next, size, status.ErrLayoutMismatch)
	}
	if l.Sequential && len(l.Regions) > 1 {
		return fmt.Errorf("sequential layout with %d regions: %w", len(l.Regions), status.ErrLayoutMismatch)
	}
	return nil
}
