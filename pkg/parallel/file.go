package parallel

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"gsea/pkg/cipher"
	"gsea/pkg/logging"
	"gsea/pkg/status"
)

// EncryptFile encrypts input into output. See ProcessFile.
func EncryptFile(input, output string, key []byte, opts Options) (Layout, error) {
	return ProcessFile(input, output, key, cipher.Encrypt, opts)
}

// DecryptFile decrypts input into output. See ProcessFile.
func DecryptFile(input, output string, key []byte, opts Options) (Layout, error) {
	return ProcessFile(input, output, key, cipher.Decrypt, opts)
}

// ProcessFile applies the cipher to the whole of input and writes the
// result to output, returning the layout it used. Small files are
// streamed by one worker; larger ones are split per Plan and the
// regions are processed concurrently. When several workers fail, the
// error of the first one to return is reported, after every worker
// has finished.
func ProcessFile(input, output string, key []byte, mode cipher.Mode, opts Options) (layout Layout, err error) {
	if len(key) == 0 {
		return Layout{}, status.ErrEmptyKey
	}
	logger := logging.OrDiscard(opts.Logger)

	in, err := os.Open(input)
	if err != nil {
		return Layout{}, status.IO("open input", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return Layout{}, status.IO("stat input", err)
	}

	if opts.Layout != nil {
		layout = *opts.Layout
	} else {
		layout = Plan(info.Size(), opts)
	}
	if err := layout.Validate(info.Size()); err != nil {
		return Layout{}, fmt.Errorf("%s %s: %w", mode, input, err)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return Layout{}, status.IO("create output directory", err)
	}
	out, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return Layout{}, status.IO("open output", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = status.IO("close output", closeErr)
		}
	}()

	logger.Debug("cipher layout",
		"mode", mode.String(),
		"input", input,
		"size", layout.FileSize,
		"sequential", layout.Sequential,
		"workers", layout.Workers,
	)

	if layout.Sequential {
		// A window covering the whole file transforms it the same way
		// as any larger one.
		window := int(min(int64(layout.Window), max(layout.FileSize, 1)))
		if err := cipher.Stream(in, out, key, mode, window, opts.Progress); err != nil {
			return Layout{}, fmt.Errorf("%s %s: %w", mode, input, err)
		}
		return layout, nil
	}

	if err := presize(out, layout.FileSize); err != nil {
		return Layout{}, status.IO("presize output", err)
	}

	var g errgroup.Group
	for i, region := range layout.Regions {
		worker := &regionWorker{
			id:     i + 1,
			in:     in,
			out:    out,
			region: region,
			window: layout.Window,
			key:    key,
			mode:   mode,
			opts:   opts,
			logger: logger,
		}
		g.Go(worker.run)
	}
	if err := g.Wait(); err != nil {
		return Layout{}, fmt.Errorf("%s %s: %w", mode, input, err)
	}
	return layout, nil
}

// regionWorker processes one region. The input and output files are
// shared with the other workers; ReadAt and WriteAt never move a shared
// cursor and the regions are disjoint, so no locking is needed.
type regionWorker struct {
	id     int
	in     io.ReaderAt
	out    io.WriterAt
	region Region
	window int
	key    []byte
	mode   cipher.Mode
	opts   Options
	logger *slog.Logger
}

func (w *regionWorker) run() error {
	w.logger.Debug("region worker started",
		"worker", w.id,
		"offset", w.region.Offset,
		"length", w.region.Length,
	)

	buf := make([]byte, min(int64(w.window), w.region.Length))
	pos := w.region.Offset
	for pos < w.region.End() {
		chunk := buf[:min(int64(len(buf)), w.region.End()-pos)]

		n, err := w.in.ReadAt(chunk, pos)
		if n < len(chunk) {
			if err == nil || errors.Is(err, io.EOF) {
				return fmt.Errorf("worker %d: input ended at offset %d: %w", w.id, pos+int64(n), status.ErrTruncated)
			}
			return fmt.Errorf("worker %d: %w", w.id, status.IO("read input", err))
		}

		if err := cipher.Apply(chunk, w.key, w.mode); err != nil {
			return err
		}
		if _, err := w.out.WriteAt(chunk, pos); err != nil {
			return fmt.Errorf("worker %d: %w", w.id, status.IO("write output", err))
		}
		w.opts.Progress.Add(len(chunk))
		pos += int64(len(chunk))
	}

	w.logger.Debug("region worker finished", "worker", w.id, "offset", w.region.Offset)
	return nil
}
