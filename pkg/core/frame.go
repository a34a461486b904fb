package core

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"gsea/pkg/progress"
	"gsea/pkg/status"
)

// LZ4 and zstd streams are standard frames produced by the upstream
// libraries; they carry their own magic numbers, which DetectFormat
// uses to route them.

func compressLZ4Stream(r io.Reader, w io.Writer, opts Options) error {
	zw := lz4.NewWriter(&statusWriter{w: w})
	if _, err := io.Copy(zw, &progressReader{r: r, tracker: opts.Progress}); err != nil {
		return fmt.Errorf("lz4 compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return status.IO("close lz4 writer", err)
	}
	return nil
}

func decompressLZ4Stream(r io.Reader, w io.Writer, opts Options) error {
	zr := lz4.NewReader(&statusReader{r: r})
	pw := &progress.Writer{W: &statusWriter{w: w}, Tracker: opts.Progress}
	if _, err := io.Copy(pw, zr); err != nil {
		return classifyFrameError("lz4", err)
	}
	return nil
}

func compressZstdStream(r io.Reader, w io.Writer, opts Options) error {
	zw, err := zstd.NewWriter(&statusWriter{w: w}, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true))
	if err != nil {
		return fmt.Errorf("zstd encoder: %w", err)
	}
	if _, err := io.Copy(zw, &progressReader{r: r, tracker: opts.Progress}); err != nil {
		zw.Close()
		return fmt.Errorf("zstd compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return status.IO("close zstd writer", err)
	}
	return nil
}

func decompressZstdStream(r io.Reader, w io.Writer, opts Options) error {
	zr, err := zstd.NewReader(&statusReader{r: r})
	if err != nil {
		return fmt.Errorf("zstd decoder: %w", err)
	}
	defer zr.Close()

	pw := &progress.Writer{W: &statusWriter{w: w}, Tracker: opts.Progress}
	if _, err := io.Copy(pw, zr); err != nil {
		return classifyFrameError("zstd", err)
	}
	return nil
}

// classifyFrameError maps a frame decoder failure onto the error
// taxonomy. Errors that already carry ErrIO come from the underlying
// reader or writer.
func classifyFrameError(codec string, err error) error {
	switch {
	case errors.Is(err, status.ErrIO):
		return err
	case errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%s frame: %w: %w", codec, status.ErrTruncated, err)
	default:
		return fmt.Errorf("%s frame: %w: %w", codec, status.ErrCorruptPacket, err)
	}
}

// progressReader records bytes read on a tracker.
type progressReader struct {
	r       io.Reader
	tracker *progress.Tracker
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	pr.tracker.Add(n)
	return n, err
}

// statusReader and statusWriter tag failures of the wrapped stream with
// ErrIO so they are not mistaken for frame corruption.
type statusReader struct {
	r io.Reader
}

func (sr *statusReader) Read(p []byte) (int, error) {
	n, err := sr.r.Read(p)
	if err != nil && err != io.EOF {
		err = status.IO("read input", err)
	}
	return n, err
}

type statusWriter struct {
	w io.Writer
}

func (sw *statusWriter) Write(p []byte) (int, error) {
	n, err := sw.w.Write(p)
	return n, status.IO("write output", err)
}
