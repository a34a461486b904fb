package core

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gsea/pkg/rle"
	"gsea/pkg/status"
)

// CompressFile compresses the file at input into output using
// opts.Format. The output file is created or truncated.
func CompressFile(input, output string, opts Options) (err error) {
	in, err := os.Open(input)
	if err != nil {
		return status.IO("open input", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return status.IO("create output directory", err)
	}
	out, err := os.Create(output)
	if err != nil {
		return status.IO("create output", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = status.IO("close output", closeErr)
		}
	}()

	bw := bufio.NewWriterSize(out, 64*1024)
	if err := Compress(in, bw, opts); err != nil {
		return fmt.Errorf("compress %s: %w", input, err)
	}
	if err := bw.Flush(); err != nil {
		return status.IO("flush output", err)
	}
	return nil
}

// Compress writes the compressed form of r to w in opts.Format.
func Compress(r io.Reader, w io.Writer, opts Options) error {
	switch opts.Format {
	case FormatRLE2:
		return CompressStream(r, w, opts)
	case FormatLZ4:
		return compressLZ4Stream(r, w, opts)
	case FormatZstd:
		return compressZstdStream(r, w, opts)
	default:
		return fmt.Errorf("unsupported format %s", opts.Format)
	}
}

// CompressStream writes the RLE2 encoding of r to w: the stream header
// followed by one block per BlockSize bytes of input. Each block holds
// whichever of the raw bytes or their run transform is smaller, with
// ties going to raw, so a block never grows beyond its 5-byte header.
// Empty input produces the header alone.
func CompressStream(r io.Reader, w io.Writer, opts Options) error {
	if _, err := io.WriteString(w, Magic); err != nil {
		return status.IO("write header", err)
	}

	blockSize := opts.blockSize()
	threshold := opts.runThreshold()
	input := make([]byte, blockSize)
	encoded := make([]byte, 0, rle.MaxEncodedLen(blockSize))
	var header [BlockHeaderSize]byte

	for {
		n, err := io.ReadFull(r, input)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return status.IO("read input", err)
		}
		if n == 0 {
			return nil
		}

		raw := input[:n]
		encoded = rle.Encode(encoded[:0], raw, threshold)

		tag, payload := TagRun, encoded
		if len(encoded) >= len(raw) {
			tag, payload = TagRaw, raw
		}

		header[0] = byte(tag)
		binary.LittleEndian.PutUint32(header[1:], uint32(len(payload)))
		if _, err := w.Write(header[:]); err != nil {
			return status.IO("write block header", err)
		}
		if _, err := w.Write(payload); err != nil {
			return status.IO("write block payload", err)
		}
		opts.Progress.Add(n)

		if n < blockSize {
			return nil
		}
	}
}
