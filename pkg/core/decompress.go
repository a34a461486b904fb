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

// DecompressFile decompresses the file at input into output. The
// format is detected from the first bytes of input; the output file is
// only created once the header has been recognized.
func DecompressFile(input, output string, opts Options) (err error) {
	in, err := os.Open(input)
	if err != nil {
		return status.IO("open input", err)
	}
	defer in.Close()

	br := bufio.NewReaderSize(in, 64*1024)
	format, err := peekFormat(br)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", input, err)
	}

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
	opts.Format = format
	if err := Decompress(br, bw, opts); err != nil {
		return fmt.Errorf("decompress %s: %w", input, err)
	}
	if err := bw.Flush(); err != nil {
		return status.IO("flush output", err)
	}
	return nil
}

// peekFormat inspects the stream header without consuming it.
func peekFormat(br *bufio.Reader) (Format, error) {
	header, err := br.Peek(HeaderSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, status.IO("read header", err)
	}
	return DetectFormat(header)
}

// Decompress reads a stream in opts.Format from r and writes the
// decoded bytes to w.
func Decompress(r io.Reader, w io.Writer, opts Options) error {
	switch opts.Format {
	case FormatRLE2:
		return DecompressStream(r, w, opts)
	case FormatLZ4:
		return decompressLZ4Stream(r, w, opts)
	case FormatZstd:
		return decompressZstdStream(r, w, opts)
	default:
		return fmt.Errorf("unsupported format %s", opts.Format)
	}
}

// DecompressStream decodes an RLE2 stream from r into w. The stream
// must end exactly at a block boundary; a header or payload cut short
// is ErrTruncated. Zero-length blocks are skipped.
func DecompressStream(r io.Reader, w io.Writer, opts Options) error {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("short stream header: %w", status.ErrBadMagic)
		}
		return status.IO("read header", err)
	}
	if string(header[:]) != Magic {
		return fmt.Errorf("stream header %q: %w", header[:], status.ErrBadMagic)
	}

	var (
		blockHeader [BlockHeaderSize]byte
		payload     []byte
		decoded     []byte
	)
	for block := 0; ; block++ {
		if _, err := io.ReadFull(r, blockHeader[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("block %d header: %w", block, status.ErrTruncated)
			}
			return status.IO("read block header", err)
		}

		tag := BlockTag(blockHeader[0])
		length := binary.LittleEndian.Uint32(blockHeader[1:])
		if length == 0 {
			continue
		}
		if length > MaxPayload {
			return fmt.Errorf("block %d declares %d payload bytes, limit is %d: %w",
				block, length, MaxPayload, status.ErrResourceExhausted)
		}

		if cap(payload) < int(length) {
			payload = make([]byte, length)
		}
		payload = payload[:length]
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("block %d payload: %w", block, status.ErrTruncated)
			}
			return status.IO("read block payload", err)
		}

		var out []byte
		switch tag {
		case TagRaw:
			out = payload
		case TagRun:
			size, err := rle.DecodedLen(payload)
			if err != nil {
				return fmt.Errorf("block %d: %w", block, err)
			}
			if size > MaxPayload {
				return fmt.Errorf("block %d decodes to %d bytes, limit is %d: %w",
					block, size, MaxPayload, status.ErrResourceExhausted)
			}
			decoded, err = rle.Decode(decoded[:0], payload)
			if err != nil {
				return fmt.Errorf("block %d: %w", block, err)
			}
			out = decoded
		default:
			return fmt.Errorf("block %d tag 0x%02x: %w", block, byte(tag), status.ErrUnknownBlockTag)
		}

		if _, err := w.Write(out); err != nil {
			return status.IO("write output", err)
		}
		opts.Progress.Add(len(out))
	}
}
