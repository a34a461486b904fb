package core

import (
	"bytes"
	"fmt"
	"strings"

	"gsea/pkg/progress"
	"gsea/pkg/rle"
	"gsea/pkg/status"
)

// Constants for the RLE2 stream format
const (
	Magic           = "RLE2\x00\x00\x00\x00" // Stream header: identifier plus four zero bytes
	HeaderSize      = len(Magic)
	BlockHeaderSize = 5 // tag byte plus little-endian uint32 payload length

	DefaultBlockSize = 64 * 1024
	// MaxPayload is the largest block payload the decompressor will
	// allocate for.
	MaxPayload = 256 << 20
)

// BlockTag distinguishes stored blocks from run-encoded blocks
type BlockTag byte

const (
	TagRaw BlockTag = 0x00 // Payload is the input bytes verbatim
	TagRun BlockTag = 0x01 // Payload is run-transform packets
)

func (tag BlockTag) String() string {
	switch tag {
	case TagRaw:
		return "raw"
	case TagRun:
		return "run"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(tag))
	}
}

// Format identifies a compressed stream encoding.
type Format int

const (
	FormatRLE2 Format = iota
	FormatLZ4
	FormatZstd
)

var (
	lz4FrameMagic  = []byte{0x04, 0x22, 0x4D, 0x18}
	zstdFrameMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
)

func (f Format) String() string {
	switch f {
	case FormatRLE2:
		return "rle2"
	case FormatLZ4:
		return "lz4"
	case FormatZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// Extension returns the file name suffix used for compressed
// artifacts in directory mode.
func (f Format) Extension() string {
	switch f {
	case FormatLZ4:
		return ".lz4"
	case FormatZstd:
		return ".zst"
	default:
		return ".rle"
	}
}

// ParseFormat parses a format name as accepted by --codec.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "rle2", "":
		return FormatRLE2, nil
	case "lz4":
		return FormatLZ4, nil
	case "zstd":
		return FormatZstd, nil
	default:
		return 0, fmt.Errorf("unknown codec %q", name)
	}
}

// DetectFormat identifies the format of a stream from its first bytes.
// header may be shorter than HeaderSize when the stream itself is.
func DetectFormat(header []byte) (Format, error) {
	switch {
	case len(header) < len(lz4FrameMagic):
		return 0, fmt.Errorf("stream is %d bytes, too short for a header: %w", len(header), status.ErrBadMagic)
	case len(header) < HeaderSize && strings.HasPrefix(Magic, string(header)):
		return 0, fmt.Errorf("short stream header: %w", status.ErrBadMagic)
	case len(header) >= HeaderSize && string(header[:HeaderSize]) == Magic:
		return FormatRLE2, nil
	case bytes.HasPrefix(header, lz4FrameMagic):
		return FormatLZ4, nil
	case bytes.HasPrefix(header, zstdFrameMagic):
		return FormatZstd, nil
	default:
		return 0, fmt.Errorf("header %q: %w", header, status.ErrUnknownFormat)
	}
}

// TrimExtension maps a compressed artifact name back to the original
// name: a known extension is removed, anything else gets ".out".
func TrimExtension(name string) string {
	for _, ext := range []string{".rle", ".lz4", ".zst"} {
		if base, ok := strings.CutSuffix(name, ext); ok && base != "" {
			return base
		}
	}
	return name + ".out"
}

// Options configures compression and decompression.
type Options struct {
	Format       Format            // Output format for compression; ignored when decompressing
	BlockSize    int               // Input bytes per RLE2 block; zero means DefaultBlockSize
	RunThreshold int               // Minimum run length for run packets; zero means rle.DefaultMinRun
	Progress     *progress.Tracker // Receives consumed input bytes; may be nil
}

func (o Options) blockSize() int {
	if o.BlockSize <= 0 {
		return DefaultBlockSize
	}
	return min(o.BlockSize, MaxPayload)
}

func (o Options) runThreshold() int {
	if o.RunThreshold <= 0 {
		return rle.DefaultMinRun
	}
	return o.RunThreshold
}
