// Package rle implements the PackBits-style run transform used inside
// RUN blocks of the compressed stream.
//
// An encoded buffer is a sequence of packets. Each packet starts with a
// control byte. When the high bit is clear, control+1 literal bytes
// follow. When the high bit is set, (control&0x7F)+1 is a repeat count
// and exactly one value byte follows.
//
// Runs shorter than the configured minimum are folded into literal
// packets. A run that meets the minimum is always encoded as run
// packets in full, so literals never straddle a qualifying run.
package rle

import (
	"fmt"
	"slices"

	"gsea/pkg/status"
)

// MaxPacket is the largest number of bytes a single packet covers.
const MaxPacket = 128

// DefaultMinRun is the run threshold used by the block codec.
const DefaultMinRun = 3

// MaxEncodedLen returns an upper bound on the encoded size of n input
// bytes when the run threshold is at least 3: the worst case is all
// literals, one control byte per packet.
func MaxEncodedLen(n int) int {
	return n + (n+MaxPacket-1)/MaxPacket
}

// runLength returns the length of the run of src[i] starting at i.
// The count stops at limit.
func runLength(src []byte, i, limit int) int {
	n := 1
	for i+n < len(src) && src[i+n] == src[i] && n < limit {
		n++
	}
	return n
}

// Encode appends the encoding of src to dst and returns the extended
// buffer. Runs of at least minRun equal bytes become run packets; a
// minRun below 1 is treated as 1.
func Encode(dst, src []byte, minRun int) []byte {
	if minRun < 1 {
		minRun = 1
	}
	dst = slices.Grow(dst, MaxEncodedLen(len(src)))

	i := 0
	for i < len(src) {
		if run := runLength(src, i, len(src)); run >= minRun {
			value := src[i]
			i += run
			for run > 0 {
				chunk := min(run, MaxPacket)
				dst = append(dst, 0x80|byte(chunk-1), value)
				run -= chunk
			}
			continue
		}

		// Grow a literal, stopping before any position where a
		// qualifying run begins.
		start := i
		length := 1
		for start+length < len(src) && length < MaxPacket {
			if runLength(src, start+length, minRun) >= minRun {
				break
			}
			length++
		}
		dst = append(dst, byte(length-1))
		dst = append(dst, src[start:start+length]...)
		i += length
	}
	return dst
}

// DecodedLen validates src and returns the number of bytes Decode
// would produce.
func DecodedLen(src []byte) (int, error) {
	total := 0
	i := 0
	for i < len(src) {
		control := src[i]
		i++
		if control&0x80 == 0 {
			length := int(control) + 1
			if i+length > len(src) {
				return 0, fmt.Errorf("literal packet at offset %d declares %d bytes, %d remain: %w",
					i-1, length, len(src)-i, status.ErrCorruptPacket)
			}
			total += length
			i += length
			continue
		}
		if i >= len(src) {
			return 0, fmt.Errorf("run packet at offset %d has no value byte: %w",
				i-1, status.ErrCorruptPacket)
		}
		total += int(control&0x7F) + 1
		i++
	}
	return total, nil
}

// Decode appends the decoding of src to dst and returns the extended
// buffer. The required capacity is negotiated up front through
// DecodedLen, so dst grows at most once.
func Decode(dst, src []byte) ([]byte, error) {
	size, err := DecodedLen(src)
	if err != nil {
		return dst, err
	}
	dst = slices.Grow(dst, size)

	i := 0
	for i < len(src) {
		control := src[i]
		i++
		if control&0x80 == 0 {
			length := int(control) + 1
			dst = append(dst, src[i:i+length]...)
			i += length
			continue
		}
		length := int(control&0x7F) + 1
		value := src[i]
		i++
		for range length {
			dst = append(dst, value)
		}
	}
	return dst, nil
}
