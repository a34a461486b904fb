// Package status defines the error taxonomy shared by the codec, cipher
// and schedulers, and maps errors onto the numeric result codes stored
// in report rows.
package status

import (
	"errors"
	"fmt"
)

var (
	// ErrBadMagic is returned when a stream header is short or does not
	// match the expected identifier.
	ErrBadMagic = errors.New("bad magic")
	// ErrTruncated is returned when a stream ends in the middle of a
	// block header or payload.
	ErrTruncated = errors.New("truncated stream")
	// ErrCorruptPacket is returned by the run transform decoder.
	ErrCorruptPacket = errors.New("corrupt packet")
	// ErrUnknownBlockTag is returned for a block tag other than RAW or RUN.
	ErrUnknownBlockTag = errors.New("unknown block tag")
	// ErrEmptyKey is returned when a cipher key has no bytes.
	ErrEmptyKey = errors.New("empty key")
	// ErrIO wraps read, write, open and seek failures at the OS boundary.
	ErrIO = errors.New("i/o error")
	// ErrResourceExhausted is returned when a declared size exceeds
	// what the process is willing to allocate.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrUnknownFormat is returned when no codec recognizes a stream.
	ErrUnknownFormat = errors.New("unknown format")
	// ErrLayoutMismatch is returned when a region layout does not
	// describe the file it is applied to.
	ErrLayoutMismatch = errors.New("layout mismatch")
)

// Result codes. OK is the only zero value; every failure is non-zero.
const (
	OK = iota
	CodeIO
	CodeBadMagic
	CodeTruncated
	CodeCorruptPacket
	CodeUnknownBlockTag
	CodeEmptyKey
	CodeResourceExhausted
	CodeUnknownFormat
	CodeLayoutMismatch
	CodeOther
)

var codes = []struct {
	err  error
	code int
}{
	{ErrBadMagic, CodeBadMagic},
	{ErrTruncated, CodeTruncated},
	{ErrCorruptPacket, CodeCorruptPacket},
	{ErrUnknownBlockTag, CodeUnknownBlockTag},
	{ErrEmptyKey, CodeEmptyKey},
	{ErrResourceExhausted, CodeResourceExhausted},
	{ErrUnknownFormat, CodeUnknownFormat},
	{ErrLayoutMismatch, CodeLayoutMismatch},
	{ErrIO, CodeIO},
}

// Code returns the result code for err. Format errors take precedence
// over ErrIO so that a truncated read reports CodeTruncated.
func Code(err error) int {
	if err == nil {
		return OK
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeOther
}

// ioError carries both ErrIO and the underlying OS error so that
// errors.Is and errors.As reach either of them.
type ioError struct {
	op  string
	err error
}

func (e *ioError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *ioError) Unwrap() []error {
	return []error{ErrIO, e.err}
}

// IO wraps an OS-boundary failure. It returns nil when err is nil.
func IO(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ioError{op: op, err: err}
}
