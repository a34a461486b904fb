// Package cipher implements the reversible byte-addition cipher. It is
// an obfuscation scheme, not encryption in any cryptographic sense.
//
// The key index restarts at zero for every buffer passed to Apply. A
// ciphertext can therefore only be decrypted by splitting it into
// buffers of exactly the same sizes and positions that were used to
// encrypt it.
package cipher

import (
	"errors"
	"fmt"
	"io"

	"gsea/pkg/progress"
	"gsea/pkg/status"
)

// DefaultWindow is the read window of the sequential stream. The key
// phase resets at the start of every window.
const DefaultWindow = 64 * 1024

// MaxWindow is the largest window Stream allocates.
const MaxWindow = 256 << 20

// Mode selects the direction of the transform.
type Mode bool

const (
	Encrypt Mode = true
	Decrypt Mode = false
)

func (m Mode) String() string {
	if m == Encrypt {
		return "encrypt"
	}
	return "decrypt"
}

// Apply transforms buf in place with key, starting at key index 0.
// Encryption adds key[i mod len(key)] to each byte modulo 256 and
// decryption subtracts it.
func Apply(buf, key []byte, mode Mode) error {
	if len(key) == 0 {
		return status.ErrEmptyKey
	}
	k := 0
	if mode == Encrypt {
		for i := range buf {
			buf[i] += key[k]
			if k++; k == len(key) {
				k = 0
			}
		}
		return nil
	}
	for i := range buf {
		buf[i] -= key[k]
		if k++; k == len(key) {
			k = 0
		}
	}
	return nil
}

// Stream applies the cipher to r window by window and writes the
// result to w. Every window except the last is exactly window bytes,
// so the key phase resets at fixed offsets from the start of r. A
// non-positive window means DefaultWindow.
func Stream(r io.Reader, w io.Writer, key []byte, mode Mode, window int, tracker *progress.Tracker) error {
	if len(key) == 0 {
		return status.ErrEmptyKey
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if window > MaxWindow {
		return fmt.Errorf("cipher window %d exceeds %d: %w", window, MaxWindow, status.ErrResourceExhausted)
	}

	buf := make([]byte, window)
	for {
		n, err := io.ReadFull(r, buf)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return status.IO("read input", err)
		}
		if n == 0 {
			return nil
		}
		if err := Apply(buf[:n], key, mode); err != nil {
			return err
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return status.IO("write output", err)
		}
		tracker.Add(n)
		if n < window {
			return nil
		}
	}
}

// ParseKey validates a key given on the command line.
func ParseKey(key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("key: %w", status.ErrEmptyKey)
	}
	return []byte(key), nil
}
