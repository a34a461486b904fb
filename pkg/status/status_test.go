package status

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, OK},
		{"bad magic", fmt.Errorf("reading header: %w", ErrBadMagic), CodeBadMagic},
		{"truncated", fmt.Errorf("block 3: %w", ErrTruncated), CodeTruncated},
		{"corrupt", ErrCorruptPacket, CodeCorruptPacket},
		{"tag", ErrUnknownBlockTag, CodeUnknownBlockTag},
		{"empty key", ErrEmptyKey, CodeEmptyKey},
		{"exhausted", ErrResourceExhausted, CodeResourceExhausted},
		{"format", ErrUnknownFormat, CodeUnknownFormat},
		{"layout", ErrLayoutMismatch, CodeLayoutMismatch},
		{"io", IO("write", errors.New("disk full")), CodeIO},
		{"other", errors.New("something else"), CodeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestCodePrefersFormatOverIO(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrTruncated, IO("read", errors.New("eof")))
	assert.Equal(t, CodeTruncated, Code(err))
}

func TestIOKeepsUnderlyingError(t *testing.T) {
	_, openErr := os.Open("/definitely/not/here")
	require.Error(t, openErr)

	err := IO("open input", openErr)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	var pathErr *fs.PathError
	assert.ErrorAs(t, err, &pathErr)
	assert.Contains(t, err.Error(), "open input")
}

func TestIONil(t *testing.T) {
	assert.NoError(t, IO("read", nil))
}
