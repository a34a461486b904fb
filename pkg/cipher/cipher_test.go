package cipher

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsea/pkg/progress"
	"gsea/pkg/status"
)

func TestApplyKnownValues(t *testing.T) {
	buf := []byte{0x00, 0x10, 0xFF, 0x80, 0x01}
	key := []byte{0x01, 0x02}

	require.NoError(t, Apply(buf, key, Encrypt))
	assert.Equal(t, []byte{0x01, 0x12, 0x00, 0x82, 0x02}, buf)

	require.NoError(t, Apply(buf, key, Decrypt))
	assert.Equal(t, []byte{0x00, 0x10, 0xFF, 0x80, 0x01}, buf)
}

func TestApplyEmptyKey(t *testing.T) {
	buf := []byte("unchanged")
	assert.ErrorIs(t, Apply(buf, nil, Encrypt), status.ErrEmptyKey)
	assert.Equal(t, "unchanged", string(buf))
}

func TestApplyRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	for trial := range 50 {
		data := make([]byte, rng.IntN(5000))
		for i := range data {
			data[i] = byte(rng.Uint32())
		}
		key := make([]byte, 1+rng.IntN(40))
		for i := range key {
			key[i] = byte(rng.Uint32())
		}

		buf := append([]byte(nil), data...)
		require.NoError(t, Apply(buf, key, Encrypt))
		require.NoError(t, Apply(buf, key, Decrypt))
		require.Equal(t, data, buf, "trial %d", trial)
	}
}

func TestApplyKeyPhaseRestartsPerBuffer(t *testing.T) {
	key := []byte("KEY")
	whole := bytes.Repeat([]byte{0}, 8)
	require.NoError(t, Apply(whole, key, Encrypt))
	assert.Equal(t, []byte("KEYKEYKE"), whole)

	split := bytes.Repeat([]byte{0}, 8)
	require.NoError(t, Apply(split[:4], key, Encrypt))
	require.NoError(t, Apply(split[4:], key, Encrypt))
	assert.Equal(t, []byte("KEYKKEYK"), split)
}

func TestStreamWindows(t *testing.T) {
	input := bytes.Repeat([]byte{0}, 10)
	var out bytes.Buffer
	tracker := progress.New(10)

	require.NoError(t, Stream(bytes.NewReader(input), &out, []byte("ab"), Encrypt, 3, tracker))
	assert.Equal(t, "abaabaabaa", out.String())
	assert.Equal(t, uint64(10), tracker.Processed())
}

func TestStreamRoundTrip(t *testing.T) {
	input := make([]byte, 200_000)
	for i := range input {
		input[i] = byte(i * 31)
	}
	key := []byte("s3cr3t")

	var encrypted, decrypted bytes.Buffer
	require.NoError(t, Stream(bytes.NewReader(input), &encrypted, key, Encrypt, 0, nil))
	require.NoError(t, Stream(&encrypted, &decrypted, key, Decrypt, 0, nil))
	assert.True(t, bytes.Equal(input, decrypted.Bytes()))
}

func TestStreamEmptyInput(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Stream(bytes.NewReader(nil), &out, []byte("k"), Encrypt, 0, nil))
	assert.Zero(t, out.Len())

	assert.ErrorIs(t, Stream(bytes.NewReader(nil), &out, nil, Encrypt, 0, nil), status.ErrEmptyKey)
}

func TestStreamRejectsOversizedWindow(t *testing.T) {
	var out bytes.Buffer
	err := Stream(bytes.NewReader([]byte("data")), &out, []byte("k"), Encrypt, MaxWindow+1, nil)
	assert.ErrorIs(t, err, status.ErrResourceExhausted)
	assert.Zero(t, out.Len())
}

func TestParseKey(t *testing.T) {
	key, err := ParseKey("KEY")
	require.NoError(t, err)
	assert.Equal(t, []byte("KEY"), key)

	_, err = ParseKey("")
	assert.ErrorIs(t, err, status.ErrEmptyKey)
}

func BenchmarkApply(b *testing.B) {
	buf := make([]byte, DefaultWindow)
	key := []byte("benchmark-key")
	b.SetBytes(int64(len(buf)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Apply(buf, key, Encrypt)
	}
}
