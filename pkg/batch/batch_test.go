package batch

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsea/pkg/core"
	"gsea/pkg/status"
)

// populate creates count regular files plus a symlink, a subdirectory
// and a dotfile, and returns the regular files' contents by name.
func populate(t *testing.T, dir string, count int) map[string][]byte {
	t.Helper()
	files := make(map[string][]byte, count)
	for i := range count {
		name := fmt.Sprintf("file%02d.txt", i)
		content := bytes.Repeat([]byte(fmt.Sprintf("line %d of some repetitive text\n", i)), 50+i*10)
		content = append(content, bytes.Repeat([]byte{byte(i)}, 300)...)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0644))
		files[name] = content
	}
	require.NoError(t, os.Symlink(filepath.Join(dir, "file00.txt"), filepath.Join(dir, "link.txt")))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("secret"), 0644))
	return files
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestDirCompressSkipsNonRegularEntries(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "compressed")
	files := populate(t, src, 20)

	rows, err := Dir(Compress, src, dst, Options{Limit: 8})
	require.NoError(t, err)
	require.Len(t, rows, 20)
	for i, row := range rows {
		assert.Equal(t, fmt.Sprintf("file%02d.txt", i), row.Name)
		assert.True(t, row.OK(), "%s: %v", row.Name, row.Err)
		assert.Equal(t, int64(len(files[row.Name])), row.InputSize)
		assert.Positive(t, row.OutputSize)
	}

	names := listNames(t, dst)
	assert.Len(t, names, 20)
	for name := range files {
		assert.Contains(t, names, name+".rle")
	}
}

func TestDirRoundTrip(t *testing.T) {
	src := t.TempDir()
	work := t.TempDir()
	files := populate(t, src, 12)
	key := []byte("batch-key")

	compressed := filepath.Join(work, "compressed")
	encrypted := filepath.Join(work, "encrypted")
	decrypted := filepath.Join(work, "decrypted")
	restored := filepath.Join(work, "restored")

	steps := []struct {
		op       Op
		src, dst string
	}{
		{Compress, src, compressed},
		{Encrypt, compressed, encrypted},
		{Decrypt, encrypted, decrypted},
		{Decompress, decrypted, restored},
	}
	for _, step := range steps {
		rows, err := Dir(step.op, step.src, step.dst, Options{Limit: 3, Key: key})
		require.NoError(t, err, step.op.String())
		require.Len(t, rows, len(files), step.op.String())
		for _, row := range rows {
			require.True(t, row.OK(), "%s %s: %v", step.op, row.Name, row.Err)
		}
	}

	for name, content := range files {
		got, err := os.ReadFile(filepath.Join(restored, name))
		require.NoError(t, err)
		assert.Equal(t, content, got, name)
	}
}

func TestDirRecordsFailuresAndContinues(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "good.rle"), []byte(core.Magic), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "bad.rle"), []byte("RLE2\x00\x00\x00\x00\x07\x01\x00\x00\x00z"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "plain"), []byte("not compressed at all"), 0644))

	rows, err := Dir(Decompress, src, dst, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byName := make(map[string]int)
	for _, row := range rows {
		byName[row.Name] = row.Code
	}
	assert.Equal(t, status.OK, byName["good.rle"])
	assert.Equal(t, status.CodeUnknownBlockTag, byName["bad.rle"])
	assert.Equal(t, status.CodeUnknownFormat, byName["plain"])

	assert.FileExists(t, filepath.Join(dst, "good"))
	assert.NoFileExists(t, filepath.Join(dst, "plain.out"))
}

func TestDirSetupErrors(t *testing.T) {
	_, err := Dir(Compress, filepath.Join(t.TempDir(), "missing"), t.TempDir(), Options{})
	assert.ErrorIs(t, err, status.ErrIO)

	_, err = Dir(Encrypt, t.TempDir(), t.TempDir(), Options{})
	assert.ErrorIs(t, err, status.ErrEmptyKey)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	_, err = Dir(Compress, t.TempDir(), filepath.Join(blocker, "sub"), Options{})
	assert.ErrorIs(t, err, status.ErrIO)
}

func TestDirEmptySource(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")
	rows, err := Dir(Compress, t.TempDir(), dst, Options{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.DirExists(t, dst)
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		op     Op
		name   string
		format core.Format
		want   string
	}{
		{Compress, "notes.txt", core.FormatRLE2, "notes.txt.rle"},
		{Compress, "notes.txt", core.FormatLZ4, "notes.txt.lz4"},
		{Compress, "notes.txt", core.FormatZstd, "notes.txt.zst"},
		{Decompress, "notes.txt.rle", core.FormatRLE2, "notes.txt"},
		{Decompress, "notes.txt.zst", core.FormatRLE2, "notes.txt"},
		{Decompress, "notes.txt", core.FormatRLE2, "notes.txt.out"},
		{Encrypt, "notes.txt", core.FormatRLE2, "notes.txt"},
		{Decrypt, "notes.txt", core.FormatRLE2, "notes.txt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OutputName(tt.op, tt.name, tt.format), "%s %s", tt.op, tt.name)
	}
}
