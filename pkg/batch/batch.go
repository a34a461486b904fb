// Package batch applies one operation to every regular file of a
// directory with a bounded number of concurrent workers.
package batch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"gsea/pkg/core"
	"gsea/pkg/logging"
	"gsea/pkg/parallel"
	"gsea/pkg/report"
	"gsea/pkg/status"
)

// DefaultLimit is the number of files processed at once when
// Options.Limit is not set.
const DefaultLimit = 8

// Op is a single file operation.
type Op int

const (
	Compress Op = iota
	Decompress
	Encrypt
	Decrypt
)

func (op Op) String() string {
	switch op {
	case Compress:
		return "compress"
	case Decompress:
		return "decompress"
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// Options configures a batch run.
type Options struct {
	// Limit caps the number of files processed concurrently. Zero means
	// DefaultLimit.
	Limit int
	// Key is required by Encrypt and Decrypt.
	Key    []byte
	Codec  core.Options
	Cipher parallel.Options
	Logger *slog.Logger
}

func (o Options) limit() int {
	if o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

// OutputName returns the name an operation gives to its output for
// an input called name.
func OutputName(op Op, name string, format core.Format) string {
	switch op {
	case Compress:
		return name + format.Extension()
	case Decompress:
		return core.TrimExtension(name)
	default:
		return name
	}
}

// Process applies op to a single file.
func Process(op Op, input, output string, opts Options) error {
	switch op {
	case Compress:
		return core.CompressFile(input, output, opts.Codec)
	case Decompress:
		return core.DecompressFile(input, output, opts.Codec)
	case Encrypt:
		_, err := parallel.EncryptFile(input, output, opts.Key, opts.Cipher)
		return err
	case Decrypt:
		_, err := parallel.DecryptFile(input, output, opts.Key, opts.Cipher)
		return err
	default:
		return fmt.Errorf("unsupported operation %v", op)
	}
}

// Dir applies op to every regular file directly inside src and writes
// the outputs into dst, which is created if needed. Dotfiles,
// directories and symbolic links are skipped.
//
// A file that fails is recorded in its row and does not stop the
// others; the returned error is non-nil only when src cannot be read
// or dst cannot be created. Rows are sorted by file name.
func Dir(op Op, src, dst string, opts Options) ([]report.Result, error) {
	logger := logging.OrDiscard(opts.Logger)
	if (op == Encrypt || op == Decrypt) && len(opts.Key) == 0 {
		return nil, status.ErrEmptyKey
	}
	if opts.Cipher.Layout != nil {
		return nil, fmt.Errorf("a layout describes one file and cannot be applied to directory %s: %w",
			src, status.ErrLayoutMismatch)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, status.IO("read source directory", err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return nil, status.IO("create destination directory", err)
	}

	var names []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") || !entry.Type().IsRegular() {
			logger.Debug("skipping entry", "name", entry.Name(), "type", entry.Type().String())
			continue
		}
		names = append(names, entry.Name())
	}

	results := make(chan report.Result, len(names))
	var g errgroup.Group
	g.SetLimit(opts.limit())
	for _, name := range names {
		input := filepath.Join(src, name)
		output := filepath.Join(dst, OutputName(op, name, opts.Codec.Format))
		g.Go(func() error {
			logger.Debug("batch dispatch", "op", op.String(), "input", input, "output", output)
			result := report.Measure(name, input, output, func() error {
				return Process(op, input, output, opts)
			})
			if !result.OK() {
				logger.Warn("file failed", "op", op.String(), "input", input, "error", result.Err)
			}
			results <- result
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	rows := make([]report.Result, 0, len(names))
	for result := range results {
		rows = append(rows, result)
	}
	slices.SortFunc(rows, func(a, b report.Result) int {
		return strings.Compare(a.Name, b.Name)
	})
	return rows, nil
}
