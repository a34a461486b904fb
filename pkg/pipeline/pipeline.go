// Package pipeline runs an operation set over a file or a directory,
// chaining compress-then-encrypt and decrypt-then-decompress through a
// temporary artifact next to the final output.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gsea/pkg/batch"
	"gsea/pkg/cipher"
	"gsea/pkg/core"
	"gsea/pkg/logging"
	"gsea/pkg/parallel"
	"gsea/pkg/report"
	"gsea/pkg/status"
)

// ErrUnsupportedOps is returned by ParseOps for operation sets other
// than c, d, e, u, ce and ud.
var ErrUnsupportedOps = errors.New("unsupported operation set")

// TempSuffix is appended to the output path to name the intermediate
// artifact of a chained operation set.
const TempSuffix = ".tmp"

// ParseOps turns operation letters into the ordered steps to run.
// Letters may appear in any order and may repeat: "ec" compresses then
// encrypts, "du" decrypts then decompresses.
func ParseOps(letters string) ([]batch.Op, error) {
	var c, d, e, u bool
	for _, letter := range letters {
		switch letter {
		case 'c':
			c = true
		case 'd':
			d = true
		case 'e':
			e = true
		case 'u':
			u = true
		default:
			return nil, fmt.Errorf("operation %q: %w", letter, ErrUnsupportedOps)
		}
	}

	switch {
	case c && e && !d && !u:
		return []batch.Op{batch.Compress, batch.Encrypt}, nil
	case u && d && !c && !e:
		return []batch.Op{batch.Decrypt, batch.Decompress}, nil
	case c && !d && !e && !u:
		return []batch.Op{batch.Compress}, nil
	case d && !c && !e && !u:
		return []batch.Op{batch.Decompress}, nil
	case e && !c && !d && !u:
		return []batch.Op{batch.Encrypt}, nil
	case u && !c && !d && !e:
		return []batch.Op{batch.Decrypt}, nil
	case !c && !d && !e && !u:
		return nil, fmt.Errorf("no operation given: %w", ErrUnsupportedOps)
	default:
		return nil, fmt.Errorf("%q: %w", letters, ErrUnsupportedOps)
	}
}

// NeedsKey reports whether any step uses the cipher.
func NeedsKey(ops []batch.Op) bool {
	for _, op := range ops {
		if op == batch.Encrypt || op == batch.Decrypt {
			return true
		}
	}
	return false
}

// Options configures a pipeline run.
type Options struct {
	Key    []byte
	Codec  core.Options
	Cipher parallel.Options
	// BatchLimit caps concurrent files in directory mode.
	BatchLimit int
	// LayoutPath names a layout manifest. A single-file encrypt writes
	// the layout it used there; a single-file decrypt applies the
	// layout read from it.
	LayoutPath string
	// Digest adds a BLAKE3 digest of every produced file to the report.
	Digest bool
	Logger *slog.Logger
}

// Run executes ops in order. The first step reads input, the last one
// writes output, and intermediate results go to output+TempSuffix,
// which is removed before Run returns.
//
// Each step contributes one report section. In file mode a failing step
// stops the run and its error is returned. In directory mode failed
// files are only recorded in their rows; Run fails only when a
// directory cannot be read or created.
func Run(ops []batch.Op, input, output string, opts Options) (sections []report.Section, err error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("no operation given: %w", ErrUnsupportedOps)
	}
	if NeedsKey(ops) && len(opts.Key) == 0 {
		return nil, status.ErrEmptyKey
	}
	logger := logging.OrDiscard(opts.Logger)
	if opts.Cipher.Logger == nil {
		opts.Cipher.Logger = logger
	}

	info, err := os.Stat(input)
	if err != nil {
		return nil, status.IO("stat input", err)
	}
	dirMode := info.IsDir()
	if dirMode && opts.LayoutPath != "" {
		return nil, fmt.Errorf("layout manifests apply to single files, %s is a directory: %w",
			input, status.ErrLayoutMismatch)
	}

	var temp string
	if len(ops) > 1 {
		temp = output + TempSuffix
		defer func() {
			if removeErr := os.RemoveAll(temp); removeErr != nil && err == nil {
				err = status.IO("remove temporary output", removeErr)
			}
		}()
	}

	current := input
	for i, op := range ops {
		target := output
		if i < len(ops)-1 {
			target = temp
		}

		logger.Info("step started", "op", op.String(), "input", current, "output", target, "directory", dirMode)
		var section report.Section
		if dirMode {
			section, err = dirStep(op, current, target, opts)
		} else {
			section = fileStep(op, current, target, opts)
		}
		if opts.Digest {
			section.AddDigests()
		}
		sections = append(sections, section)
		if err != nil {
			return sections, err
		}
		logger.Info("step finished", "op", op.String(), "files", len(section.Results), "failed", section.Failed())

		if !dirMode {
			if failure, failed := section.FirstFailure(); failed {
				return sections, fmt.Errorf("%s %s: %w", op, current, failure.Err)
			}
		}
		current = target
	}
	return sections, nil
}

func dirStep(op batch.Op, input, output string, opts Options) (report.Section, error) {
	rows, err := batch.Dir(op, input, output, batch.Options{
		Limit:  opts.BatchLimit,
		Key:    opts.Key,
		Codec:  opts.Codec,
		Cipher: opts.Cipher,
		Logger: opts.Logger,
	})
	return report.Section{Title: title(op, true), Results: rows}, err
}

func fileStep(op batch.Op, input, output string, opts Options) report.Section {
	result := report.Measure(filepath.Base(input), input, output, func() error {
		switch op {
		case batch.Encrypt:
			return cipherFile(cipher.Encrypt, input, output, opts)
		case batch.Decrypt:
			return cipherFile(cipher.Decrypt, input, output, opts)
		default:
			return batch.Process(op, input, output, batch.Options{Codec: opts.Codec})
		}
	})
	return report.Section{Title: title(op, false), Results: []report.Result{result}}
}

func cipherFile(mode cipher.Mode, input, output string, opts Options) error {
	cipherOpts := opts.Cipher
	if mode == cipher.Decrypt && opts.LayoutPath != "" {
		layout, err := parallel.ReadLayout(opts.LayoutPath)
		if err != nil {
			return err
		}
		cipherOpts.Layout = &layout
	}

	layout, err := parallel.ProcessFile(input, output, opts.Key, mode, cipherOpts)
	if err != nil {
		return err
	}
	if mode == cipher.Encrypt && opts.LayoutPath != "" {
		return parallel.WriteLayout(opts.LayoutPath, layout)
	}
	return nil
}

func title(op batch.Op, dirMode bool) string {
	var noun string
	switch op {
	case batch.Compress:
		noun = "Compression"
	case batch.Decompress:
		noun = "Decompression"
	case batch.Encrypt:
		noun = "Encryption"
	case batch.Decrypt:
		noun = "Decryption"
	default:
		noun = strings.ToUpper(op.String()[:1]) + op.String()[1:]
	}
	if dirMode {
		return noun + " Directory Report"
	}
	return noun + " Report"
}
