package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/pflag"

	"gsea/pkg/cipher"
	"gsea/pkg/config"
	"gsea/pkg/core"
	"gsea/pkg/logging"
	"gsea/pkg/parallel"
	"gsea/pkg/pipeline"
	"gsea/pkg/progress"
	"gsea/pkg/report"
	"gsea/pkg/status"
)

// Exit codes outside the result codes of failed operations.
const (
	exitUsage      = 1
	exitMissingKey = 2
)

const progressInterval = 2 * time.Second

// exitError carries the process exit code for main.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit code %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func (e *exitError) ExitCode() int { return e.code }

func usageError(format string, args ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		code := 1
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			code = coder.ExitCode()
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(code)
	}
}

// invocation is the parsed command line.
type invocation struct {
	compress, decompress, encrypt, decrypt bool

	input, output, key string
	configPath         string
	codec              string
	workers, batch     int
	layout             string
	digest             bool
	logLevel           string
}

func (inv invocation) letters() string {
	var letters string
	for _, op := range []struct {
		set    bool
		letter string
	}{
		{inv.compress, "c"},
		{inv.decompress, "d"},
		{inv.encrypt, "e"},
		{inv.decrypt, "u"},
	} {
		if op.set {
			letters += op.letter
		}
	}
	return letters
}

func newFlagSet(inv *invocation, stderr io.Writer) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("gsea", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.BoolVarP(&inv.compress, "compress", "c", false, "compress")
	flagSet.BoolVarP(&inv.decompress, "decompress", "d", false, "decompress")
	flagSet.BoolVarP(&inv.encrypt, "encrypt", "e", false, "encrypt")
	flagSet.BoolVarP(&inv.decrypt, "decrypt", "u", false, "decrypt")
	flagSet.StringVarP(&inv.input, "input", "i", "", "input file or directory")
	flagSet.StringVarP(&inv.output, "output", "o", "", "output file or directory")
	flagSet.StringVarP(&inv.key, "key", "k", "", "cipher key")
	flagSet.StringVar(&inv.configPath, "config", "", "YAML configuration file")
	flagSet.StringVar(&inv.codec, "codec", "", "compression format: rle2, lz4 or zstd")
	flagSet.IntVar(&inv.workers, "workers", 0, "processing units used to plan cipher regions (pins the layout)")
	flagSet.IntVar(&inv.batch, "batch", 0, "files processed at once in directory mode")
	flagSet.StringVar(&inv.layout, "layout", "", "layout manifest written by encrypt and read by decrypt")
	flagSet.BoolVar(&inv.digest, "digest", false, "report a BLAKE3 digest of every output")
	flagSet.StringVar(&inv.logLevel, "log-level", "", "debug, info, warn or error")
	flagSet.BoolP("help", "h", false, "show help")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }
	return flagSet
}

// printUsage prints the command-line usage information
func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: gsea [operations] -i input -o output [-k key]")
	fmt.Fprintln(w, "Operations (combinable as -ce or -ud):")
	fmt.Fprintln(w, "  -c  compress")
	fmt.Fprintln(w, "  -d  decompress")
	fmt.Fprintln(w, "  -e  encrypt")
	fmt.Fprintln(w, "  -u  decrypt")
	fmt.Fprintln(w, "Example: gsea -ce -i input.txt -o output.enc -k clave123")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, flagSet.FlagUsages())
}

func run(args []string, stdout, stderr io.Writer) error {
	var inv invocation
	flagSet := newFlagSet(&inv, stderr)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &exitError{code: exitUsage, err: err}
	}
	if help, _ := flagSet.GetBool("help"); help {
		printUsage(stdout, flagSet)
		return nil
	}
	if flagSet.NArg() > 0 {
		return usageError("unexpected argument: %s", flagSet.Arg(0))
	}

	ops, err := pipeline.ParseOps(inv.letters())
	if err != nil {
		printUsage(stderr, flagSet)
		return &exitError{code: exitUsage, err: err}
	}
	if inv.input == "" || inv.output == "" {
		printUsage(stderr, flagSet)
		return usageError("both -i and -o are required")
	}

	cfg, err := resolveConfig(flagSet, inv)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	logger := logging.New(stderr, level).With("operation", inv.letters())

	var key []byte
	if pipeline.NeedsKey(ops) {
		key, err = cipher.ParseKey(inv.key)
		if err != nil {
			return &exitError{code: exitMissingKey, err: fmt.Errorf("encryption and decryption require a key (-k): %w", err)}
		}
	}
	format, err := core.ParseFormat(cfg.Codec)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	logger.Debug("starting",
		"input", inv.input,
		"output", inv.output,
		"cpus", runtime.NumCPU(),
		"processing_units", cfg.ProcessingUnits,
	)

	tracker := progress.Start(logger, inputSize(inv.input)*uint64(len(ops)), progressInterval)
	sections, runErr := pipeline.Run(ops, inv.input, inv.output, pipeline.Options{
		Key: key,
		Codec: core.Options{
			Format:       format,
			BlockSize:    cfg.BlockSize,
			RunThreshold: cfg.RunThreshold,
			Progress:     tracker,
		},
		Cipher: parallel.Options{
			Window:            cfg.Window,
			ParallelThreshold: cfg.ParallelThreshold,
			MaxWorkers:        cfg.MaxRegionWorkers,
			ProcessingUnits:   cfg.ProcessingUnits,
			Logger:            logger,
			Progress:          tracker,
		},
		BatchLimit: cfg.BatchLimit,
		LayoutPath: inv.layout,
		Digest:     inv.digest,
		Logger:     logger,
	})
	tracker.Stop()

	for _, section := range sections {
		if err := report.Render(stdout, section); err != nil {
			return status.IO("write report", err)
		}
	}

	if runErr != nil {
		code := status.Code(runErr)
		if errors.Is(runErr, pipeline.ErrUnsupportedOps) {
			code = exitUsage
		}
		return &exitError{code: code, err: runErr}
	}
	for _, section := range sections {
		if failure, failed := section.FirstFailure(); failed {
			return &exitError{
				code: failure.Code,
				err:  fmt.Errorf("%s: %d of %d files failed, first %s: %w", section.Title, section.Failed(), len(section.Results), failure.Name, failure.Err),
			}
		}
	}
	logger.Info("completed", "steps", len(sections))
	return nil
}

// resolveConfig loads the configuration file and environment, then
// applies the flags given on the command line.
func resolveConfig(flagSet *pflag.FlagSet, inv invocation) (config.Config, error) {
	cfg, err := config.Load(inv.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if flagSet.Changed("codec") {
		cfg.Codec = inv.codec
	}
	if flagSet.Changed("workers") {
		cfg.ProcessingUnits = inv.workers
	}
	if flagSet.Changed("batch") {
		cfg.BatchLimit = inv.batch
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = inv.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// inputSize returns the size of a regular file, or zero for
// directories and anything that cannot be inspected.
func inputSize(path string) uint64 {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return uint64(info.Size())
}
