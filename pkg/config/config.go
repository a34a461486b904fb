// Package config holds the tunables of the codec, cipher and
// schedulers. Values are resolved in order: built-in defaults, an
// optional YAML file, a .env file in the working directory, GSEA_*
// environment variables, and finally command-line flags applied by the
// caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"gsea/pkg/batch"
	"gsea/pkg/cipher"
	"gsea/pkg/core"
	"gsea/pkg/parallel"
	"gsea/pkg/rle"
)

// MaxBlockSize bounds BlockSize so that every block the compressor
// emits is accepted by the decompressor's payload cap.
const MaxBlockSize = core.MaxPayload

// Config is the resolved set of tunables.
type Config struct {
	// BlockSize is the number of input bytes per compressed block.
	BlockSize int `yaml:"block_size"`
	// RunThreshold is the minimum run length encoded as a run packet.
	RunThreshold int `yaml:"run_threshold"`
	// Window is the cipher read window; the key phase resets at the
	// start of every window.
	Window int `yaml:"window"`
	// ParallelThreshold is the file size at which encryption switches
	// from one worker to region workers.
	ParallelThreshold int64 `yaml:"parallel_threshold"`
	// MaxRegionWorkers caps the number of region workers per file.
	MaxRegionWorkers int `yaml:"max_region_workers"`
	// ProcessingUnits overrides the detected CPU count when planning
	// regions. Zero means detect. Pinning it makes ciphertext portable
	// across machines.
	ProcessingUnits int `yaml:"processing_units"`
	// BatchLimit caps the number of files processed at once in a
	// directory.
	BatchLimit int `yaml:"batch_limit"`
	// Codec is the compression format: rle2, lz4 or zstd.
	Codec string `yaml:"codec"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BlockSize:         core.DefaultBlockSize,
		RunThreshold:      rle.DefaultMinRun,
		Window:            cipher.DefaultWindow,
		ParallelThreshold: parallel.DefaultParallelThreshold,
		MaxRegionWorkers:  parallel.DefaultMaxWorkers,
		BatchLimit:        batch.DefaultLimit,
		Codec:             "rle2",
		LogLevel:          "info",
	}
}

// Load resolves the configuration. path names an optional YAML file;
// an empty path skips it. A missing .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	ints := []struct {
		name   string
		target *int
	}{
		{"GSEA_BLOCK_SIZE", &c.BlockSize},
		{"GSEA_RUN_THRESHOLD", &c.RunThreshold},
		{"GSEA_WINDOW", &c.Window},
		{"GSEA_MAX_REGION_WORKERS", &c.MaxRegionWorkers},
		{"GSEA_PROCESSING_UNITS", &c.ProcessingUnits},
		{"GSEA_BATCH_LIMIT", &c.BatchLimit},
	}
	for _, v := range ints {
		raw, ok := os.LookupEnv(v.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
		*v.target = n
	}

	if raw, ok := os.LookupEnv("GSEA_PARALLEL_THRESHOLD"); ok {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("GSEA_PARALLEL_THRESHOLD: %w", err)
		}
		c.ParallelThreshold = n
	}
	if raw, ok := os.LookupEnv("GSEA_CODEC"); ok {
		c.Codec = raw
	}
	if raw, ok := os.LookupEnv("GSEA_LOG_LEVEL"); ok {
		c.LogLevel = raw
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.BlockSize <= 0 || c.BlockSize > MaxBlockSize:
		return fmt.Errorf("block size %d out of range (1..%d)", c.BlockSize, MaxBlockSize)
	case c.RunThreshold < 1 || c.RunThreshold > rle.MaxPacket:
		return fmt.Errorf("run threshold %d out of range (1..%d)", c.RunThreshold, rle.MaxPacket)
	case c.Window <= 0 || c.Window > cipher.MaxWindow:
		return fmt.Errorf("cipher window %d out of range (1..%d)", c.Window, cipher.MaxWindow)
	case c.ParallelThreshold < 0:
		return fmt.Errorf("parallel threshold must not be negative, got %d", c.ParallelThreshold)
	case c.MaxRegionWorkers <= 0:
		return fmt.Errorf("max region workers must be positive, got %d", c.MaxRegionWorkers)
	case c.ProcessingUnits < 0:
		return fmt.Errorf("processing units must not be negative, got %d", c.ProcessingUnits)
	case c.BatchLimit <= 0:
		return fmt.Errorf("batch limit must be positive, got %d", c.BatchLimit)
	}
	switch c.Codec {
	case "rle2", "lz4", "zstd":
	default:
		return fmt.Errorf("unknown codec %q (want rle2, lz4 or zstd)", c.Codec)
	}
	return nil
}
