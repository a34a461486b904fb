// Package lib provides whole-file compression and encryption for the
// RLE2 format and the byte-addition cipher.
// This package re-exports the functionality from the pkg packages as a single stable import.
package lib

import (
	"gsea/pkg/batch"
	"gsea/pkg/core"
	"gsea/pkg/parallel"
	"gsea/pkg/report"
)

// Constants for the stream format re-exported from core
const (
	Magic            = core.Magic            // Stream header of RLE2 files
	DefaultBlockSize = core.DefaultBlockSize // Input bytes per compressed block
)

// CodecOptions re-exported from core
type CodecOptions = core.Options

// CipherOptions re-exported from parallel
type CipherOptions = parallel.Options

// Layout re-exported from parallel
type Layout = parallel.Layout

// Result re-exported from report
type Result = report.Result

// Compress is a wrapper around core.CompressFile
func Compress(input, output string, opts CodecOptions) error {
	return core.CompressFile(input, output, opts)
}

// Decompress is a wrapper around core.DecompressFile
func Decompress(input, output string, opts CodecOptions) error {
	return core.DecompressFile(input, output, opts)
}

// Encrypt is a wrapper around parallel.EncryptFile
func Encrypt(input, output string, key []byte, opts CipherOptions) (Layout, error) {
	return parallel.EncryptFile(input, output, key, opts)
}

// Decrypt is a wrapper around parallel.DecryptFile
func Decrypt(input, output string, key []byte, opts CipherOptions) (Layout, error) {
	return parallel.DecryptFile(input, output, key, opts)
}

// CompressDir compresses every regular file of src into dst, at most
// limit files at a time.
func CompressDir(src, dst string, limit int, opts CodecOptions) ([]Result, error) {
	return batch.Dir(batch.Compress, src, dst, batch.Options{Limit: limit, Codec: opts})
}

// DecompressDir decompresses every regular file of src into dst, at
// most limit files at a time.
func DecompressDir(src, dst string, limit int, opts CodecOptions) ([]Result, error) {
	return batch.Dir(batch.Decompress, src, dst, batch.Options{Limit: limit, Codec: opts})
}
