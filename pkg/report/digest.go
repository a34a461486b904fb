package report

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/zeebo/blake3"

	"gsea/pkg/status"
)

// Digest returns the hex-encoded BLAKE3-256 digest of the file at path.
// The file is streamed through the hasher, so memory use does not
// depend on its size.
func Digest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", status.IO("open for digest", err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", status.IO("digest "+path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// AddDigests fills in the digest of every successful row's output. A
// failure to hash marks the row as failed.
func (s *Section) AddDigests() {
	for i := range s.Results {
		r := &s.Results[i]
		if !r.OK() || r.Output == "" {
			continue
		}
		digest, err := Digest(r.Output)
		if err != nil {
			r.Err = err
			r.Code = status.Code(err)
			continue
		}
		r.Digest = digest
	}
}
