package parallel

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"gsea/pkg/status"
)

// Layout manifests are CBOR with Core Deterministic Encoding, so the
// same layout always produces identical bytes.
var (
	layoutEncMode cbor.EncMode
	layoutDecMode cbor.DecMode
)

func init() {
	var err error
	layoutEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("parallel: CBOR encoder initialization failed: " + err.Error())
	}
	layoutDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("parallel: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalLayout encodes a layout manifest.
func MarshalLayout(layout Layout) ([]byte, error) {
	return layoutEncMode.Marshal(layout)
}

// UnmarshalLayout decodes a layout manifest written by MarshalLayout.
func UnmarshalLayout(data []byte) (Layout, error) {
	var layout Layout
	if err := layoutDecMode.Unmarshal(data, &layout); err != nil {
		return Layout{}, fmt.Errorf("decoding layout: %w: %w", status.ErrLayoutMismatch, err)
	}
	if layout.Version != LayoutVersion {
		return Layout{}, fmt.Errorf("layout version %d is not supported (expected %d): %w",
			layout.Version, LayoutVersion, status.ErrLayoutMismatch)
	}
	return layout, nil
}

// WriteLayout stores layout at path, replacing any existing file.
func WriteLayout(path string, layout Layout) error {
	data, err := MarshalLayout(layout)
	if err != nil {
		return fmt.Errorf("encoding layout: %w", err)
	}
	return status.IO("write layout", os.WriteFile(path, data, 0644))
}

// ReadLayout loads a layout manifest from path.
func ReadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, status.IO("read layout", err)
	}
	return UnmarshalLayout(data)
}
