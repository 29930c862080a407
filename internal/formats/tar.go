package formats

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"

	"github.com/standardbeagle/firmwalk/internal/signature"
)

// tarMagic is POSIX ustar's "ustar" marker, found 257 bytes into the
// first 512-byte header block.
var tarMagic = []byte("ustar")

const tarMagicOffset = 257

// validateTar confirms that data, read as a tar stream, has at least one
// well-formed entry whose data is fully present. It reports no size:
// nothing in the pack computes an exact tar archive size (GNU tar pads
// to a configurable record size after the final entry, not a fixed
// constant), so sizing is left to the scan engine's forward-inference
// phase, the same as the other unbounded formats in this registry.
func validateTar(data []byte) error {
	tr := tar.NewReader(bytes.NewReader(data))
	if _, err := tr.Next(); err != nil {
		return fmt.Errorf("formats: tar: %w", err)
	}
	if _, err := io.Copy(io.Discard, tr); err != nil {
		return fmt.Errorf("formats: tar: truncated entry: %w", err)
	}
	return nil
}

// TarSignature is the registry entry for POSIX ustar archives.
// Extraction is delegated to the system `tar` utility, matching the
// pack's convention of shelling out to well-established archive tools
// rather than reimplementing tar's GNU/PAX extensions in-process.
func TarSignature() signature.Signature {
	return signature.Signature{
		Name:        "tar",
		Description: "POSIX tar archive",
		Magic:       [][]byte{tarMagic},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			headerStart := offset - tarMagicOffset
			if headerStart < 0 {
				return signature.SignatureResult{}, fmt.Errorf("formats: tar: magic found before a valid header start")
			}
			if err := validateTar(data[headerStart:]); err != nil {
				return signature.SignatureResult{}, err
			}
			return signature.SignatureResult{
				Offset:      headerStart,
				Confidence:  signature.ConfidenceHigh,
				Description: "POSIX tar archive",
			}, nil
		},
		Extractor: &signature.Extractor{
			Kind:      signature.ExtractorExternal,
			Command:   "tar",
			Arguments: []string{"-x", "-f", signature.SourceFilePlaceholder},
			ExitCodes: []int{0, 2},
			Extension: "tar",
		},
	}
}
