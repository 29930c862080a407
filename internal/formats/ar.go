package formats

import (
	"bytes"
	"fmt"

	"github.com/blakesmith/ar"

	"github.com/standardbeagle/firmwalk/internal/signature"
)

var arMagic = []byte("!<arch>\n")

const arGlobalHeaderSize = 8
const arEntryHeaderSize = 60
const arEntrySizeFieldStart, arEntrySizeFieldEnd = 48, 58

// arValid confirms data parses as a well-formed ar archive by reading
// its first entry with the library the original implementation's own
// ar crate usage mirrors.
func arValid(data []byte) error {
	r := ar.NewReader(bytes.NewReader(data))
	if _, err := r.Next(); err != nil {
		return fmt.Errorf("formats: ar: %w", err)
	}
	return nil
}

// ARArchiveSize walks the archive's entry headers by raw offset (the
// blakesmith/ar reader does not expose how far it has advanced into its
// underlying stream) and returns the offset immediately past the last
// entry's (possibly byte-padded) data.
func ARArchiveSize(data []byte) (int, error) {
	if err := arValid(data); err != nil {
		return 0, err
	}

	pos := arGlobalHeaderSize
	for pos < len(data) {
		if pos+arEntryHeaderSize > len(data) {
			return 0, fmt.Errorf("formats: ar: truncated entry header")
		}
		sizeField := string(bytes.TrimSpace(data[pos+arEntrySizeFieldStart : pos+arEntrySizeFieldEnd]))
		var size int
		if _, err := fmt.Sscanf(sizeField, "%d", &size); err != nil {
			return 0, fmt.Errorf("formats: ar: bad entry size field: %w", err)
		}
		pos += arEntryHeaderSize + size
		if size%2 != 0 {
			pos++ // ar pads each entry's data to an even byte boundary
		}
	}
	return pos, nil
}

// ARSignature is the registry entry for GNU/BSD/DEB "ar" archives.
func ARSignature() signature.Signature {
	return signature.Signature{
		Name:        "ar",
		Description: "ar archive",
		Magic:       [][]byte{arMagic},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			if offset > len(data) {
				return signature.SignatureResult{}, fmt.Errorf("formats: ar: offset out of range")
			}
			size, err := ARArchiveSize(data[offset:])
			if err != nil {
				return signature.SignatureResult{}, err
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        size,
				Confidence:  signature.ConfidenceHigh,
				Description: "ar archive (GNU/BSD/Debian)",
			}, nil
		},
	}
}
