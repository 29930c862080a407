package formats

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/signature"
)

// Bzip2Signature is the registry entry for bzip2 streams: magic "BZh"
// followed by a block-size digit 1-9.
func Bzip2Signature() signature.Signature {
	return signature.Signature{
		Name:        "bzip2",
		Description: "bzip2 compressed data",
		Magic:       [][]byte{{'B', 'Z', 'h'}},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			if offset+4 > len(data) {
				return signature.SignatureResult{}, fmt.Errorf("short")
			}
			level := data[offset+3]
			if level < '1' || level > '9' {
				return signature.SignatureResult{}, fmt.Errorf("formats: bzip2: invalid block size digit")
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        0,
				Confidence:  signature.ConfidenceHigh,
				Description: fmt.Sprintf("bzip2 compressed data, block size: %c00k", level),
			}, nil
		},
	}
}
