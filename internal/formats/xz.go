package formats

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/signature"
)

// XZSignature is the registry entry for the xz container format.
func XZSignature() signature.Signature {
	magic := []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
	return signature.Signature{
		Name:        "xz",
		Description: "xz compressed data",
		Magic:       [][]byte{magic},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			if offset+len(magic) > len(data) {
				return signature.SignatureResult{}, fmt.Errorf("short")
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        0,
				Confidence:  signature.ConfidenceHigh,
				Description: "xz compressed data",
			}, nil
		},
	}
}
