package formats

import (
	"encoding/binary"
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/signature"
)

// LZ4Signature is the registry entry for LZ4 frame format streams
// (magic 0x184D2204, little-endian).
func LZ4Signature() signature.Signature {
	magic := []byte{0x04, 0x22, 0x4D, 0x18}
	return signature.Signature{
		Name:        "lz4",
		Description: "LZ4 compressed data",
		Magic:       [][]byte{magic},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			if offset+4 > len(data) {
				return signature.SignatureResult{}, fmt.Errorf("short")
			}
			if binary.LittleEndian.Uint32(data[offset:offset+4]) != 0x184D2204 {
				return signature.SignatureResult{}, fmt.Errorf("formats: lz4: bad magic")
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        0,
				Confidence:  signature.ConfidenceMedium,
				Description: "LZ4 compressed data",
			}, nil
		},
	}
}
