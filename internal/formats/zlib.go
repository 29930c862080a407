package formats

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/signature"
)

// ZlibSignature is the registry entry for raw zlib (RFC 1950) streams.
// Validity is the same two-byte check zlib implementations themselves
// use: CMF low nibble names the deflate method, and the 16-bit
// (CMF<<8)|FLG value must be a multiple of 31.
func ZlibSignature() signature.Signature {
	return signature.Signature{
		Name:        "zlib",
		Description: "zlib compressed data",
		Magic:       [][]byte{{0x78, 0x01}, {0x78, 0x5E}, {0x78, 0x9C}, {0x78, 0xDA}},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			if offset+2 > len(data) {
				return signature.SignatureResult{}, fmt.Errorf("short")
			}
			cmf, flg := data[offset], data[offset+1]
			if cmf&0x0f != 8 {
				return signature.SignatureResult{}, fmt.Errorf("formats: zlib: unsupported method")
			}
			if (int(cmf)*256+int(flg))%31 != 0 {
				return signature.SignatureResult{}, fmt.Errorf("formats: zlib: header check failed")
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        0,
				Confidence:  signature.ConfidenceMedium,
				Description: "zlib compressed data",
			}, nil
		},
	}
}
