package formats

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/signature"
	"github.com/standardbeagle/firmwalk/internal/structfield"
)

var pngHeaderMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

var pngChunkFields = structfield.Fields{
	{Name: "length", Type: structfield.U32},
	{Name: "type", Type: structfield.U32},
}

const pngChunkCRCSize = 4
const pngIENDChunkType uint64 = 0x49454E44 // "IEND"

// PNGChunkHeader describes one chunk's framing: the length/type header
// plus the trailing CRC that follows every chunk's data.
type PNGChunkHeader struct {
	TotalSize   int
	IsLastChunk bool
}

// ParsePNGChunkHeader decodes the length/type pair at the front of data
// and reports the chunk's total on-disk size (header + data + CRC).
func ParsePNGChunkHeader(data []byte) (PNGChunkHeader, error) {
	headerSize := structfield.Size(pngChunkFields)
	if len(data) <= headerSize {
		return PNGChunkHeader{}, fmt.Errorf("formats: png: short chunk header")
	}

	values, err := structfield.Parse(data[:headerSize], pngChunkFields, structfield.BigEndian)
	if err != nil {
		return PNGChunkHeader{}, err
	}

	return PNGChunkHeader{
		TotalSize:   headerSize + int(values["length"]) + pngChunkCRCSize,
		IsLastChunk: values["type"] == pngIENDChunkType,
	}, nil
}

// PNGDataSize walks the chunk stream starting immediately after the
// 8-byte PNG file header and returns the total size of the chunk data
// (up to and including the IEND chunk), or false if no IEND chunk is
// ever reached.
func PNGDataSize(chunkData []byte) (int, bool) {
	pos := 0
	for pos < len(chunkData) {
		chunk, err := ParsePNGChunkHeader(chunkData[pos:])
		if err != nil {
			return 0, false
		}
		pos += chunk.TotalSize
		if chunk.IsLastChunk {
			return pos, true
		}
	}
	return 0, false
}

// PNGSignature is the registry entry for PNG images.
func PNGSignature() signature.Signature {
	return signature.Signature{
		Name:        "png",
		Description: "PNG image",
		Magic:       [][]byte{pngHeaderMagic},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			if len(data) < offset+len(pngHeaderMagic) {
				return signature.SignatureResult{}, fmt.Errorf("formats: png: short file header")
			}
			dataSize, ok := PNGDataSize(data[offset+len(pngHeaderMagic):])
			if !ok {
				return signature.SignatureResult{}, fmt.Errorf("formats: png: no IEND chunk found")
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        len(pngHeaderMagic) + dataSize,
				Confidence:  signature.ConfidenceHigh,
				Description: "PNG image",
			}, nil
		},
	}
}
