package formats

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/signature"
	"github.com/standardbeagle/firmwalk/internal/structfield"
)

var cramfsHeaderFields = structfield.Fields{
	{Name: "magic", Type: structfield.U32},
	{Name: "size", Type: structfield.U32},
	{Name: "flags", Type: structfield.U32},
	{Name: "future", Type: structfield.U32},
	{Name: "signature_p1", Type: structfield.U64},
	{Name: "signature_p2", Type: structfield.U64},
	{Name: "checksum", Type: structfield.U32},
	{Name: "edition", Type: structfield.U32},
	{Name: "block_count", Type: structfield.U32},
	{Name: "file_count", Type: structfield.U32},
}

const cramfsHeaderSize = 48
const cramfsMagicBigEndian uint64 = 0x453DCD28
const cramfsMagicLittleEndian uint64 = 0x28CD3D45

// CramFSHeader is the parsed CramFS superblock.
type CramFSHeader struct {
	Size       int
	Checksum   uint32
	FileCount  int
	Endianness structfield.Endianness
}

// ParseCramFSHeader decodes a CramFS superblock at the front of data,
// trying little-endian first and falling back to big-endian if the
// magic only matches that way round.
func ParseCramFSHeader(data []byte) (CramFSHeader, error) {
	if len(data) <= cramfsHeaderSize {
		return CramFSHeader{}, fmt.Errorf("formats: cramfs: short header")
	}

	endian := structfield.LittleEndian
	values, err := structfield.Parse(data[:cramfsHeaderSize], cramfsHeaderFields, endian)
	if err != nil {
		return CramFSHeader{}, err
	}

	switch values["magic"] {
	case cramfsMagicLittleEndian:
		// already parsed correctly
	case cramfsMagicBigEndian:
		endian = structfield.BigEndian
		values, err = structfield.Parse(data[:cramfsHeaderSize], cramfsHeaderFields, endian)
		if err != nil {
			return CramFSHeader{}, err
		}
	default:
		return CramFSHeader{}, fmt.Errorf("formats: cramfs: bad magic")
	}

	return CramFSHeader{
		Size:       int(values["size"]),
		Checksum:   uint32(values["checksum"]),
		FileCount:  int(values["file_count"]),
		Endianness: endian,
	}, nil
}

// CramFSSignature is the registry entry for CramFS filesystem images.
// Extraction is declined: decompressing CramFS's per-block zlib streams
// into a file tree is out of scope.
func CramFSSignature() signature.Signature {
	return signature.Signature{
		Name:        "cramfs",
		Description: "CramFS filesystem",
		Magic:       [][]byte{{0x45, 0x3D, 0xCD, 0x28}, {0x28, 0xCD, 0x3D, 0x45}},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			header, err := ParseCramFSHeader(data[offset:])
			if err != nil {
				return signature.SignatureResult{}, err
			}
			return signature.SignatureResult{
				Offset:             offset,
				Size:               header.Size,
				Confidence:         signature.ConfidenceHigh,
				Description:        fmt.Sprintf("CramFS filesystem, file count: %d, size: %d bytes", header.FileCount, header.Size),
				ExtractionDeclined: true,
			}, nil
		},
	}
}
