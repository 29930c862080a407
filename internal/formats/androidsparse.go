package formats

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/signature"
	"github.com/standardbeagle/firmwalk/internal/structfield"
)

var androidSparseHeaderFields = structfield.Fields{
	{Name: "magic", Type: structfield.U32},
	{Name: "major_version", Type: structfield.U16},
	{Name: "minor_version", Type: structfield.U16},
	{Name: "header_size", Type: structfield.U16},
	{Name: "chunk_header_size", Type: structfield.U16},
	{Name: "block_size", Type: structfield.U32},
	{Name: "block_count", Type: structfield.U32},
	{Name: "total_chunks", Type: structfield.U32},
	{Name: "checksum", Type: structfield.U32},
}

const (
	androidSparseMagic        uint64 = 0xED26FF3A
	androidSparseMajorVersion        = 1
	androidSparseMinorVersion        = 0
	androidSparseBlockAlign          = 4
	androidSparseChunkHdrSize        = 12
)

// AndroidSparseHeader is the parsed sparse-image superblock.
type AndroidSparseHeader struct {
	MajorVersion int
	MinorVersion int
	HeaderSize   int
	BlockSize    int
	ChunkCount   int
}

// ParseAndroidSparseHeader validates and decodes a sparse-image header
// at the front of data.
func ParseAndroidSparseHeader(data []byte) (AndroidSparseHeader, error) {
	headerSize := structfield.Size(androidSparseHeaderFields)
	if len(data) < headerSize {
		return AndroidSparseHeader{}, fmt.Errorf("formats: androidsparse: short header")
	}

	values, err := structfield.Parse(data[:headerSize], androidSparseHeaderFields, structfield.LittleEndian)
	if err != nil {
		return AndroidSparseHeader{}, err
	}

	if values["magic"] != androidSparseMagic ||
		values["major_version"] != androidSparseMajorVersion ||
		values["minor_version"] != androidSparseMinorVersion ||
		int(values["header_size"]) != headerSize ||
		values["chunk_header_size"] != androidSparseChunkHdrSize ||
		values["block_size"]%androidSparseBlockAlign != 0 {
		return AndroidSparseHeader{}, fmt.Errorf("formats: androidsparse: header sanity check failed")
	}

	return AndroidSparseHeader{
		MajorVersion: int(values["major_version"]),
		MinorVersion: int(values["minor_version"]),
		HeaderSize:   headerSize,
		BlockSize:    int(values["block_size"]),
		ChunkCount:   int(values["total_chunks"]),
	}, nil
}

var androidSparseChunkFields = structfield.Fields{
	{Name: "chunk_type", Type: structfield.U16},
	{Name: "reserved", Type: structfield.U16},
	{Name: "output_block_count", Type: structfield.U32},
	{Name: "total_size", Type: structfield.U32},
}

const (
	androidSparseChunkRaw      = 0xCAC1
	androidSparseChunkFill     = 0xCAC2
	androidSparseChunkDontCare = 0xCAC3
	androidSparseChunkCRC      = 0xCAC4
)

// AndroidSparseChunkHeader is one parsed chunk header.
type AndroidSparseChunkHeader struct {
	HeaderSize int
	DataSize   int
	BlockCount int
	IsCRC      bool
	IsRaw      bool
	IsFill     bool
	IsDontCare bool
}

// ParseAndroidSparseChunkHeader decodes one chunk header at the front
// of data.
func ParseAndroidSparseChunkHeader(data []byte) (AndroidSparseChunkHeader, error) {
	headerSize := structfield.Size(androidSparseChunkFields)
	if len(data) < headerSize {
		return AndroidSparseChunkHeader{}, fmt.Errorf("formats: androidsparse: short chunk header")
	}

	values, err := structfield.Parse(data[:headerSize], androidSparseChunkFields, structfield.LittleEndian)
	if err != nil {
		return AndroidSparseChunkHeader{}, err
	}
	if values["reserved"] != 0 {
		return AndroidSparseChunkHeader{}, fmt.Errorf("formats: androidsparse: reserved field set")
	}

	chunkType := values["chunk_type"]
	h := AndroidSparseChunkHeader{
		HeaderSize: headerSize,
		DataSize:   int(values["total_size"]) - headerSize,
		BlockCount: int(values["output_block_count"]),
		IsCRC:      chunkType == androidSparseChunkCRC,
		IsRaw:      chunkType == androidSparseChunkRaw,
		IsFill:     chunkType == androidSparseChunkFill,
		IsDontCare: chunkType == androidSparseChunkDontCare,
	}
	if !h.IsCRC && !h.IsRaw && !h.IsFill && !h.IsDontCare {
		return AndroidSparseChunkHeader{}, fmt.Errorf("formats: androidsparse: unknown chunk type")
	}
	return h, nil
}

// AndroidSparseSignature is the registry entry for Android sparse images.
func AndroidSparseSignature() signature.Signature {
	magic := []byte{0x3A, 0xFF, 0x26, 0xED}
	return signature.Signature{
		Name:        "android-sparse",
		Description: "Android sparse image",
		Magic:       [][]byte{magic},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			header, err := ParseAndroidSparseHeader(data[offset:])
			if err != nil {
				return signature.SignatureResult{}, err
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        0,
				Confidence:  signature.ConfidenceHigh,
				Description: fmt.Sprintf("Android sparse image, %d chunks, block size %d", header.ChunkCount, header.BlockSize),
			}, nil
		},
	}
}
