package formats

import (
	"fmt"
	"math/bits"

	"github.com/standardbeagle/firmwalk/internal/signature"
	"github.com/standardbeagle/firmwalk/internal/structfield"
)

const squashfsMaxVersion = 4
const squashfsVersionStart, squashfsVersionEnd = 28, 30
const squashfsMinHeaderSize = 120

var squashfsV4Fields = structfield.Fields{
	{Name: "magic", Type: structfield.U32},
	{Name: "inode_count", Type: structfield.U32},
	{Name: "modification_time", Type: structfield.U32},
	{Name: "block_size", Type: structfield.U32},
	{Name: "fragment_count", Type: structfield.U32},
	{Name: "compression_id", Type: structfield.U16},
	{Name: "block_log", Type: structfield.U16},
	{Name: "flags", Type: structfield.U16},
	{Name: "id_count", Type: structfield.U16},
	{Name: "major_version", Type: structfield.U16},
	{Name: "minor_version", Type: structfield.U16},
	{Name: "root_inode_ref", Type: structfield.U64},
	{Name: "image_size", Type: structfield.U64},
	{Name: "uid_start", Type: structfield.U64},
}

var squashfsV3Fields = structfield.Fields{
	{Name: "magic", Type: structfield.U32},
	{Name: "inode_count", Type: structfield.U32},
	{Name: "bytes_used_2", Type: structfield.U32},
	{Name: "uid_start_2", Type: structfield.U32},
	{Name: "guid_start_2", Type: structfield.U32},
	{Name: "inode_table_start_2", Type: structfield.U32},
	{Name: "directory_table_start_2", Type: structfield.U32},
	{Name: "major_version", Type: structfield.U16},
	{Name: "minor_version", Type: structfield.U16},
	{Name: "block_size_1", Type: structfield.U16},
	{Name: "block_log", Type: structfield.U16},
	{Name: "flags", Type: structfield.U8},
	{Name: "uid_count", Type: structfield.U8},
	{Name: "guid_count", Type: structfield.U8},
	{Name: "modification_time", Type: structfield.U32},
	{Name: "root_inode_ref", Type: structfield.U64},
	{Name: "block_size", Type: structfield.U32},
	{Name: "fragment_entry_count", Type: structfield.U32},
	{Name: "fragment_table_start_2", Type: structfield.U32},
	{Name: "image_size", Type: structfield.U64},
	{Name: "uid_start", Type: structfield.U64},
	{Name: "guid_start", Type: structfield.U64},
	{Name: "inode_table_start", Type: structfield.U64},
	{Name: "directory_table_start", Type: structfield.U64},
	{Name: "fragment_table_start", Type: structfield.U64},
	{Name: "lookup_table_start", Type: structfield.U64},
}

// SquashFSHeader is the parsed SquashFS superblock, normalized across
// the v3 and v4 on-disk layouts.
type SquashFSHeader struct {
	Endianness    structfield.Endianness
	Timestamp     int
	BlockSize     int
	ImageSize     int
	HeaderSize    int
	InodeCount    int
	Compression   int
	MajorVersion  int
	MinorVersion  int
	UIDTableStart int
}

// ParseSquashFSHeader determines the superblock's version and
// endianness from the version field's fixed offset (valid regardless of
// overall layout), then parses the matching v3 or v4 structure.
func ParseSquashFSHeader(data []byte) (SquashFSHeader, error) {
	if len(data) <= squashfsMinHeaderSize {
		return SquashFSHeader{}, fmt.Errorf("formats: squashfs: short header")
	}

	endian := structfield.LittleEndian
	version := decodeU16(data[squashfsVersionStart:squashfsVersionEnd], endian)
	if version == 0 || version > squashfsMaxVersion {
		endian = structfield.BigEndian
		version = decodeU16(data[squashfsVersionStart:squashfsVersionEnd], endian)
	}
	if version == 0 || version > squashfsMaxVersion {
		return SquashFSHeader{}, fmt.Errorf("formats: squashfs: implausible version")
	}

	fields := squashfsV3Fields
	if version == 4 {
		fields = squashfsV4Fields
	}
	headerSize := structfield.Size(fields)

	values, err := structfield.Parse(data, fields, endian)
	if err != nil {
		return SquashFSHeader{}, err
	}

	imageSize := values["image_size"]
	if imageSize <= squashfsMinHeaderSize {
		return SquashFSHeader{}, fmt.Errorf("formats: squashfs: implausible image size")
	}

	blockSize := values["block_size"]
	if blockSize == 0 || values["block_log"] != uint64(bits.Len64(blockSize)-1) {
		return SquashFSHeader{}, fmt.Errorf("formats: squashfs: block size/log mismatch")
	}

	compression := 0
	if c, ok := values["compression_id"]; ok {
		compression = int(c)
	}

	return SquashFSHeader{
		Endianness:    endian,
		Timestamp:     int(values["modification_time"]),
		BlockSize:     int(blockSize),
		ImageSize:     int(imageSize),
		HeaderSize:    headerSize,
		InodeCount:    int(values["inode_count"]),
		Compression:   compression,
		MajorVersion:  int(values["major_version"]),
		MinorVersion:  int(values["minor_version"]),
		UIDTableStart: int(values["uid_start"]),
	}, nil
}

func decodeU16(data []byte, endian structfield.Endianness) uint64 {
	v, _ := structfield.Parse(data, structfield.Fields{{Name: "v", Type: structfield.U16}}, endian)
	return v["v"]
}

// SquashFSSignature is the registry entry for SquashFS filesystem
// images. Extraction is delegated to the `sasquatch` utility (a
// SquashFS-aware unsquashfs fork tolerant of the many vendor-specific
// compression/layout variants found in firmware).
func SquashFSSignature() signature.Signature {
	return signature.Signature{
		Name:        "squashfs",
		Description: "SquashFS filesystem",
		Magic:       [][]byte{{'h', 's', 'q', 's'}, {'s', 'q', 's', 'h'}},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			header, err := ParseSquashFSHeader(data[offset:])
			if err != nil {
				return signature.SignatureResult{}, err
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        header.ImageSize,
				Confidence:  signature.ConfidenceHigh,
				Description: fmt.Sprintf("SquashFS filesystem, %d.%d, inode count: %d, block size: %d, image size: %d bytes", header.MajorVersion, header.MinorVersion, header.InodeCount, header.BlockSize, header.ImageSize),
			}, nil
		},
		Extractor: &signature.Extractor{
			Kind:      signature.ExtractorExternal,
			Command:   "sasquatch",
			Arguments: []string{signature.SourceFilePlaceholder},
			ExitCodes: []int{0, 2},
			Extension: "sqsh",
		},
	}
}
