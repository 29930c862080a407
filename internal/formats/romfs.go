// Package formats holds the per-format header parsers built on
// internal/structfield, each beside its format's Signature constructor;
// internal/catalog gathers those Signatures into the registration list.
// Each file here mirrors the field layout and magic constants of its
// counterpart under original_source/src/extractors, re-expressed as
// structfield descriptors.
package formats

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/signature"
	"github.com/standardbeagle/firmwalk/internal/structfield"
)

var romfsHeaderFields = structfield.Fields{
	{Name: "magic", Type: structfield.U64},
	{Name: "image_size", Type: structfield.U32},
	{Name: "checksum", Type: structfield.U32},
}

const romfsMagic uint64 = 0x2D726F6D31667300 // "-rom1fs\0"
const romfsAlignment = 16
const romfsMaxChecksumLen = 512

// RomFSHeader is the parsed, validated superblock.
type RomFSHeader struct {
	ImageSize  int
	HeaderSize int
	VolumeName string
}

func romfsAlign(x int) int {
	if r := x % romfsAlignment; r > 0 {
		return x + (romfsAlignment - r)
	}
	return x
}

func romfsChecksumValid(data []byte) bool {
	if len(data)%4 != 0 {
		return false
	}
	var sum uint32
	for i := 0; i < len(data); i += 4 {
		sum += uint32(data[i])<<24 | uint32(data[i+1])<<16 | uint32(data[i+2])<<8 | uint32(data[i+3])
	}
	return sum == 0
}

// ParseRomFSHeader validates and decodes a RomFS superblock at the front
// of data.
func ParseRomFSHeader(data []byte) (RomFSHeader, error) {
	headerSize := structfield.Size(romfsHeaderFields)
	if len(data) < headerSize {
		return RomFSHeader{}, fmt.Errorf("formats: romfs: short header")
	}

	values, err := structfield.Parse(data[:headerSize], romfsHeaderFields, structfield.BigEndian)
	if err != nil {
		return RomFSHeader{}, err
	}
	if values["magic"] != romfsMagic {
		return RomFSHeader{}, fmt.Errorf("formats: romfs: bad magic")
	}

	imageSize := int(values["image_size"])
	if imageSize <= headerSize {
		return RomFSHeader{}, fmt.Errorf("formats: romfs: implausible image size")
	}

	volumeName := string(structfield.CString(data[headerSize:]))

	crcLen := romfsMaxChecksumLen
	if imageSize < crcLen {
		crcLen = imageSize
	}
	if crcLen > len(data) || !romfsChecksumValid(data[:crcLen]) {
		return RomFSHeader{}, fmt.Errorf("formats: romfs: checksum mismatch")
	}

	return RomFSHeader{
		ImageSize:  imageSize,
		HeaderSize: headerSize + romfsAlign(len(volumeName)+1),
		VolumeName: volumeName,
	}, nil
}

var romfsFileEntryFields = structfield.Fields{
	{Name: "next_header_offset", Type: structfield.U32},
	{Name: "info", Type: structfield.U32},
	{Name: "size", Type: structfield.U32},
	{Name: "checksum", Type: structfield.U32},
}

const (
	romfsFileTypeMask  = 0b0111
	romfsFileExecMask  = 0b1000
	romfsNextOffsetMask = 0xFFFFFFF0

	romfsTypeDirectory = 1
	romfsTypeRegular   = 2
	romfsTypeSymlink   = 3
)

// RomFSFileEntry is one parsed on-image directory entry.
type RomFSFileEntry struct {
	Info              int
	Size              int
	Name              string
	DataOffset        int // relative to the start of this header
	FileType          int
	Executable        bool
	Symlink           bool
	Directory         bool
	Regular           bool
	NextHeaderOffset  int // relative to the start of the RomFS image; 0 means end of list
}

// ParseRomFSFileEntry decodes one file entry starting at the front of
// data (already relative to the image base).
func ParseRomFSFileEntry(data []byte) (RomFSFileEntry, error) {
	headerSize := structfield.Size(romfsFileEntryFields)
	if len(data) < headerSize {
		return RomFSFileEntry{}, fmt.Errorf("formats: romfs: short file entry")
	}

	values, err := structfield.Parse(data[:headerSize], romfsFileEntryFields, structfield.BigEndian)
	if err != nil {
		return RomFSFileEntry{}, err
	}

	name := string(structfield.CString(data[headerSize:]))
	if len(name) == 0 {
		return RomFSFileEntry{}, fmt.Errorf("formats: romfs: empty file name")
	}

	next := values["next_header_offset"]
	fileType := int(next) & romfsFileTypeMask

	return RomFSFileEntry{
		Size:             int(values["size"]),
		Info:             int(values["info"]),
		Name:             name,
		DataOffset:       headerSize + romfsAlign(len(name)+1),
		FileType:         fileType,
		Executable:       int(next)&romfsFileExecMask != 0,
		Symlink:          fileType == romfsTypeSymlink,
		Regular:          fileType == romfsTypeRegular,
		Directory:        fileType == romfsTypeDirectory,
		NextHeaderOffset: int(next) & romfsNextOffsetMask,
	}, nil
}

// RomFSSignature is the registry entry for RomFS superblock detection.
func RomFSSignature() signature.Signature {
	magic := []byte{'-', 'r', 'o', 'm', '1', 'f', 's', 0}
	return signature.Signature{
		Name:        "romfs",
		Description: "RomFS filesystem",
		Magic:       [][]byte{magic},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			if offset+len(magic) > len(data) {
				return signature.SignatureResult{}, fmt.Errorf("short")
			}
			header, err := ParseRomFSHeader(data[offset:])
			if err != nil {
				return signature.SignatureResult{}, err
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        header.ImageSize,
				Confidence:  signature.ConfidenceHigh,
				Description: fmt.Sprintf("RomFS filesystem, volume name %q, image size %d bytes", header.VolumeName, header.ImageSize),
			}, nil
		},
	}
}
