package formats

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/signature"
	"github.com/standardbeagle/firmwalk/internal/structfield"
)

var arjHeaderFields = structfield.Fields{
	{Name: "magic", Type: structfield.U16},
	{Name: "basic_header_size", Type: structfield.U16},
	{Name: "extra_header_size", Type: structfield.U8},
	{Name: "archiver_version", Type: structfield.U8},
	{Name: "min_version", Type: structfield.U8},
	{Name: "host_os", Type: structfield.U8},
	{Name: "internal_flags", Type: structfield.U8},
	{Name: "compression_method", Type: structfield.U8},
	{Name: "file_type", Type: structfield.U8},
	{Name: "reserved1", Type: structfield.U8},
	{Name: "datetime_file", Type: structfield.U32},
	{Name: "compressed_filesize", Type: structfield.U32},
	{Name: "original_filesize", Type: structfield.U32},
}

const arjMagic uint64 = 0xEA60

var arjHostOS = map[uint64]string{
	0: "MS-DOS", 1: "PRIMOS", 2: "UNIX", 3: "AMIGA", 4: "MAX-OS",
	5: "OS/2", 6: "APPLE GS", 7: "ATARI ST", 8: "NeXT", 9: "VAX VMS",
}

var arjCompressionMethod = map[uint64]string{
	0: "stored", 1: "compressed most", 2: "compressed",
	3: "compressed faster", 4: "compressed fastest",
}

var arjFileType = map[uint64]string{
	0: "binary", 1: "7-bit text", 2: "comment header", 3: "directory", 4: "volume label",
}

// ARJHeader is the parsed first (main) header of an ARJ archive.
type ARJHeader struct {
	HeaderSize           int
	Version              int
	MinVersion           int
	Flags                string
	HostOS               string
	CompressionMethod    string
	FileType             string
	CompressedFileSize   int
	UncompressedFileSize int
}

// ParseARJHeader validates and decodes the main header of an ARJ archive
// at the front of data. It only describes the first archive entry;
// later entries are not walked, since ARJ's own internal block chain
// (not a single top-level size field) is what bounds the whole archive.
func ParseARJHeader(data []byte) (ARJHeader, error) {
	structSize := structfield.Size(arjHeaderFields)
	if len(data) < structSize {
		return ARJHeader{}, fmt.Errorf("formats: arj: short header")
	}

	values, err := structfield.Parse(data[:structSize], arjHeaderFields, structfield.LittleEndian)
	if err != nil {
		return ARJHeader{}, err
	}
	if values["magic"] != arjMagic {
		return ARJHeader{}, fmt.Errorf("formats: arj: bad magic")
	}

	version := values["archiver_version"]
	minVersion := values["min_version"]
	if version < 1 || version > 16 || minVersion < 1 || minVersion > 16 || version < minVersion {
		return ARJHeader{}, fmt.Errorf("formats: arj: implausible version")
	}

	flags := "no password"
	if values["internal_flags"]&0x01 != 0 {
		flags = "password"
	}
	if values["internal_flags"]&0x04 != 0 {
		flags += "|multi-volume"
	}
	if values["internal_flags"]&0x10 != 0 {
		flags += "|slash-switched"
	}
	if values["internal_flags"]&0x20 != 0 {
		flags += "|backup"
	}

	hostOS, ok := arjHostOS[values["host_os"]]
	if !ok {
		return ARJHeader{}, fmt.Errorf("formats: arj: unknown host OS %d", values["host_os"])
	}
	compressionMethod, ok := arjCompressionMethod[values["compression_method"]]
	if !ok {
		return ARJHeader{}, fmt.Errorf("formats: arj: unknown compression method %d", values["compression_method"])
	}
	fileType, ok := arjFileType[values["file_type"]]
	if !ok {
		return ARJHeader{}, fmt.Errorf("formats: arj: unknown file type %d", values["file_type"])
	}

	return ARJHeader{
		HeaderSize:           int(values["extra_header_size"]),
		Version:              int(version),
		MinVersion:           int(minVersion),
		Flags:                flags,
		HostOS:               hostOS,
		CompressionMethod:    compressionMethod,
		FileType:             fileType,
		CompressedFileSize:   int(values["compressed_filesize"]),
		UncompressedFileSize: int(values["original_filesize"]),
	}, nil
}

// ARJCarveSize returns the number of bytes from offset that make up the
// parsed header: the fixed 24-byte struct plus its extra_header_size
// bytes. This is the region ExtractARJ carves for non-comment headers.
func ARJCarveSize(header ARJHeader) int {
	return structfield.Size(arjHeaderFields) + header.HeaderSize
}

// ARJSignature is the registry entry for ARJ archives. A comment header
// carries no file data to carve, so it declines extraction; any other
// header type carves its own fixed+extra header bytes (see
// extract/builtin.ExtractARJ).
func ARJSignature() signature.Signature {
	return signature.Signature{
		Name:        "arj",
		Description: "ARJ archive data",
		Magic:       [][]byte{{0x60, 0xEA}},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			header, err := ParseARJHeader(data[offset:])
			if err != nil {
				return signature.SignatureResult{}, err
			}
			if header.HeaderSize > len(data)-offset {
				return signature.SignatureResult{}, fmt.Errorf("formats: arj: header size exceeds available data")
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        header.HeaderSize,
				Confidence:  signature.ConfidenceMedium,
				Description: fmt.Sprintf(
					"ARJ archive data, header size: %d, version %d, minimum version to extract: %d, flags: %s, compression method: %s, file type: %s, compressed file size: %d, uncompressed file size: %d, os: %s",
					header.HeaderSize, header.Version, header.MinVersion, header.Flags, header.CompressionMethod,
					header.FileType, header.CompressedFileSize, header.UncompressedFileSize, header.HostOS,
				),
				ExtractionDeclined: header.FileType == "comment header",
			}, nil
		},
	}
}
