package formats

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/signature"
	"github.com/standardbeagle/firmwalk/internal/structfield"
)

var gzipHeaderFields = structfield.Fields{
	{Name: "magic", Type: structfield.U16},
	{Name: "compression_method", Type: structfield.U8},
	{Name: "flags", Type: structfield.U8},
	{Name: "timestamp", Type: structfield.U32},
	{Name: "extra_flags", Type: structfield.U8},
	{Name: "osid", Type: structfield.U8},
}

var gzipExtraHeaderFields = structfield.Fields{
	{Name: "id", Type: structfield.U16},
	{Name: "extra_data_len", Type: structfield.U16},
}

const (
	gzipFlagCRC      = 0b0000_0010
	gzipFlagExtra    = 0b0000_0100
	gzipFlagName     = 0b0000_1000
	gzipFlagComment  = 0b0001_0000
	gzipFlagReserved = 0b1110_0000

	gzipDeflateMethod = 8
	gzipCRCFieldSize  = 2
)

var gzipOSNames = map[uint64]string{
	0: "FAT filesystem (MS-DOS, OS/2, NT/Win32)",
	1: "Amiga",
	2: "VMS (or OpenVMS)",
	3: "Unix",
	4: "VM/CMS",
	5: "Atari TOS",
	6: "HPFS filesystem (OS/2, NT)",
	7: "Macintosh",
	8: "Z-System",
	9: "CP/M",
	10: "TOPS-20",
	11: "NTFS filesystem (NT)",
	12: "QDOS",
	13: "Acorn RISCOS",
	255: "unknown",
}

// GzipHeader is the parsed, variable-length gzip member header.
type GzipHeader struct {
	OS           string
	Size         int // total header length, including any optional fields
	Comment      string
	Timestamp    uint32
	OriginalName string
}

// ParseGzipHeader decodes a gzip member header at the front of data,
// including its optional extra/name/comment/CRC fields.
func ParseGzipHeader(data []byte) (GzipHeader, error) {
	fixedSize := structfield.Size(gzipHeaderFields)
	if len(data) <= fixedSize {
		return GzipHeader{}, fmt.Errorf("formats: gzip: short header")
	}

	values, err := structfield.Parse(data[:fixedSize], gzipHeaderFields, structfield.LittleEndian)
	if err != nil {
		return GzipHeader{}, err
	}

	header := GzipHeader{Size: fixedSize, Timestamp: uint32(values["timestamp"])}

	if values["flags"]&gzipFlagReserved != 0 {
		return GzipHeader{}, fmt.Errorf("formats: gzip: reserved flag bits set")
	}
	if values["compression_method"] != gzipDeflateMethod {
		return GzipHeader{}, fmt.Errorf("formats: gzip: unsupported compression method")
	}
	osName, known := gzipOSNames[values["osid"]]
	if !known {
		return GzipHeader{}, fmt.Errorf("formats: gzip: unknown OS id")
	}
	header.OS = osName

	if values["flags"]&gzipFlagExtra != 0 {
		extraSize := structfield.Size(gzipExtraHeaderFields)
		end := header.Size + extraSize
		if len(data) <= end {
			return GzipHeader{}, fmt.Errorf("formats: gzip: truncated extra header")
		}
		extra, err := structfield.Parse(data[header.Size:end], gzipExtraHeaderFields, structfield.LittleEndian)
		if err != nil {
			return GzipHeader{}, err
		}
		header.Size += extraSize + int(extra["extra_data_len"])
	}

	if values["flags"]&gzipFlagName != 0 {
		if len(data) <= header.Size {
			return GzipHeader{}, fmt.Errorf("formats: gzip: truncated name")
		}
		name := structfield.CString(data[header.Size:])
		header.OriginalName = string(name)
		header.Size += len(name) + 1
	}

	if values["flags"]&gzipFlagComment != 0 {
		if len(data) <= header.Size {
			return GzipHeader{}, fmt.Errorf("formats: gzip: truncated comment")
		}
		comment := structfield.CString(data[header.Size:])
		header.Comment = string(comment)
		header.Size += len(comment) + 1
	}

	if values["flags"]&gzipFlagCRC != 0 {
		header.Size += gzipCRCFieldSize
	}

	if len(data) <= header.Size {
		return GzipHeader{}, fmt.Errorf("formats: gzip: no data past header")
	}

	return header, nil
}

// GzipSignature is the registry entry for gzip member detection. The
// validator only parses the header; it reports size 0 (unknown) and
// relies on phase 4 size inference, since determining the true
// compressed size requires driving the deflate decoder, which is the
// extractor's job, not the validator's (see DESIGN.md on keeping
// validators and extractors decoupled across package boundaries).
func GzipSignature() signature.Signature {
	magic := []byte{0x1f, 0x8b, 0x08}
	return signature.Signature{
		Name:        "gzip",
		Description: "gzip compressed data",
		Magic:       [][]byte{magic},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			header, err := ParseGzipHeader(data[offset:])
			if err != nil {
				return signature.SignatureResult{}, err
			}
			desc := fmt.Sprintf("gzip compressed data, operating system: %s", header.OS)
			if header.OriginalName != "" {
				desc = fmt.Sprintf("gzip compressed data, original file name: %q, operating system: %s", header.OriginalName, header.OS)
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        0,
				Confidence:  signature.ConfidenceHigh,
				Description: desc,
			}, nil
		},
	}
}
