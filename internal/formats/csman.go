package formats

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/signature"
	"github.com/standardbeagle/firmwalk/internal/structfield"
)

var csmanHeaderFields = structfield.Fields{
	{Name: "magic", Type: structfield.U16},
	{Name: "unknown1", Type: structfield.U16},
	{Name: "data_size_1", Type: structfield.U32},
	{Name: "unknown2", Type: structfield.U32},
	{Name: "data_size_2", Type: structfield.U32},
}

// CSManHeader is the parsed CSMan DAT file preamble.
type CSManHeader struct {
	DataSize   int
	HeaderSize int
}

// ParseCSManHeader decodes a CSMan header at the front of data. The
// data size is carried redundantly in two fields; both copies must
// agree for the header to be considered valid.
func ParseCSManHeader(data []byte) (CSManHeader, error) {
	headerSize := structfield.Size(csmanHeaderFields)
	values, err := structfield.Parse(data, csmanHeaderFields, structfield.BigEndian)
	if err != nil {
		return CSManHeader{}, err
	}
	if values["data_size_1"] != values["data_size_2"] {
		return CSManHeader{}, fmt.Errorf("formats: csman: data size fields disagree")
	}
	return CSManHeader{DataSize: int(values["data_size_1"]), HeaderSize: headerSize}, nil
}

var csmanEntryFields = structfield.Fields{
	{Name: "key", Type: structfield.U32},
	{Name: "size", Type: structfield.U16},
}

var csmanLastEntryFields = structfield.Fields{
	{Name: "eof", Type: structfield.U32},
}

// CSManEntry is one parsed record in a CSMan DAT entry table.
type CSManEntry struct {
	Size  int
	EOF   bool
	Key   uint32
	Value []byte
}

// ParseCSManEntry decodes a single entry at the front of data: either a
// key/size/value record, or (at the very end of the table) a bare
// 4-byte zero EOF marker.
func ParseCSManEntry(data []byte) (CSManEntry, error) {
	if values, err := structfield.Parse(data, csmanEntryFields, structfield.BigEndian); err == nil {
		valueStart := structfield.Size(csmanEntryFields)
		valueEnd := valueStart + int(values["size"])
		if valueEnd <= len(data) {
			return CSManEntry{
				Key:   uint32(values["key"]),
				Value: append([]byte(nil), data[valueStart:valueEnd]...),
				Size:  valueEnd,
			}, nil
		}
	}

	if values, err := structfield.Parse(data, csmanLastEntryFields, structfield.BigEndian); err == nil {
		if values["eof"] == 0 {
			return CSManEntry{EOF: true, Size: structfield.Size(csmanLastEntryFields)}, nil
		}
	}

	return CSManEntry{}, fmt.Errorf("formats: csman: not a valid entry")
}

// isOffsetSafe reports whether nextOffset can be parsed from a region
// of availableData bytes without revisiting or regressing past
// previousOffset.
func isOffsetSafe(availableData, nextOffset int, previousOffset int, havePrevious bool) bool {
	if havePrevious && previousOffset >= nextOffset {
		return false
	}
	return nextOffset < availableData
}

// CSManSignature is the registry entry for CSMan DAT configuration
// files. Magic-only matching ("SC"/"CS") is ambiguous, so validation
// runs the full entry-table walk as a dry-run extraction and only
// accepts the candidate if every entry parses cleanly through a
// trailing EOF marker.
func CSManSignature() signature.Signature {
	return signature.Signature{
		Name:        "csman",
		Description: "CSman DAT file",
		Magic:       [][]byte{[]byte("SC"), []byte("CS")},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			totalSize, _, ok := WalkCSManEntries(data, offset)
			if !ok {
				return signature.SignatureResult{}, fmt.Errorf("formats: csman: entry table did not validate")
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        totalSize,
				Confidence:  signature.ConfidenceHigh,
				Description: fmt.Sprintf("CSman DAT file, total size: %d bytes", totalSize),
			}, nil
		},
	}
}

// WalkCSManEntries parses the full entry table following a CSMan
// header at offset and reports the total size consumed (header plus
// entry table) and the decoded entries. ok is false unless the table
// was terminated by a valid EOF marker and at least one entry was
// read.
func WalkCSManEntries(data []byte, offset int) (totalSize int, entries []CSManEntry, ok bool) {
	header, err := ParseCSManHeader(data[offset:])
	if err != nil {
		return 0, nil, false
	}

	entriesStart := offset + header.HeaderSize
	entriesEnd := entriesStart + header.DataSize
	if entriesEnd > len(data) {
		return 0, nil, false
	}
	entryData := data[entriesStart:entriesEnd]

	nextOffset := 0
	previousOffset := 0
	havePrevious := false
	success := false

	for isOffsetSafe(len(entryData), nextOffset, previousOffset, havePrevious) {
		entry, err := ParseCSManEntry(entryData[nextOffset:])
		if err != nil {
			break
		}
		if entry.EOF {
			success = len(entries) > 0
			break
		}
		entries = append(entries, entry)
		previousOffset = nextOffset
		havePrevious = true
		nextOffset += entry.Size
	}

	if !success {
		return 0, nil, false
	}
	return header.HeaderSize + header.DataSize, entries, true
}
