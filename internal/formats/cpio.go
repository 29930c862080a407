package formats

import (
	"fmt"
	"strconv"

	"github.com/standardbeagle/firmwalk/internal/signature"
)

const cpioHeaderSize = 110
const cpioMagicStart, cpioMagicEnd = 0, 6
const cpioFileSizeStart, cpioFileSizeEnd = 54, 62
const cpioFileNameSizeStart, cpioFileNameSizeEnd = 94, 102

var cpioNewcMagic = []byte("070701")

const cpioTrailerName = "TRAILER!!!"

// cpioPadding returns the number of bytes needed to round n up to the
// next 4-byte boundary; cpio "newc" pads both header and file data.
func cpioPadding(n int) int {
	if rem := n % 4; rem != 0 {
		return 4 - rem
	}
	return 0
}

// CPIOEntryHeader is one parsed "newc" entry header: the fixed 110-byte
// ASCII-hex field block, plus the file name that immediately follows it.
type CPIOEntryHeader struct {
	FileName   string
	DataSize   int // padded to a 4-byte boundary
	HeaderSize int // fixed header + name, padded to a 4-byte boundary
}

// ParseCPIOEntryHeader decodes a single "newc" format entry header at
// the front of data.
func ParseCPIOEntryHeader(data []byte) (CPIOEntryHeader, error) {
	if len(data) <= cpioHeaderSize {
		return CPIOEntryHeader{}, fmt.Errorf("formats: cpio: short header")
	}
	if string(data[cpioMagicStart:cpioMagicEnd]) != string(cpioNewcMagic) {
		return CPIOEntryHeader{}, fmt.Errorf("formats: cpio: bad magic")
	}

	dataSize, err := strconv.ParseInt(string(data[cpioFileSizeStart:cpioFileSizeEnd]), 16, 64)
	if err != nil {
		return CPIOEntryHeader{}, fmt.Errorf("formats: cpio: bad file size field: %w", err)
	}
	nameSize, err := strconv.ParseInt(string(data[cpioFileNameSizeStart:cpioFileNameSizeEnd]), 16, 64)
	if err != nil {
		return CPIOEntryHeader{}, fmt.Errorf("formats: cpio: bad file name size field: %w", err)
	}
	if nameSize < 1 {
		return CPIOEntryHeader{}, fmt.Errorf("formats: cpio: implausible file name size")
	}

	nameStart := cpioHeaderSize
	nameEnd := nameStart + int(nameSize) - 1 // exclude the name's NUL terminator
	if nameEnd < nameStart || nameEnd > len(data) {
		return CPIOEntryHeader{}, fmt.Errorf("formats: cpio: file name exceeds available data")
	}

	headerTotal := cpioHeaderSize + int(nameSize)

	return CPIOEntryHeader{
		FileName:   string(data[nameStart:nameEnd]),
		DataSize:   int(dataSize) + cpioPadding(int(dataSize)),
		HeaderSize: headerTotal + cpioPadding(headerTotal),
	}, nil
}

// CPIOArchiveSize walks a chain of "newc" entry headers starting at the
// front of data and returns the total size up to and including the
// TRAILER!!! entry that terminates every cpio archive, or false if the
// chain runs out of data before a trailer is found.
func CPIOArchiveSize(data []byte) (int, bool) {
	pos := 0
	for {
		entry, err := ParseCPIOEntryHeader(data[pos:])
		if err != nil {
			return 0, false
		}
		pos += entry.HeaderSize + entry.DataSize
		if entry.FileName == cpioTrailerName {
			return pos, true
		}
		if pos >= len(data) {
			return 0, false
		}
	}
}

// CPIOSignature is the registry entry for "newc" format cpio archives.
// Extraction is declined: decoding cpio's per-entry file mode/ownership
// fields into a filesystem tree is out of scope.
func CPIOSignature() signature.Signature {
	return signature.Signature{
		Name:        "cpio",
		Description: "cpio archive",
		Magic:       [][]byte{cpioNewcMagic},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			if offset > len(data) {
				return signature.SignatureResult{}, fmt.Errorf("formats: cpio: offset out of range")
			}
			size, ok := CPIOArchiveSize(data[offset:])
			if !ok {
				return signature.SignatureResult{}, fmt.Errorf("formats: cpio: no trailer entry found")
			}
			return signature.SignatureResult{
				Offset:             offset,
				Size:               size,
				Confidence:         signature.ConfidenceHigh,
				Description:        "cpio archive, newc format",
				ExtractionDeclined: true,
			}, nil
		},
	}
}
