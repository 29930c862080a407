package formats

import (
	"testing"

	"github.com/standardbeagle/firmwalk/internal/structfield"
)

func buildCramFSHeader(endian structfield.Endianness, size, fileCount uint64) []byte {
	// The on-disk magic is one value in either byte order: written
	// big-endian, its bytes read little-endian as cramfsMagicBigEndian.
	header := structfield.Encode(structfield.Values{
		"magic":        cramfsMagicLittleEndian,
		"size":         size,
		"flags":        0,
		"future":       0,
		"signature_p1": 0,
		"signature_p2": 0,
		"checksum":     0,
		"edition":      0,
		"block_count":  0,
		"file_count":   fileCount,
	}, cramfsHeaderFields, endian)
	return append(header, make([]byte, cramfsHeaderSize+1-len(header))...)
}

func TestParseCramFSHeaderDecodesLittleEndian(t *testing.T) {
	data := buildCramFSHeader(structfield.LittleEndian, 4096, 12)
	header, err := ParseCramFSHeader(data)
	if err != nil {
		t.Fatalf("ParseCramFSHeader: %v", err)
	}
	if header.Size != 4096 || header.FileCount != 12 {
		t.Fatalf("unexpected header: %+v", header)
	}
}

func TestParseCramFSHeaderDecodesBigEndian(t *testing.T) {
	data := buildCramFSHeader(structfield.BigEndian, 8192, 3)
	header, err := ParseCramFSHeader(data)
	if err != nil {
		t.Fatalf("ParseCramFSHeader: %v", err)
	}
	if header.Size != 8192 || header.Endianness != structfield.BigEndian {
		t.Fatalf("unexpected header: %+v", header)
	}
}

func TestCramFSSignatureDeclinesExtraction(t *testing.T) {
	data := buildCramFSHeader(structfield.LittleEndian, 1024, 1)
	sig := CramFSSignature()
	result, err := sig.Validate(data, 0)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.ExtractionDeclined || result.Size != 1024 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
