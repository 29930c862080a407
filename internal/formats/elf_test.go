package formats

import (
	"testing"

	"github.com/standardbeagle/firmwalk/internal/structfield"
)

func buildELFHeader(class, endianness byte) []byte {
	ident := structfield.Encode(structfield.Values{
		"magic":      elfMagic,
		"class":      uint64(class),
		"endianness": uint64(endianness),
		"version":    1,
		"osabi":      3, // Linux
		"abiversion": 0,
		"padding_1":  0,
		"padding_2":  0,
	}, elfIdentFields, structfield.LittleEndian)

	endian := structfield.LittleEndian
	if endianness == 2 {
		endian = structfield.BigEndian
	}
	info := structfield.Encode(structfield.Values{
		"type":    2, // executable
		"machine": 40, // ARM
		"version": 1,
	}, elfInfoFields, endian)

	buf := append(ident, info...)
	return append(buf, make([]byte, elfMinSize-len(buf))...)
}

func TestParseELFHeaderDecodesLittleEndian32Bit(t *testing.T) {
	data := buildELFHeader(1, 1)
	header, err := ParseELFHeader(data)
	if err != nil {
		t.Fatalf("ParseELFHeader: %v", err)
	}
	if header.Class != "32-bit" || header.Endianness != "little" || header.Machine != "ARM" || header.Type != "executable" {
		t.Fatalf("unexpected header: %+v", header)
	}
}

func TestParseELFHeaderRejectsBadMagic(t *testing.T) {
	data := buildELFHeader(1, 1)
	data[0] = 0x00
	if _, err := ParseELFHeader(data); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}

func TestParseELFHeaderRejectsNonZeroPadding(t *testing.T) {
	data := buildELFHeader(1, 1)
	data[9] = 0xFF // first byte of padding_1
	if _, err := ParseELFHeader(data); err == nil {
		t.Fatalf("expected error for non-zero padding")
	}
}

func TestELFSignatureDeclinesExtraction(t *testing.T) {
	sig := ELFSignature()
	data := buildELFHeader(2, 2)
	result, err := sig.Validate(data, 0)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.ExtractionDeclined {
		t.Fatalf("expected ELF match to decline extraction")
	}
}
