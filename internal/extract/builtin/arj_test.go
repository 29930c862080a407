package builtin

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func buildARJTestHeader(fileType byte, extraHeaderSize byte) []byte {
	header := make([]byte, 24)
	binary.LittleEndian.PutUint16(header[0:2], 0xEA60)
	binary.LittleEndian.PutUint16(header[2:4], 0)
	header[4] = extraHeaderSize
	header[5] = 8 // archiver_version
	header[6] = 5 // min_version
	header[7] = 2 // host_os: UNIX
	header[8] = 0 // internal_flags
	header[9] = 2 // compression_method
	header[10] = fileType
	header[11] = 0 // reserved1
	binary.LittleEndian.PutUint32(header[12:16], 0)
	binary.LittleEndian.PutUint32(header[16:20], 100)
	binary.LittleEndian.PutUint32(header[20:24], 200)
	return append(header, make([]byte, extraHeaderSize)...)
}

func TestExtractARJWritesHeaderBytes(t *testing.T) {
	data := buildARJTestHeader(0, 3) // binary, 3 extra header bytes
	dir := t.TempDir()

	result := ExtractARJ(data, 0, dir)
	if !result.Success {
		t.Fatalf("extraction failed: %+v", result)
	}
	if result.Size != 27 { // 24-byte fixed struct + 3 extra bytes
		t.Fatalf("got size %d, want 27", result.Size)
	}

	carved, err := os.ReadFile(filepath.Join(dir, "arj_header.bin"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(carved) != 27 {
		t.Fatalf("got %d carved bytes, want 27", len(carved))
	}
}

func TestExtractARJDryRunReportsSize(t *testing.T) {
	data := buildARJTestHeader(0, 0)
	result := ExtractARJ(data, 0, "")
	if !result.Success || result.Size != 24 {
		t.Fatalf("unexpected dry-run result %+v", result)
	}
}
