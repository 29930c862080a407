package formats

import (
	"archive/tar"
	"bytes"
	"testing"
)

func buildTarArchive(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader: %v", err)
		}
		if _, err := tw.Write(content); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestValidateTarAcceptsWellFormedArchive(t *testing.T) {
	archive := buildTarArchive(t, map[string][]byte{"hello.txt": []byte("hello world")})
	if err := validateTar(archive); err != nil {
		t.Fatalf("validateTar: %v", err)
	}
}

func TestValidateTarRejectsTruncatedArchive(t *testing.T) {
	archive := buildTarArchive(t, map[string][]byte{"hello.txt": []byte("hello world")})
	if err := validateTar(archive[:515]); err == nil {
		t.Fatalf("expected error for truncated archive")
	}
}

func TestTarSignatureValidatesAtMagicOffset(t *testing.T) {
	archive := buildTarArchive(t, map[string][]byte{"a": []byte("x")})
	sig := TarSignature()
	result, err := sig.Validate(archive, tarMagicOffset)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Offset != 0 {
		t.Fatalf("unexpected offset: %+v", result)
	}
}
