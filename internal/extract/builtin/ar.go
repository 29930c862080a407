package builtin

import (
	"bytes"
	"io"

	"github.com/blakesmith/ar"

	"github.com/standardbeagle/firmwalk/internal/chroot"
	"github.com/standardbeagle/firmwalk/internal/formats"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

// ExtractAR implements signature.InternalFunc for ar archives: every
// named member is read out in full and written under outputDir using
// its archive-relative name.
func ExtractAR(data []byte, offset int, outputDir string) signature.ExtractionResult {
	if offset > len(data) {
		return signature.ExtractionResult{}
	}

	size, err := formats.ARArchiveSize(data[offset:])
	if err != nil {
		return signature.ExtractionResult{}
	}
	if outputDir == "" {
		return signature.ExtractionResult{Success: true, Size: size, SizeKnown: true}
	}

	sink, err := chroot.New(outputDir)
	if err != nil {
		return signature.ExtractionResult{}
	}

	r := ar.NewReader(bytes.NewReader(data[offset:]))
	success := true
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			success = false
			break
		}
		member := make([]byte, header.Size)
		if _, err := io.ReadFull(r, member); err != nil {
			success = false
			break
		}
		if err := sink.CreateFile(header.Name, member); err != nil {
			success = false
		}
	}

	return signature.ExtractionResult{Success: success, Size: size, SizeKnown: true}
}
