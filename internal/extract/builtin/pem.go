package builtin

import (
	"github.com/standardbeagle/firmwalk/internal/chroot"
	"github.com/standardbeagle/firmwalk/internal/formats"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

// ExtractPEM implements signature.InternalFunc for PEM-encoded keys and
// certificates: it re-locates the END marker to size the block (the
// same search the validator already did) and carves it out under a
// name reflecting the block's kind.
func ExtractPEM(data []byte, offset int, outputDir string) signature.ExtractionResult {
	size, ok := formats.PEMSize(data, offset)
	if !ok {
		return signature.ExtractionResult{}
	}

	result := signature.ExtractionResult{Success: true, Size: size, SizeKnown: true, DoNotRecurse: true}
	if outputDir == "" {
		return result
	}

	sink, err := chroot.New(outputDir)
	if err != nil {
		return signature.ExtractionResult{}
	}

	name := "pem.crt"
	if formats.ClassifyPEMMagic(data, offset) != formats.PEMCertificate {
		name = "pem.key"
	}

	if err := sink.CarveFile(name, data, offset, size); err != nil {
		return signature.ExtractionResult{}
	}
	return result
}
