package builtin

import (
	"github.com/standardbeagle/firmwalk/internal/chroot"
	"github.com/standardbeagle/firmwalk/internal/formats"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

// ExtractARJ implements signature.InternalFunc for ARJ headers: it
// carves the fixed 24-byte struct plus the header's own extra_header_size
// bytes, the only region the validator itself confirmed well-formed.
// Decoding the entry's compressed file data needs ARJ's own compression
// codec, out of scope here; a comment header (no file data at all) is
// never dispatched to this function since its SignatureResult carries
// ExtractionDeclined.
func ExtractARJ(data []byte, offset int, outputDir string) signature.ExtractionResult {
	header, err := formats.ParseARJHeader(data[offset:])
	if err != nil {
		return signature.ExtractionResult{}
	}
	size := formats.ARJCarveSize(header)

	result := signature.ExtractionResult{Success: true, Size: size, SizeKnown: true, DoNotRecurse: true}
	if outputDir == "" {
		return result
	}

	sink, err := chroot.New(outputDir)
	if err != nil {
		return signature.ExtractionResult{}
	}

	if err := sink.CarveFile("arj_header.bin", data, offset, size); err != nil {
		return signature.ExtractionResult{}
	}
	return result
}
