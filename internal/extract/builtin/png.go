package builtin

import (
	"github.com/standardbeagle/firmwalk/internal/chroot"
	"github.com/standardbeagle/firmwalk/internal/formats"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

const pngOutputName = "image.png"
const pngHeaderSize = 8

// ExtractPNG implements signature.InternalFunc for PNG images: it
// re-walks the chunk stream to size the image (header plus chunk data
// up to and including IEND), then carves exactly that span.
func ExtractPNG(data []byte, offset int, outputDir string) signature.ExtractionResult {
	if len(data) < offset+pngHeaderSize {
		return signature.ExtractionResult{}
	}

	dataSize, ok := formats.PNGDataSize(data[offset+pngHeaderSize:])
	if !ok {
		return signature.ExtractionResult{}
	}
	size := pngHeaderSize + dataSize

	if outputDir == "" {
		return signature.ExtractionResult{Success: true, Size: size, SizeKnown: true}
	}

	sink, err := chroot.New(outputDir)
	if err != nil {
		return signature.ExtractionResult{}
	}
	if err := sink.CarveFile(pngOutputName, data, offset, size); err != nil {
		return signature.ExtractionResult{}
	}

	return signature.ExtractionResult{Success: true, Size: size, SizeKnown: true}
}
