package builtin

import (
	"hash/crc32"
	"strings"

	"github.com/standardbeagle/firmwalk/internal/chroot"
	"github.com/standardbeagle/firmwalk/internal/formats"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

const uimageDefaultName = "uimage_data"
const uimageOutputExtension = ".bin"

// ExtractUImage implements signature.InternalFunc for U-Boot legacy
// images: it re-parses the header, validates the payload's data CRC
// (the one check the header parser itself does not make, since it only
// covers the header fields), and carves the payload to a file named
// after the image's embedded name, if one was set.
func ExtractUImage(data []byte, offset int, outputDir string) signature.ExtractionResult {
	header, err := formats.ParseUImageHeader(data[offset:])
	if err != nil {
		return signature.ExtractionResult{}
	}

	payloadStart := offset + header.HeaderSize
	payloadEnd := payloadStart + header.DataSize
	if payloadEnd > len(data) {
		return signature.ExtractionResult{}
	}
	payload := data[payloadStart:payloadEnd]

	if crc32.ChecksumIEEE(payload) != header.DataCRC {
		return signature.ExtractionResult{}
	}

	size := header.HeaderSize + header.DataSize
	if outputDir == "" {
		return signature.ExtractionResult{Success: true, Size: size, SizeKnown: true}
	}

	sink, err := chroot.New(outputDir)
	if err != nil {
		return signature.ExtractionResult{}
	}

	baseName := uimageDefaultName
	if header.Name != "" {
		baseName = strings.ReplaceAll(header.Name, " ", "_")
	}
	if err := sink.CreateFile(baseName+uimageOutputExtension, payload); err != nil {
		return signature.ExtractionResult{}
	}

	return signature.ExtractionResult{Success: true, Size: size, SizeKnown: true}
}
