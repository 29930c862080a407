package builtin

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/chroot"
	"github.com/standardbeagle/firmwalk/internal/formats"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

// ExtractCSMan implements signature.InternalFunc for CSMan DAT files:
// each decoded entry is written to its own file named after its
// hex-encoded key.
func ExtractCSMan(data []byte, offset int, outputDir string) signature.ExtractionResult {
	totalSize, entries, ok := formats.WalkCSManEntries(data, offset)
	if !ok {
		return signature.ExtractionResult{}
	}

	result := signature.ExtractionResult{Success: true, Size: totalSize, SizeKnown: true}
	if outputDir == "" {
		return result
	}

	sink, err := chroot.New(outputDir)
	if err != nil {
		return signature.ExtractionResult{}
	}

	for _, entry := range entries {
		name := fmt.Sprintf("%X.dat", entry.Key)
		if err := sink.CreateFile(name, entry.Value); err != nil {
			return signature.ExtractionResult{}
		}
	}
	return result
}
