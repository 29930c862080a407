package builtin

import (
	"sort"

	"github.com/standardbeagle/firmwalk/internal/chroot"
	"github.com/standardbeagle/firmwalk/internal/formats"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

// ExtractTRX implements signature.InternalFunc for TRX firmware images:
// it splits the image into its boot/kernel/rootfs partitions, carving
// each at its declared offset up to the next partition's start offset
// (or the end of the image, for the last partition present).
func ExtractTRX(data []byte, offset int, outputDir string) signature.ExtractionResult {
	header, err := formats.ParseTRXHeader(data[offset:])
	if err != nil {
		return signature.ExtractionResult{}
	}

	result := signature.ExtractionResult{Success: true, Size: header.TotalSize, SizeKnown: true}
	if outputDir == "" {
		return result
	}

	sink, err := chroot.New(outputDir)
	if err != nil {
		return signature.ExtractionResult{}
	}

	type partition struct {
		name   string
		relOff int
	}
	var parts []partition
	if header.BootPartition > 0 {
		parts = append(parts, partition{"boot", header.BootPartition})
	}
	if header.KernelPartition > 0 {
		parts = append(parts, partition{"kernel", header.KernelPartition})
	}
	if header.RootFSPartition > 0 {
		parts = append(parts, partition{"rootfs", header.RootFSPartition})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].relOff < parts[j].relOff })

	count := 0
	for i, p := range parts {
		end := header.TotalSize
		if i+1 < len(parts) {
			end = parts[i+1].relOff
		}
		size := end - p.relOff
		name := "partition_" + p.name + ".bin"
		if err := sink.CarveFile(name, data, offset+p.relOff, size); err == nil {
			count++
		}
	}

	if count == 0 {
		result.Success = false
	}
	return result
}
