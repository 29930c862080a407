package builtin

import (
	"bytes"

	"github.com/standardbeagle/firmwalk/internal/chroot"
	"github.com/standardbeagle/firmwalk/internal/formats"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

const androidSparseOutputName = "android.sparse.img"

// ExtractAndroidSparse implements signature.InternalFunc for Android
// sparse images: it walks the chunk table sequentially, appending RAW
// chunk payloads verbatim, expanding FILL chunks into block_count
// repetitions of the chunk's fill word, and writing block_count
// all-zero blocks for DONT_CARE chunks. CRC chunks carry no output
// data and are skipped. Extraction only counts as successful if every
// chunk named by the header was processed.
func ExtractAndroidSparse(data []byte, offset int, outputDir string) signature.ExtractionResult {
	header, err := formats.ParseAndroidSparseHeader(data[offset:])
	if err != nil {
		return signature.ExtractionResult{}
	}

	dryRun := outputDir == ""
	var sink *chroot.Chroot
	if !dryRun {
		sink, err = chroot.New(outputDir)
		if err != nil {
			return signature.ExtractionResult{}
		}
	}

	pos := offset + header.HeaderSize
	processed := 0

	for processed < header.ChunkCount {
		chunk, err := formats.ParseAndroidSparseChunkHeader(data[pos:])
		if err != nil {
			break
		}

		chunkDataStart := pos + chunk.HeaderSize
		chunkDataEnd := chunkDataStart + chunk.DataSize
		if chunkDataEnd > len(data) {
			break
		}

		if !dryRun {
			if !writeAndroidSparseChunk(sink, chunk, header.BlockSize, data[chunkDataStart:chunkDataEnd]) {
				break
			}
		}

		pos = chunkDataEnd
		processed++
	}

	if processed != header.ChunkCount {
		return signature.ExtractionResult{}
	}

	return signature.ExtractionResult{
		Success:   true,
		Size:      pos - offset,
		SizeKnown: true,
	}
}

func writeAndroidSparseChunk(sink *chroot.Chroot, chunk formats.AndroidSparseChunkHeader, blockSize int, payload []byte) bool {
	switch {
	case chunk.IsRaw:
		return sink.AppendToFile(androidSparseOutputName, payload) == nil

	case chunk.IsFill:
		if len(payload) == 0 {
			return sink.AppendToFile(androidSparseOutputName, nil) == nil
		}
		block := bytes.Repeat(payload, (blockSize/len(payload))+1)[:blockSize]
		for i := 0; i < chunk.BlockCount; i++ {
			if err := sink.AppendToFile(androidSparseOutputName, block); err != nil {
				return false
			}
		}
		return true

	case chunk.IsDontCare:
		zeroes := make([]byte, blockSize)
		for i := 0; i < chunk.BlockCount; i++ {
			if err := sink.AppendToFile(androidSparseOutputName, zeroes); err != nil {
				return false
			}
		}
		return true

	case chunk.IsCRC:
		return true

	default:
		return false
	}
}
