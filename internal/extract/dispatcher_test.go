package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/firmwalk/internal/signature"
)

func TestDispatchInternalExtractorSuccess(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "firmware.bin")

	run := func(data []byte, offset int, outputDir string) signature.ExtractionResult {
		if outputDir == "" {
			return signature.ExtractionResult{Success: true, Size: len(data) - offset, SizeKnown: true}
		}
		os.WriteFile(filepath.Join(outputDir, "payload"), data[offset:], 0o644)
		return signature.ExtractionResult{Success: true, Size: len(data) - offset, SizeKnown: true}
	}

	fileMap := signature.FileMap{
		{
			ID:     "id-1",
			Offset: 0,
			Size:   4,
			PreferredExtractor: &signature.Extractor{
				Kind: signature.ExtractorInternal,
				Run:  run,
			},
			Name: "gzip",
		},
	}

	results, err := Dispatch(root, inputPath, []byte{1, 2, 3, 4}, fileMap)
	require.NoError(t, err)
	require.Contains(t, results, "id-1")
	assert.True(t, results["id-1"].Success)
	assert.Equal(t, "gzip_built_in", results["id-1"].Extractor)
}

func TestDispatchSkipsDeclinedEntries(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "firmware.bin")

	fileMap := signature.FileMap{
		{
			ID:                 "id-1",
			Offset:             0,
			ExtractionDeclined: true,
			PreferredExtractor: &signature.Extractor{Kind: signature.ExtractorInternal, Run: func(d []byte, o int, out string) signature.ExtractionResult {
				return signature.ExtractionResult{Success: true}
			}},
		},
	}

	results, err := Dispatch(root, inputPath, []byte{1, 2, 3, 4}, fileMap)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDispatchDemotesSuccessWithoutOutputFiles(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "firmware.bin")

	run := func(data []byte, offset int, outputDir string) signature.ExtractionResult {
		return signature.ExtractionResult{Success: true, Size: len(data) - offset, SizeKnown: true}
	}

	fileMap := signature.FileMap{
		{
			ID:                 "id-1",
			Offset:             0,
			Size:               4,
			Name:               "nothing",
			PreferredExtractor: &signature.Extractor{Kind: signature.ExtractorInternal, Run: run},
		},
	}

	results, err := Dispatch(root, inputPath, []byte{1, 2, 3, 4}, fileMap)
	require.NoError(t, err)
	assert.False(t, results["id-1"].Success)
}

func TestDispatchRetriesInternalOnShortSize(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "firmware.bin")

	calls := 0
	run := func(data []byte, offset int, outputDir string) signature.ExtractionResult {
		calls++
		if calls == 1 {
			return signature.ExtractionResult{Success: false}
		}
		os.WriteFile(filepath.Join(outputDir, "payload"), data[offset:], 0o644)
		return signature.ExtractionResult{Success: true}
	}

	fileMap := signature.FileMap{
		{
			ID:                 "id-1",
			Offset:             0,
			Size:               2, // strictly less than remaining (8)
			Name:               "foo",
			PreferredExtractor: &signature.Extractor{Kind: signature.ExtractorInternal, Run: run},
		},
	}

	results, err := Dispatch(root, inputPath, make([]byte, 8), fileMap)
	require.NoError(t, err)
	assert.True(t, results["id-1"].Success)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 8, results["id-1"].Size)
}
