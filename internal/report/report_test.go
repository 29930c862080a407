package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/firmwalk/internal/recursion"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

func TestAppendJSONProducesValidArrayAcrossWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")

	require.NoError(t, AppendJSON(path, Entry{Path: "a.bin"}))
	require.NoError(t, AppendJSON(path, Entry{Path: "b.bin"}))
	require.NoError(t, AppendJSON(path, Entry{Path: "c.bin"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []Entry
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, "a.bin", decoded[0].Path)
	assert.Equal(t, "b.bin", decoded[1].Path)
	assert.Equal(t, "c.bin", decoded[2].Path)
}

func TestWriteSignatureListSortsByDescriptionCaseInsensitive(t *testing.T) {
	sigs := []signature.Signature{
		{Name: "zeta", Description: "zeta format"},
		{Name: "alpha", Description: "Alpha Format", Extractor: &signature.Extractor{Kind: signature.ExtractorInternal}},
		{Name: "mid", Description: "mid format", Extractor: &signature.Extractor{Kind: signature.ExtractorExternal, Command: "unzip"}},
	}

	var buf bytes.Buffer
	WriteSignatureList(&buf, sigs)

	out := buf.String()
	alphaIdx := strings.Index(out, "Alpha Format")
	midIdx := strings.Index(out, "mid format")
	zetaIdx := strings.Index(out, "zeta format")
	require.True(t, alphaIdx >= 0 && midIdx > alphaIdx && zetaIdx > midIdx, "expected case-insensitive description order, got:\n%s", out)

	assert.Contains(t, out, "Built-in")
	assert.Contains(t, out, "unzip")
	assert.Contains(t, out, "None")
	assert.Contains(t, out, "3 signatures registered")
}

func TestWriteAnalysisRendersStatusGlyphs(t *testing.T) {
	result := recursion.AnalysisResult{
		Path: "firmware.bin",
		FileMap: signature.FileMap{
			{ID: "1", Offset: 0, Description: "gzip compressed data", Size: 1024},
			{ID: "2", Offset: 1024, Description: "declined whole-file match", ExtractionDeclined: true},
			{ID: "3", Offset: 2048, Description: "unextractable format"},
		},
		Extractions: map[string]signature.ExtractionResult{
			"1": {Success: true},
			"3": {Success: false},
		},
	}

	var buf bytes.Buffer
	WriteAnalysis(&buf, result)
	out := buf.String()

	assert.Contains(t, out, "firmware.bin")
	assert.Contains(t, out, GlyphSuccess+" 0x0")
	assert.Contains(t, out, GlyphDecline+" 0x400")
	assert.Contains(t, out, GlyphFailure+" 0x800")
}

func TestWriteAnalysisRendersReadError(t *testing.T) {
	result := recursion.AnalysisResult{Path: "bad.bin", Err: assertError{}}

	var buf bytes.Buffer
	WriteAnalysis(&buf, result)
	assert.Contains(t, buf.String(), "bad.bin")
	assert.Contains(t, buf.String(), "boom")
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
