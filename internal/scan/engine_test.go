package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/firmwalk/internal/signature"
)

func exactValidator(magic []byte, size int, confidence signature.Confidence, declineAt ...int) signature.Validator {
	decline := map[int]bool{}
	for _, o := range declineAt {
		decline[o] = true
	}
	return func(data []byte, offset int) (signature.SignatureResult, error) {
		return signature.SignatureResult{
			Offset:             offset,
			Size:               size,
			Confidence:         confidence,
			ExtractionDeclined: decline[offset],
		}, nil
	}
}

func TestEmptyBufferProducesEmptyMap(t *testing.T) {
	reg := signature.Build(nil, nil, nil)
	m := Run(nil, reg)
	assert.Empty(t, m)
}

func TestTwoOverlappingCandidatesHigherConfidenceWins(t *testing.T) {
	buf := make([]byte, 0x300)
	copy(buf[0x100:], []byte{0xCA, 0xFE})

	sigs := []signature.Signature{
		{
			Name:  "a",
			Magic: [][]byte{{0xCA, 0xFE}},
			Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
				return signature.SignatureResult{Offset: offset, Size: 0x200, Confidence: signature.ConfidenceMedium}, nil
			},
		},
		{
			Name:  "b",
			Magic: [][]byte{{0xCA, 0xFE}},
			Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
				return signature.SignatureResult{Offset: offset, Size: 0x180, Confidence: signature.ConfidenceHigh}, nil
			},
		},
	}

	reg := signature.Build(sigs, nil, nil)
	m := Run(buf, reg)

	require.Len(t, m, 1)
	assert.Equal(t, "b", m[0].Name)
	assert.Equal(t, 0x100, m[0].Offset)
	assert.Equal(t, 0x180, m[0].Size)
}

func TestGzipWholeFileSingleEntry(t *testing.T) {
	buf := append([]byte{0x1f, 0x8b, 0x08}, make([]byte, 50)...)

	sigs := []signature.Signature{
		{
			Name:  "gzip",
			Magic: [][]byte{{0x1f, 0x8b, 0x08}},
			Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
				return signature.SignatureResult{Offset: offset, Size: len(data) - offset, Confidence: signature.ConfidenceHigh}, nil
			},
		},
	}

	reg := signature.Build(sigs, nil, nil)
	m := Run(buf, reg)

	require.Len(t, m, 1)
	assert.Equal(t, 0, m[0].Offset)
	assert.Equal(t, len(buf), m[0].Size)
}

func TestARJCommentHeaderDeclinesExtraction(t *testing.T) {
	buf := make([]byte, 0x46+4)
	copy(buf[0x0D:], []byte{0x60, 0xEA})
	copy(buf[0x46:], []byte{0x60, 0xEA})

	sigs := []signature.Signature{
		{
			Name:     "arj",
			Short:    true,
			MagicOffset: 0x0D,
			Magic:    [][]byte{{0x60, 0xEA}},
			Validate: exactValidator([]byte{0x60, 0xEA}, 0x46-0x0D, signature.ConfidenceHigh),
		},
		{
			Name:        "arj-comment",
			Short:       true,
			MagicOffset: 0x46,
			Magic:       [][]byte{{0x60, 0xEA}},
			Validate:    exactValidator([]byte{0x60, 0xEA}, 0, signature.ConfidenceHigh, 0x46),
		},
	}

	reg := signature.Build(sigs, nil, nil)
	m := Run(buf, reg)

	require.Len(t, m, 2)
	assert.Equal(t, 0x0D, m[0].Offset)
	assert.Equal(t, 0x46, m[1].Offset)
	assert.False(t, m[0].ExtractionDeclined)
	assert.True(t, m[1].ExtractionDeclined)
}

func TestZeroSizeEntryInfersFromNextMediumOrHigher(t *testing.T) {
	buf := make([]byte, 0x100)

	sigs := []signature.Signature{
		{
			Name:  "low",
			Magic: [][]byte{{0xAA}},
			Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
				return signature.SignatureResult{Offset: offset, Size: 0, Confidence: signature.ConfidenceLow}, nil
			},
		},
		{
			Name:  "anchor",
			Magic: [][]byte{{0xBB}},
			Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
				return signature.SignatureResult{Offset: offset, Size: 4, Confidence: signature.ConfidenceMedium}, nil
			},
		},
	}
	buf[0x10] = 0xAA
	buf[0x40] = 0xBB

	reg := signature.Build(sigs, nil, nil)
	m := Run(buf, reg)

	require.Len(t, m, 2)
	assert.Equal(t, 0x10, m[0].Offset)
	assert.Equal(t, 0x40-0x10, m[0].Size)
	assert.Equal(t, 0x40, m[1].Offset)
}

func TestFileMapInvariantsHold(t *testing.T) {
	buf := make([]byte, 0x200)
	buf[0x10] = 0xAA
	buf[0x80] = 0xBB

	sigs := []signature.Signature{
		{
			Name:  "a",
			Magic: [][]byte{{0xAA}},
			Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
				return signature.SignatureResult{Offset: offset, Size: 0x20, Confidence: signature.ConfidenceHigh}, nil
			},
		},
		{
			Name:  "b",
			Magic: [][]byte{{0xBB}},
			Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
				return signature.SignatureResult{Offset: offset, Size: 0x10, Confidence: signature.ConfidenceHigh}, nil
			},
		},
	}

	reg := signature.Build(sigs, nil, nil)
	m := Run(buf, reg)

	for i, e := range m {
		assert.LessOrEqual(t, e.Offset+e.Size, len(buf))
		if i > 0 {
			prev := m[i-1]
			if prev.Size > 0 {
				assert.LessOrEqual(t, prev.Offset+prev.Size, e.Offset)
			}
		}
	}
}

func TestScanIsDeterministicAcrossRuns(t *testing.T) {
	buf := make([]byte, 0x200)
	buf[0x10] = 0xAA
	buf[0x80] = 0xBB

	sigs := []signature.Signature{
		{
			Name:  "a",
			Magic: [][]byte{{0xAA}},
			Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
				return signature.SignatureResult{Offset: offset, Size: 0x20, Confidence: signature.ConfidenceHigh}, nil
			},
		},
		{
			Name:  "b",
			Magic: [][]byte{{0xBB}},
			Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
				return signature.SignatureResult{Offset: offset, Size: 0x10, Confidence: signature.ConfidenceHigh}, nil
			},
		},
	}

	reg := signature.Build(sigs, nil, nil)
	first := Run(buf, reg)
	second := Run(buf, reg)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Offset, second[i].Offset)
		assert.Equal(t, first[i].Size, second[i].Size)
		assert.Equal(t, first[i].Name, second[i].Name)
	}
}
