package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureSignatures() []Signature {
	return []Signature{
		{Name: "gzip", Magic: [][]byte{{0x1f, 0x8b, 0x08}}},
		{Name: "zlib", Magic: [][]byte{{0x78, 0x9c}, {0x78, 0x01}}},
		{Name: "arj", Short: true},
		{Name: "trx", Magic: [][]byte{{'H', 'D', 'R', '0'}}},
	}
}

func TestBuildPartitionsShortAndSwept(t *testing.T) {
	r := Build(fixtureSignatures(), nil, nil)
	assert.Equal(t, 4, r.Count)
	require.Len(t, r.Short, 1)
	assert.Equal(t, "arj", r.Short[0].Name)
	require.Len(t, r.Swept, 3)

	// gzip(1) + zlib(2) + trx(1) magic patterns.
	assert.Len(t, r.Patterns, 4)
}

func TestBuildIncludeWinsOverExclude(t *testing.T) {
	r := Build(fixtureSignatures(), []string{"GZIP"}, []string{"gzip"})
	assert.Equal(t, 1, r.Count)
	require.Len(t, r.Swept, 1)
	assert.Equal(t, "gzip", r.Swept[0].Name)
}

func TestBuildExcludeFiltersOut(t *testing.T) {
	r := Build(fixtureSignatures(), nil, []string{"zlib", "Arj"})
	assert.Equal(t, 2, r.Count)
	for _, s := range r.Swept {
		assert.NotEqual(t, "zlib", s.Name)
	}
	assert.Empty(t, r.Short)
}

// TestSignatureForPatternSurvivesGrowth guards the historical bug where a
// pointer taken into Swept right after an append could dangle once a
// later iteration grew the backing array past its original capacity.
func TestSignatureForPatternSurvivesGrowth(t *testing.T) {
	all := make([]Signature, 0, 64)
	for i := 0; i < 64; i++ {
		all = append(all, Signature{
			Name:  string(rune('a' + i)),
			Magic: [][]byte{{byte(i)}},
		})
	}

	r := Build(all, nil, nil)
	require.Len(t, r.Patterns, 64)

	for i, want := range all {
		got := r.SignatureForPattern(i)
		require.NotNil(t, got)
		assert.Equal(t, want.Name, got.Name)
	}
}

func TestSignatureForPatternOutOfRange(t *testing.T) {
	r := Build(fixtureSignatures(), nil, nil)
	assert.Nil(t, r.SignatureForPattern(-1))
	assert.Nil(t, r.SignatureForPattern(len(r.Patterns)))
}
