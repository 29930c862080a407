package structfield

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseLittleEndian mirrors structures::common's own doctest fixture.
func TestParseLittleEndian(t *testing.T) {
	fields := Fields{
		{Name: "magic", Type: U32},
		{Name: "size", Type: U64},
		{Name: "flags", Type: U8},
		{Name: "packed_bytes", Type: U24},
		{Name: "checksum", Type: U16},
	}

	data := []byte{
		'A', 'A', 'A', 'A',
		0x01, 0, 0, 0, 0, 0, 0, 0,
		0x08,
		0x0A, 0x0B, 0x0C,
		0x01, 0x02,
	}

	values, err := Parse(data, fields, LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x41414141), values["magic"])
	assert.Equal(t, uint64(0x0201), values["checksum"])
	assert.Equal(t, uint64(1), values["size"])
}

func TestParseShortInputIsStructural(t *testing.T) {
	fields := Fields{{Name: "magic", Type: U64}}
	_, err := Parse([]byte{1, 2, 3}, fields, BigEndian)
	assert.Error(t, err)
}

func TestSizeMatchesConsumedBytes(t *testing.T) {
	fields := Fields{{Name: "a", Type: U16}, {Name: "b", Type: U24}, {Name: "c", Type: U8}}
	assert.Equal(t, 6, Size(fields))
}

func TestEncodeReversesParse(t *testing.T) {
	fields := Fields{
		{Name: "a", Type: U16},
		{Name: "b", Type: U24},
		{Name: "c", Type: U64},
	}
	for _, endian := range []Endianness{BigEndian, LittleEndian} {
		data := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
		values, err := Parse(data, fields, endian)
		require.NoError(t, err)
		assert.Equal(t, data, Encode(values, fields, endian))
	}
}

func TestCString(t *testing.T) {
	assert.Equal(t, []byte("hello"), CString([]byte("hello\x00world")))
	assert.Equal(t, []byte("noterm"), CString([]byte("noterm")))
}
