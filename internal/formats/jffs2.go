package formats

import (
	"fmt"
	"hash/crc32"

	"github.com/standardbeagle/firmwalk/internal/signature"
	"github.com/standardbeagle/firmwalk/internal/structfield"
)

var jffs2NodeFields = structfield.Fields{
	{Name: "magic", Type: structfield.U16},
	{Name: "type", Type: structfield.U16},
	{Name: "size", Type: structfield.U32},
	{Name: "crc", Type: structfield.U32},
}

const jffs2NodeHeaderSize = 12
const jffs2HeaderCRCSize = 8
const jffs2CorrectMagic uint64 = 0x1985

// JFFS2Node is a single parsed JFFS2 node header.
type JFFS2Node struct {
	Size       int
	NodeType   uint16
	Endianness structfield.Endianness
}

// ParseJFFS2NodeHeader decodes and CRC-validates a single JFFS2 node
// header at the front of data, trying little-endian first and falling
// back to big-endian if the magic doesn't match that way round.
func ParseJFFS2NodeHeader(data []byte) (JFFS2Node, error) {
	if len(data) < jffs2NodeHeaderSize {
		return JFFS2Node{}, fmt.Errorf("formats: jffs2: short node header")
	}

	endian := structfield.LittleEndian
	values, err := structfield.Parse(data[:jffs2NodeHeaderSize], jffs2NodeFields, endian)
	if err != nil {
		return JFFS2Node{}, err
	}
	if values["magic"] != jffs2CorrectMagic {
		endian = structfield.BigEndian
		values, err = structfield.Parse(data[:jffs2NodeHeaderSize], jffs2NodeFields, endian)
		if err != nil {
			return JFFS2Node{}, err
		}
	}
	if values["magic"] != jffs2CorrectMagic {
		return JFFS2Node{}, fmt.Errorf("formats: jffs2: bad magic")
	}

	if crc32.ChecksumIEEE(data[:jffs2HeaderCRCSize]) != uint32(values["crc"]) {
		return JFFS2Node{}, fmt.Errorf("formats: jffs2: node header CRC mismatch")
	}

	return JFFS2Node{
		Size:       int(values["size"]),
		NodeType:   uint16(values["type"]),
		Endianness: endian,
	}, nil
}

// JFFS2Signature is the registry entry for a single JFFS2 node header.
// Size reflects only the one matched node; the scan engine's forward
// size inference (or, on extraction, the `jefferson` utility itself)
// is what resolves the full filesystem's extent across the node chain.
func JFFS2Signature() signature.Signature {
	return signature.Signature{
		Name:        "jffs2",
		Description: "JFFS2 filesystem node",
		Magic:       [][]byte{{0x85, 0x19}, {0x19, 0x85}},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			node, err := ParseJFFS2NodeHeader(data[offset:])
			if err != nil {
				return signature.SignatureResult{}, err
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        node.Size,
				Confidence:  signature.ConfidenceMedium,
				Description: fmt.Sprintf("JFFS2 filesystem node, type: 0x%04X, size: %d bytes", node.NodeType, node.Size),
			}, nil
		},
		Extractor: &signature.Extractor{
			Kind:      signature.ExtractorExternal,
			Command:   "jefferson",
			Arguments: []string{"-f", "-d", "jffs2-root", signature.SourceFilePlaceholder},
			ExitCodes: []int{0, 1, 2},
			Extension: "img",
		},
	}
}
