package formats

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/signature"
	"github.com/standardbeagle/firmwalk/internal/structfield"
)

var dtbHeaderFields = structfield.Fields{
	{Name: "magic", Type: structfield.U32},
	{Name: "total_size", Type: structfield.U32},
	{Name: "dt_struct_offset", Type: structfield.U32},
	{Name: "dt_strings_offset", Type: structfield.U32},
	{Name: "mem_reservation_block_offset", Type: structfield.U32},
	{Name: "version", Type: structfield.U32},
	{Name: "min_compatible_version", Type: structfield.U32},
	{Name: "cpu_id", Type: structfield.U32},
	{Name: "dt_strings_size", Type: structfield.U32},
	{Name: "dt_struct_size", Type: structfield.U32},
}

const dtbMagic uint64 = 0xD00DFEED
const dtbExpectedVersion uint64 = 17
const dtbExpectedCompatVersion uint64 = 16
const dtbStructAlignment uint64 = 4
const dtbMemReservationAlignment uint64 = 8

// DTBHeader is the parsed flattened-device-tree header.
type DTBHeader struct {
	TotalSize     int
	Version       int
	CPUID         int
	StructOffset  int
	StringsOffset int
	StructSize    int
	StringsSize   int
}

// ParseDTBHeader validates and decodes a flattened device tree blob
// header at the front of data.
func ParseDTBHeader(data []byte) (DTBHeader, error) {
	structSize := structfield.Size(dtbHeaderFields)
	if len(data) < structSize {
		return DTBHeader{}, fmt.Errorf("formats: dtb: short header")
	}

	values, err := structfield.Parse(data[:structSize], dtbHeaderFields, structfield.BigEndian)
	if err != nil {
		return DTBHeader{}, err
	}
	if values["magic"] != dtbMagic {
		return DTBHeader{}, fmt.Errorf("formats: dtb: bad magic")
	}
	if values["version"] != dtbExpectedVersion || values["min_compatible_version"] != dtbExpectedCompatVersion {
		return DTBHeader{}, fmt.Errorf("formats: dtb: unexpected version")
	}
	if values["dt_struct_offset"]&dtbStructAlignment != 0 {
		return DTBHeader{}, fmt.Errorf("formats: dtb: misaligned struct offset")
	}
	if values["mem_reservation_block_offset"]%dtbMemReservationAlignment != 0 {
		return DTBHeader{}, fmt.Errorf("formats: dtb: misaligned memory reservation block offset")
	}
	if values["dt_struct_offset"] < uint64(structSize) ||
		values["dt_strings_offset"] < uint64(structSize) ||
		values["mem_reservation_block_offset"] < uint64(structSize) {
		return DTBHeader{}, fmt.Errorf("formats: dtb: offset precedes header")
	}

	return DTBHeader{
		TotalSize:     int(values["total_size"]),
		Version:       int(values["version"]),
		CPUID:         int(values["cpu_id"]),
		StructOffset:  int(values["dt_struct_offset"]),
		StringsOffset: int(values["dt_strings_offset"]),
		StructSize:    int(values["dt_struct_size"]),
		StringsSize:   int(values["dt_strings_size"]),
	}, nil
}

// DTBSignature is the registry entry for flattened device tree blobs.
// Extraction is delegated to the system `dtc` device tree compiler,
// which decompiles the blob back to readable `.dts` source.
func DTBSignature() signature.Signature {
	return signature.Signature{
		Name:        "dtb",
		Description: "Device tree blob",
		Magic:       [][]byte{{0xD0, 0x0D, 0xFE, 0xED}},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			header, err := ParseDTBHeader(data[offset:])
			if err != nil {
				return signature.SignatureResult{}, err
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        header.TotalSize,
				Confidence:  signature.ConfidenceHigh,
				Description: fmt.Sprintf("Device tree blob, version: %d, CPU ID: %d, total size: %d bytes", header.Version, header.CPUID, header.TotalSize),
			}, nil
		},
		Extractor: &signature.Extractor{
			Kind:      signature.ExtractorExternal,
			Command:   "dtc",
			Arguments: []string{"-I", "dtb", "-O", "dts", "-o", "system.dts", signature.SourceFilePlaceholder},
			ExitCodes: []int{0},
			Extension: "dtb",
		},
	}
}
