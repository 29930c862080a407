package formats

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/signature"
	"github.com/standardbeagle/firmwalk/internal/structfield"
)

var trxHeaderFields = structfield.Fields{
	{Name: "magic", Type: structfield.U32},
	{Name: "total_size", Type: structfield.U32},
	{Name: "crc32", Type: structfield.U32},
	{Name: "flags", Type: structfield.U16},
	{Name: "version", Type: structfield.U16},
	{Name: "boot_partition_offset", Type: structfield.U32},
	{Name: "kernel_partition_offset", Type: structfield.U32},
	{Name: "rootfs_partition_offset", Type: structfield.U32},
}

const trxMagic uint64 = 0x30524448 // "HDR0" little-endian as u32

// TRXHeader is the parsed TRX firmware partition table.
type TRXHeader struct {
	TotalSize      int
	HeaderSize     int
	Version        int
	CRC32          uint32
	BootPartition  int
	KernelPartition int
	RootFSPartition int
}

// ParseTRXHeader validates and decodes a TRX header at the front of data.
func ParseTRXHeader(data []byte) (TRXHeader, error) {
	structSize := structfield.Size(trxHeaderFields)
	if len(data) <= structSize {
		return TRXHeader{}, fmt.Errorf("formats: trx: short header")
	}

	values, err := structfield.Parse(data[:structSize], trxHeaderFields, structfield.LittleEndian)
	if err != nil {
		return TRXHeader{}, err
	}
	if values["magic"] != trxMagic {
		return TRXHeader{}, fmt.Errorf("formats: trx: bad magic")
	}

	totalSize := int(values["total_size"])
	boot := int(values["boot_partition_offset"])
	kernel := int(values["kernel_partition_offset"])
	rootfs := int(values["rootfs_partition_offset"])

	if boot > totalSize || kernel > totalSize || rootfs > totalSize {
		return TRXHeader{}, fmt.Errorf("formats: trx: partition offset exceeds total size")
	}
	if totalSize <= structSize {
		return TRXHeader{}, fmt.Errorf("formats: trx: implausible total size")
	}

	return TRXHeader{
		TotalSize:       totalSize,
		HeaderSize:      structSize,
		Version:         int(values["version"]),
		CRC32:           uint32(values["crc32"]),
		BootPartition:   boot,
		KernelPartition: kernel,
		RootFSPartition: rootfs,
	}, nil
}

// TRXSignature is the registry entry for TRX firmware images (used by
// Broadcom-based routers to bundle a boot loader, kernel, and root
// filesystem in one flashable blob).
func TRXSignature() signature.Signature {
	magic := []byte{'H', 'D', 'R', '0'}
	return signature.Signature{
		Name:        "trx",
		Description: "TRX firmware image",
		Magic:       [][]byte{magic},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			header, err := ParseTRXHeader(data[offset:])
			if err != nil {
				return signature.SignatureResult{}, err
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        header.TotalSize,
				Confidence:  signature.ConfidenceHigh,
				Description: fmt.Sprintf("TRX firmware image, version %d, total size: %d bytes", header.Version, header.TotalSize),
			}, nil
		},
	}
}
