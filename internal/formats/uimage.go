package formats

import (
	"fmt"
	"hash/crc32"

	"github.com/standardbeagle/firmwalk/internal/signature"
	"github.com/standardbeagle/firmwalk/internal/structfield"
)

var uimageHeaderFields = structfield.Fields{
	{Name: "magic", Type: structfield.U32},
	{Name: "header_crc", Type: structfield.U32},
	{Name: "creation_timestamp", Type: structfield.U32},
	{Name: "data_size", Type: structfield.U32},
	{Name: "load_address", Type: structfield.U32},
	{Name: "entry_point_address", Type: structfield.U32},
	{Name: "data_crc", Type: structfield.U32},
	{Name: "os_type", Type: structfield.U8},
	{Name: "cpu_type", Type: structfield.U8},
	{Name: "image_type", Type: structfield.U8},
	{Name: "compression_type", Type: structfield.U8},
}

const uimageHeaderSize = 64
const uimageNameOffset = 32
const uimageMagic uint64 = 0x27051956

var uimageOSTypes = map[uint64]string{
	1: "OpenBSD", 2: "NetBSD", 3: "FreeBSD", 4: "4.4BSD", 5: "Linux",
	6: "SVR4", 7: "Esix", 8: "Solaris", 9: "Irix", 10: "SCO", 11: "Dell",
	12: "NCR", 13: "LynxOS", 14: "VxWorks", 15: "pSOS", 16: "QNX",
	17: "Firmware", 18: "RTEMS", 19: "ARTOS", 20: "Unity OS",
	21: "INTEGRITY", 22: "OSE", 23: "Plan 9", 24: "OpenRTOS",
	25: "ARM Trusted Firmware", 26: "Trusted Execution Environment",
	27: "OpenSBI", 28: "EFI Firmware", 29: "ELF Image",
}

var uimageCPUTypes = map[uint64]string{
	1: "Alpha", 2: "ARM", 3: "Intel x86", 4: "IA64", 5: "MIPS32",
	6: "MIPS64", 7: "PowerPC", 8: "IBM S390", 10: "SuperH", 11: "Sparc",
	12: "Sparc64", 13: "M68K", 14: "Nios-32", 15: "MicroBlaze",
	16: "Nios-II", 17: "Blackfin", 18: "AVR32", 19: "ST200",
	20: "Sandbox", 21: "NDS32", 22: "OpenRISC", 23: "ARM64", 24: "ARC",
	25: "x86-64", 26: "Xtensa", 27: "RISC-V",
}

var uimageCompressionTypes = map[uint64]string{
	0: "none", 1: "gzip", 2: "bzip2", 3: "lzma", 4: "lzo", 5: "lz4", 6: "zstd",
}

var uimageImageTypes = map[uint64]string{
	1: "Standalone Program", 2: "OS Kernel Image", 3: "RAMDisk Image",
	4: "Multi-File Image", 5: "Firmware Image", 6: "Script file",
	7: "Filesystem Image", 8: "Binary Flat Device Tree Blob",
	9: "Kirkwood Boot Image", 10: "Freescale IMXBoot Image",
}

// UImageHeader is the parsed U-Boot legacy image header.
type UImageHeader struct {
	HeaderSize       int
	Name             string
	DataSize         int
	DataCRC          uint32
	Timestamp        int
	CompressionType  string
	CPUType          string
	OSType           string
	ImageType        string
}

func uimageHeaderChecksum(header []byte) uint32 {
	zeroed := append([]byte(nil), header...)
	for i := 4; i < 8; i++ {
		zeroed[i] = 0
	}
	return crc32.ChecksumIEEE(zeroed)
}

// ParseUImageHeader validates and decodes a U-Boot legacy "uImage"
// header at the front of data, including its header checksum.
func ParseUImageHeader(data []byte) (UImageHeader, error) {
	if len(data) < uimageHeaderSize {
		return UImageHeader{}, fmt.Errorf("formats: uimage: short header")
	}

	values, err := structfield.Parse(data[:uimageHeaderSize], uimageHeaderFields, structfield.BigEndian)
	if err != nil {
		return UImageHeader{}, err
	}
	if values["magic"] != uimageMagic {
		return UImageHeader{}, fmt.Errorf("formats: uimage: bad magic")
	}

	osType, ok := uimageOSTypes[values["os_type"]]
	if !ok {
		return UImageHeader{}, fmt.Errorf("formats: uimage: unknown OS type %d", values["os_type"])
	}
	cpuType, ok := uimageCPUTypes[values["cpu_type"]]
	if !ok {
		return UImageHeader{}, fmt.Errorf("formats: uimage: unknown CPU type %d", values["cpu_type"])
	}
	imageType, ok := uimageImageTypes[values["image_type"]]
	if !ok {
		return UImageHeader{}, fmt.Errorf("formats: uimage: unknown image type %d", values["image_type"])
	}
	compressionType, ok := uimageCompressionTypes[values["compression_type"]]
	if !ok {
		return UImageHeader{}, fmt.Errorf("formats: uimage: unknown compression type %d", values["compression_type"])
	}

	if uimageHeaderChecksum(data[:uimageHeaderSize]) != uint32(values["header_crc"]) {
		return UImageHeader{}, fmt.Errorf("formats: uimage: header checksum mismatch")
	}

	return UImageHeader{
		HeaderSize:      uimageHeaderSize,
		Name:            string(structfield.CString(data[uimageNameOffset:])),
		DataSize:        int(values["data_size"]),
		DataCRC:         uint32(values["data_crc"]),
		Timestamp:       int(values["creation_timestamp"]),
		CompressionType: compressionType,
		CPUType:         cpuType,
		OSType:          osType,
		ImageType:       imageType,
	}, nil
}

// UImageSignature is the registry entry for U-Boot legacy images.
func UImageSignature() signature.Signature {
	return signature.Signature{
		Name:        "uimage",
		Description: "U-Boot image",
		Magic:       [][]byte{{0x27, 0x05, 0x19, 0x56}},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			header, err := ParseUImageHeader(data[offset:])
			if err != nil {
				return signature.SignatureResult{}, err
			}
			return signature.SignatureResult{
				Offset:      offset,
				Size:        header.HeaderSize + header.DataSize,
				Confidence:  signature.ConfidenceHigh,
				Description: fmt.Sprintf("U-Boot image, name: %q, os: %s, cpu: %s, type: %s, compression: %s", header.Name, header.OSType, header.CPUType, header.ImageType, header.CompressionType),
			}, nil
		},
	}
}
