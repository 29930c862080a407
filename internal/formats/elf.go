package formats

import (
	"fmt"

	"github.com/standardbeagle/firmwalk/internal/signature"
	"github.com/standardbeagle/firmwalk/internal/structfield"
)

// elfIdentFields is e_ident plus the two reserved padding regions,
// parsed endianness-agnostically (the fields that carry endianness
// meaning are single bytes).
var elfIdentFields = structfield.Fields{
	{Name: "magic", Type: structfield.U32},
	{Name: "class", Type: structfield.U8},
	{Name: "endianness", Type: structfield.U8},
	{Name: "version", Type: structfield.U8},
	{Name: "osabi", Type: structfield.U8},
	{Name: "abiversion", Type: structfield.U8},
	{Name: "padding_1", Type: structfield.U32},
	{Name: "padding_2", Type: structfield.U24},
}

// elfInfoFields immediately follows the ident block and must be parsed
// with the endianness e_ident just reported.
var elfInfoFields = structfield.Fields{
	{Name: "type", Type: structfield.U16},
	{Name: "machine", Type: structfield.U16},
	{Name: "version", Type: structfield.U32},
}

const (
	elfMagic          uint64 = 0x464C457F // "\x7fELF" little-endian as u32
	elfExpectedVersion uint64 = 1
	elfMinSize                = 45
)

var elfClasses = map[uint64]string{1: "32-bit", 2: "64-bit"}
var elfEndianness = map[uint64]structfield.Endianness{1: structfield.LittleEndian, 2: structfield.BigEndian}
var elfEndiannessName = map[uint64]string{1: "little", 2: "big"}
var elfOSABI = map[uint64]string{
	0: "System-V (Unix)", 1: "HP-UX", 2: "NetBSD", 3: "Linux", 4: "GNU Hurd",
	6: "Solaris", 7: "AIX", 8: "IRIX", 9: "FreeBSD", 10: "Tru64",
	11: "Novell Modesto", 12: "OpenBSD", 13: "OpenVMS", 14: "NonStop Kernel",
	15: "AROS", 16: "FenixOS", 17: "Nuxi CloudABI", 18: "OpenVOS",
}
var elfTypes = map[uint64]string{1: "relocatable", 2: "executable", 3: "shared object", 4: "core file"}
var elfMachines = map[uint64]string{
	1: "AT&T WE 32100", 2: "SPARC", 3: "x86", 4: "Motorola 68k", 8: "MIPS",
	20: "PowerPC", 21: "PowerPC 64-bit", 22: "S390", 40: "ARM", 42: "SuperH",
	43: "SPARCv9", 50: "IA-64", 62: "AMD X86-64", 94: "Tensilica Xtensa",
	183: "ARM 64-bit", 243: "RISC-V", 258: "LoongArch",
}

// ELFHeader is the subset of an ELF file header needed to identify and
// describe it — not a full ELF program/section-header parse.
type ELFHeader struct {
	Class      string
	OSABI      string
	Machine    string
	Type       string
	Endianness string
}

// ParseELFHeader validates data's e_ident block and the handful of
// e_type/e_machine/e_version fields immediately following it.
func ParseELFHeader(data []byte) (ELFHeader, error) {
	if len(data) < elfMinSize {
		return ELFHeader{}, fmt.Errorf("formats: elf: short header")
	}

	identSize := structfield.Size(elfIdentFields)
	ident, err := structfield.Parse(data[:identSize], elfIdentFields, structfield.LittleEndian)
	if err != nil {
		return ELFHeader{}, err
	}
	if ident["magic"] != elfMagic {
		return ELFHeader{}, fmt.Errorf("formats: elf: bad magic")
	}
	if ident["padding_1"] != 0 || ident["padding_2"] != 0 {
		return ELFHeader{}, fmt.Errorf("formats: elf: reserved padding not zero")
	}
	if ident["version"] != elfExpectedVersion {
		return ELFHeader{}, fmt.Errorf("formats: elf: unexpected e_ident version")
	}

	class, ok := elfClasses[ident["class"]]
	if !ok {
		return ELFHeader{}, fmt.Errorf("formats: elf: unknown class %d", ident["class"])
	}
	osabi, ok := elfOSABI[ident["osabi"]]
	if !ok {
		return ELFHeader{}, fmt.Errorf("formats: elf: unknown osabi %d", ident["osabi"])
	}
	endian, ok := elfEndianness[ident["endianness"]]
	if !ok {
		return ELFHeader{}, fmt.Errorf("formats: elf: unknown endianness %d", ident["endianness"])
	}

	infoStart := identSize
	infoEnd := infoStart + structfield.Size(elfInfoFields)
	if len(data) < infoEnd {
		return ELFHeader{}, fmt.Errorf("formats: elf: short header")
	}
	info, err := structfield.Parse(data[infoStart:infoEnd], elfInfoFields, endian)
	if err != nil {
		return ELFHeader{}, err
	}
	if info["version"] != elfExpectedVersion {
		return ELFHeader{}, fmt.Errorf("formats: elf: unexpected e_version")
	}
	exeType, ok := elfTypes[info["type"]]
	if !ok {
		return ELFHeader{}, fmt.Errorf("formats: elf: unknown e_type %d", info["type"])
	}
	machine, ok := elfMachines[info["machine"]]
	if !ok {
		return ELFHeader{}, fmt.Errorf("formats: elf: unknown e_machine %d", info["machine"])
	}

	return ELFHeader{
		Class:      class,
		OSABI:      osabi,
		Machine:    machine,
		Type:       exeType,
		Endianness: elfEndiannessName[ident["endianness"]],
	}, nil
}

// ELFSignature is the registry entry for ELF binaries. ELF carries no
// extractor: its payload is the whole remainder of the match (spec.md's
// "decoding file contents beyond validation/sizing" is a stated
// non-goal), so Size is left at 0 for the scan engine's forward-
// inference rule to resolve.
func ELFSignature() signature.Signature {
	return signature.Signature{
		Name:        "elf",
		Description: "ELF binary",
		Magic:       [][]byte{{0x7F, 'E', 'L', 'F'}},
		Validate: func(data []byte, offset int) (signature.SignatureResult, error) {
			header, err := ParseELFHeader(data[offset:])
			if err != nil {
				return signature.SignatureResult{}, err
			}
			return signature.SignatureResult{
				Offset:     offset,
				Confidence: signature.ConfidenceHigh,
				Description: fmt.Sprintf(
					"ELF %s %s-endian %s, %s",
					header.Class, header.Endianness, header.Type, header.Machine,
				),
				ExtractionDeclined: true,
			}, nil
		},
	}
}
