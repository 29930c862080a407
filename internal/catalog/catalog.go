// Package catalog assembles the final, extractor-wired signature set.
// Signature validators live in internal/formats; internal extractor
// functions live in internal/extract/builtin. Those two packages cannot
// import each other (builtin already depends on formats for its own
// header parsing, e.g. RomFS), so this package sits above both and binds
// a Signature's declared Extractor to its builtin function — the
// "global pattern index map" and "function-pointer polymorphism" design
// notes, made concrete at the one place in the tree where both sides are
// visible at once.
package catalog

import (
	"github.com/standardbeagle/firmwalk/internal/extract/builtin"
	"github.com/standardbeagle/firmwalk/internal/formats"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

func internalExtractor(run signature.InternalFunc) *signature.Extractor {
	return &signature.Extractor{Kind: signature.ExtractorInternal, Run: run}
}

// All returns the complete, extractor-wired signature set for the
// registry.
func All() []signature.Signature {
	sigs := []signature.Signature{
		formats.GzipSignature(),
		formats.ZlibSignature(),
		formats.Bzip2Signature(),
		formats.XZSignature(),
		formats.LZ4Signature(),
		formats.RomFSSignature(),
		formats.TRXSignature(),
		formats.AndroidSparseSignature(),
		formats.PEMSignature(),
		formats.CSManSignature(),
		formats.ELFSignature(),
		formats.PNGSignature(),
		formats.ARJSignature(),
		formats.TarSignature(),
		formats.CPIOSignature(),
		formats.ARSignature(),
		formats.UImageSignature(),
		formats.DTBSignature(),
		formats.SquashFSSignature(),
		formats.CramFSSignature(),
		formats.JFFS2Signature(),
	}

	wire := map[string]*signature.Extractor{
		"gzip":           internalExtractor(builtin.ExtractGzip),
		"zlib":           internalExtractor(builtin.ExtractZlib),
		"bzip2":          internalExtractor(builtin.ExtractBzip2),
		"xz":             internalExtractor(builtin.ExtractXZ),
		"lz4":            internalExtractor(builtin.ExtractLZ4),
		"romfs":          internalExtractor(builtin.ExtractRomFS),
		"trx":            internalExtractor(builtin.ExtractTRX),
		"android-sparse": internalExtractor(builtin.ExtractAndroidSparse),
		"pem":            internalExtractor(builtin.ExtractPEM),
		"csman":          internalExtractor(builtin.ExtractCSMan),
		"arj":            internalExtractor(builtin.ExtractARJ),
		"png":            internalExtractor(builtin.ExtractPNG),
		"ar":             internalExtractor(builtin.ExtractAR),
		"uimage":         internalExtractor(builtin.ExtractUImage),
	}

	for i := range sigs {
		if ex, ok := wire[sigs[i].Name]; ok {
			sigs[i].Extractor = ex
		}
	}

	return sigs
}
