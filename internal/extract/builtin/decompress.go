package builtin

import (
	"bytes"
	"compress/bzip2"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"

	"github.com/standardbeagle/firmwalk/internal/chroot"
	"github.com/standardbeagle/firmwalk/internal/signature"
)

// streamDecoder is satisfied by every compression format's reader
// constructor: wrap a byte source, hand back an io.Reader of decoded
// bytes. The compressed-stream extractors (gzip, zlib, bzip2, xz, lzma,
// lz4) share the same "drive a streaming decoder, write the decoded
// output, report input bytes consumed" shape from
// original_source/src/extractors/common.rs; only the decoder
// constructor differs between them.
type streamDecoder func(r io.Reader) (io.Reader, error)

// decodeStream drives decoder over data[offset:] and, when outputDir is
// non-empty, writes its output to outputName under outputDir. The decoded
// output is collected in memory and written in one piece once the
// decoder stops; it is not copied to the file block by block. It reports
// success, and the number of *input* bytes consumed — not the
// decompressed size — matching the extractor contract in the spec.
func decodeStream(data []byte, offset int, outputDir, outputName string, decoder streamDecoder) signature.ExtractionResult {
	counting := &countingReader{r: bytes.NewReader(data[offset:])}

	decoded, err := decoder(counting)
	if err != nil {
		return signature.ExtractionResult{}
	}

	var written int64
	var writeErr error
	if outputDir == "" {
		written, writeErr = io.Copy(io.Discard, decoded)
	} else {
		sink, err := chroot.New(outputDir)
		if err != nil {
			return signature.ExtractionResult{}
		}
		var buf bytes.Buffer
		written, writeErr = io.Copy(&buf, decoded)
		if written > 0 {
			if err := sink.CreateFile(outputName, buf.Bytes()); err != nil {
				return signature.ExtractionResult{}
			}
		}
	}

	// A decompressor that produced at least one byte of output, even if
	// it later hit a truncated-stream error, is still a successful
	// carve: binwalk treats "some decoded output" as success and reports
	// only the input bytes actually consumed.
	success := written > 0 || writeErr == nil

	return signature.ExtractionResult{
		Success:   success,
		Size:      counting.n,
		SizeKnown: true,
	}
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// ReadByte lets decoders that accept an io.ByteReader read from c
// directly instead of through a read-ahead buffer, so n counts only the
// bytes the decoder consumed.
func (c *countingReader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(c, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ExtractGzip implements signature.InternalFunc for gzip streams.
func ExtractGzip(data []byte, offset int, outputDir string) signature.ExtractionResult {
	return decodeStream(data, offset, outputDir, "decompressed.bin", func(r io.Reader) (io.Reader, error) {
		return newResettableGzipReader(r)
	})
}

// ExtractZlib implements signature.InternalFunc for raw zlib streams.
func ExtractZlib(data []byte, offset int, outputDir string) signature.ExtractionResult {
	return decodeStream(data, offset, outputDir, "decompressed.bin", func(r io.Reader) (io.Reader, error) {
		return zlib.NewReader(r)
	})
}

// ExtractBzip2 implements signature.InternalFunc for bzip2 streams. Uses
// the standard library's decode-only bzip2 reader: bzip2 never appears
// in the teacher's or pack's dependency graphs as a library concern, and
// the standard decoder is complete for this module's read-only use (see
// DESIGN.md).
func ExtractBzip2(data []byte, offset int, outputDir string) signature.ExtractionResult {
	return decodeStream(data, offset, outputDir, "decompressed.bin", func(r io.Reader) (io.Reader, error) {
		return bzip2.NewReader(r), nil
	})
}

// ExtractXZ implements signature.InternalFunc for xz/LZMA2 streams.
func ExtractXZ(data []byte, offset int, outputDir string) signature.ExtractionResult {
	return decodeStream(data, offset, outputDir, "decompressed.bin", func(r io.Reader) (io.Reader, error) {
		return xz.NewReader(r)
	})
}

// ExtractLZMA implements signature.InternalFunc for legacy (non-xz)
// LZMA1 streams. Only reachable as a nested extractor chained from
// some other format's extractor (no signature registers it directly;
// see DESIGN.md).
func ExtractLZMA(data []byte, offset int, outputDir string) signature.ExtractionResult {
	return decodeStream(data, offset, outputDir, "decompressed.bin", func(r io.Reader) (io.Reader, error) {
		return lzma.NewReader(r)
	})
}

// ExtractLZ4 implements signature.InternalFunc for LZ4 frames.
func ExtractLZ4(data []byte, offset int, outputDir string) signature.ExtractionResult {
	return decodeStream(data, offset, outputDir, "decompressed.bin", func(r io.Reader) (io.Reader, error) {
		return lz4.NewReader(r), nil
	})
}

// newResettableGzipReader exists only to keep the gzip import isolated
// in gzip.go (it imports compress/gzip directly so this file's import
// list stays focused on the non-stdlib decoders).
func newResettableGzipReader(r io.Reader) (io.Reader, error) {
	return newGzipReader(r)
}
