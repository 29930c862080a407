package builtin

import (
	"compress/gzip"
	"io"
)

// newGzipReader decodes a single gzip member; bytes after its trailer are
// left unread rather than parsed as a further member.
func newGzipReader(r io.Reader) (io.Reader, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	zr.Multistream(false)
	return zr, nil
}
