package ustar

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"io"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

// Compression selects the optional stream codec wrapped around a
// sequential archive. The engine only pushes and pulls bytes through it.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionXZ
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionBzip2:
		return "bzip2"
	case CompressionXZ:
		return "xz"
	}
	return "unknown"
}

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// DetectCompression sniffs the codec from the stream's leading bytes.
func DetectCompression(prefix []byte) Compression {
	switch {
	case bytes.HasPrefix(prefix, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(prefix, bzip2Magic):
		return CompressionBzip2
	case bytes.HasPrefix(prefix, xzMagic):
		return CompressionXZ
	}
	return CompressionNone
}

// CompressionForPath guesses the codec from a file name extension.
func CompressionForPath(name string) Compression {
	switch {
	case strings.HasSuffix(name, ".gz") || strings.HasSuffix(name, ".tgz"):
		return CompressionGzip
	case strings.HasSuffix(name, ".bz2") || strings.HasSuffix(name, ".tbz2"):
		return CompressionBzip2
	case strings.HasSuffix(name, ".xz") || strings.HasSuffix(name, ".txz"):
		return CompressionXZ
	}
	return CompressionNone
}

// NewDecompressor wraps r in the named codec's reader.
func NewDecompressor(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGzip:
		return pgzip.NewReader(r)
	case CompressionBzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	}
	return nil, errors.Wrapf(ErrCompression, "unknown compression %d", c)
}

// NewCompressor wraps w in the named codec's writer. The returned writer
// must be closed to flush the codec's trailer before the underlying sink
// is closed. Bzip2 writing has no stdlib encoder and is not supported.
func NewCompressor(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionGzip:
		return pgzip.NewWriter(w), nil
	case CompressionBzip2:
		return nil, errors.Wrap(ErrCompression, "bzip2 writing is not supported")
	case CompressionXZ:
		return xz.NewWriter(w)
	}
	return nil, errors.Wrapf(ErrCompression, "unknown compression %d", c)
}

// OpenStream sniffs the compression of r and returns a sequential Reader
// over the decompressed bytes, plus a closer for the codec.
func OpenStream(r io.Reader) (*Reader, io.Closer, error) {
	br := bufio.NewReader(r)
	prefix, err := br.Peek(len(xzMagic))
	if err != nil && len(prefix) == 0 {
		return nil, nil, errors.Wrap(ErrTruncatedHeader, "empty stream")
	}
	dec, err := NewDecompressor(br, DetectCompression(prefix))
	if err != nil {
		return nil, nil, err
	}
	return NewReader(dec), dec, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
