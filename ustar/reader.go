package ustar

import (
	"io"

	"github.com/pkg/errors"
)

// Reader decodes a byte stream into a forward-only sequence of members.
// The sequence ends at the first block whose leading byte is NUL, the
// end-of-archive marker. Reader is not restartable; errors are sticky.
type Reader struct {
	r         io.Reader
	offset    int64 // bytes consumed from the source
	headerOff int64 // offset of the current member's header block
	remaining int64 // unread content bytes of the current member
	padding   int64 // block padding after the current member
	exhausted bool
	err       error
}

// NewReader creates a Reader decoding from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next advances to the next member, discarding any unread content of the
// current one. It returns io.EOF once the end-of-archive marker is seen.
func (r *Reader) Next() (*Member, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.exhausted {
		return nil, io.EOF
	}
	if err := r.discard(r.remaining + r.padding); err != nil {
		r.err = err
		return nil, err
	}
	r.remaining, r.padding = 0, 0

	r.headerOff = r.offset
	buf := make([]byte, BLOCKSIZE)
	n, err := io.ReadFull(r.r, buf)
	r.offset += int64(n)
	if err != nil {
		r.err = errors.Wrapf(ErrTruncatedHeader, "read %d of %d header bytes at offset %d", n, BLOCKSIZE, r.headerOff)
		return nil, r.err
	}
	if buf[0] == NUL {
		r.exhausted = true
		return nil, io.EOF
	}

	m, err := decodeHeader(buf)
	if err != nil {
		r.err = errors.Wrapf(err, "header at offset %d", r.headerOff)
		return nil, r.err
	}
	if m.Size > 0 {
		r.remaining = m.Size
		_, rem := divmod(m.Size, BLOCKSIZE)
		if rem > 0 {
			r.padding = BLOCKSIZE - rem
		}
	}
	return m, nil
}

// Read reads the current member's content. It returns io.EOF when the
// content is fully consumed; the next call to Next skips any remainder.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.remaining == 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.r.Read(p)
	r.offset += int64(n)
	r.remaining -= int64(n)
	if err == io.EOF && r.remaining > 0 {
		r.err = errors.Wrapf(ErrTruncatedContent, "%d content bytes missing", r.remaining)
		return n, r.err
	}
	return n, err
}

// HeaderOffset is the byte offset of the current member's header block,
// or of the end-of-archive marker once Next has returned io.EOF.
func (r *Reader) HeaderOffset() int64 { return r.headerOff }

// ContentOffset is the byte offset of the current member's first content
// byte.
func (r *Reader) ContentOffset() int64 { return r.headerOff + BLOCKSIZE }

func (r *Reader) discard(n int64) error {
	if n == 0 {
		return nil
	}
	copied, err := io.CopyN(io.Discard, r.r, n)
	r.offset += copied
	if err != nil {
		return errors.Wrapf(ErrTruncatedContent, "discarded %d of %d bytes", copied, n)
	}
	return nil
}
