package ustar

import (
	"io"

	"github.com/pkg/errors"
)

// Writer encodes members onto an output byte sink. It is forward-only:
// emitted bytes are never revisited. Finish must be called to emit the
// end-of-archive marker and the record padding.
type Writer struct {
	w        io.Writer
	offset   int64
	finished bool
	err      error
}

// NewWriter creates a Writer appending to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Offset is the number of bytes emitted so far.
func (w *Writer) Offset() int64 { return w.offset }

// AddHeaderOnly appends the header of a zero-content member, such as a
// directory, symlink or device node.
func (w *Writer) AddHeaderOnly(m *Member) error {
	return w.Add(m, nil)
}

// Add appends a member: header, content, then zero padding up to the next
// block boundary. The content source must yield exactly m.Size bytes.
func (w *Writer) Add(m *Member, content io.Reader) error {
	if w.err != nil {
		return w.err
	}
	if w.finished {
		return errors.New("writer is finished")
	}
	if content == nil && m.Size != 0 {
		return errors.Wrapf(ErrSizeMismatch, "no content source for %d-byte member %q", m.Size, m.Path)
	}

	buf, err := encodeHeader(m)
	if err != nil {
		return err
	}
	if err := w.write(buf); err != nil {
		return err
	}
	if content == nil {
		return nil
	}

	n, err := io.Copy(w.w, content)
	w.offset += n
	if err != nil {
		w.err = err
		return err
	}
	if n != m.Size {
		w.err = errors.Wrapf(ErrSizeMismatch, "member %q declared %d bytes, content source yielded %d", m.Path, m.Size, n)
		return w.err
	}
	_, rem := divmod(n, BLOCKSIZE)
	if rem > 0 {
		if err := w.write(make([]byte, BLOCKSIZE-rem)); err != nil {
			return err
		}
	}
	return nil
}

// Finish emits the two-block end-of-archive marker and pads the output so
// the total byte count is a multiple of RECORDSIZE. It is idempotent.
func (w *Writer) Finish() error {
	if w.err != nil {
		return w.err
	}
	if w.finished {
		return nil
	}
	if err := w.write(make([]byte, 2*BLOCKSIZE)); err != nil {
		return err
	}
	_, rem := divmod(w.offset, RECORDSIZE)
	if rem > 0 {
		if err := w.write(make([]byte, RECORDSIZE-rem)); err != nil {
			return err
		}
	}
	w.finished = true
	return nil
}

func (w *Writer) write(p []byte) error {
	n, err := w.w.Write(p)
	w.offset += int64(n)
	if err != nil {
		w.err = err
	}
	return err
}
