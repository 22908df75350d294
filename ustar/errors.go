package ustar

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds raised by the codec, the stream reader/writer and the
// random-access archive. Wrapped errors keep these as their cause, so
// callers can test with errors.Is.
var (
	// ErrPathTooLong means a member path cannot be represented as a
	// ustar prefix/name pair.
	ErrPathTooLong = errors.New("path too long for ustar prefix/name fields")

	// ErrHeaderCorrupt means a header block failed checksum validation
	// or a numeric field did not parse.
	ErrHeaderCorrupt = errors.New("corrupt header")

	// ErrTruncatedHeader means the input ended inside a header block.
	ErrTruncatedHeader = errors.New("truncated header")

	// ErrTruncatedContent means the input ended inside member content
	// or its block padding.
	ErrTruncatedContent = errors.New("truncated member content")

	// ErrSizeMismatch means the content source produced a byte count
	// different from the member's declared size.
	ErrSizeMismatch = errors.New("content size does not match member size")

	// ErrMemberNotFound means the requested path is not in the archive
	// index.
	ErrMemberNotFound = errors.New("member not found")

	// ErrCompression means an unknown or unsupported compression was
	// requested.
	ErrCompression = errors.New("compression error")

	// ErrClosed means the archive has already been closed.
	ErrClosed = errors.New("archive is closed")
)

// FilesystemError wraps a failing POSIX call made while building members
// from disk or recreating them during extraction.
type FilesystemError struct {
	Op   string // the failing call, e.g. "lstat", "mknod", "lchown"
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

func fsError(op, path string, err error) error {
	return &FilesystemError{Op: op, Path: path, Err: err}
}
