package ustar

import (
	"fmt"
	"strings"
	"time"
)

// EntryType identifies the kind of filesystem object a member describes.
// The values are the on-disk typeflag bytes of the ustar format.
type EntryType byte

const (
	TypeRegular     EntryType = '0'
	TypeHardLink    EntryType = '1'
	TypeSymlink     EntryType = '2'
	TypeCharDevice  EntryType = '3'
	TypeBlockDevice EntryType = '4'
	TypeDirectory   EntryType = '5'
	TypeFifo        EntryType = '6'

	// typeRegularOld is the pre-POSIX typeflag for regular files. It is
	// accepted on decode and never written.
	typeRegularOld EntryType = 0
)

func (t EntryType) valid() bool {
	switch t {
	case TypeRegular, TypeHardLink, TypeSymlink, TypeCharDevice,
		TypeBlockDevice, TypeDirectory, TypeFifo:
		return true
	}
	return false
}

func (t EntryType) String() string {
	switch t {
	case TypeRegular:
		return "regular"
	case TypeHardLink:
		return "hardlink"
	case TypeSymlink:
		return "symlink"
	case TypeCharDevice:
		return "chardev"
	case TypeBlockDevice:
		return "blockdev"
	case TypeDirectory:
		return "directory"
	case TypeFifo:
		return "fifo"
	}
	return fmt.Sprintf("unknown(%#x)", byte(t))
}

// Member is the logical representation of one archived entry. Members
// returned by the reader or the archive are independent copies with no
// back-reference to their source.
type Member struct {
	Path       string    // Archive path; directories carry a trailing "/"
	LinkTarget string    // Target for symlinks and hard links
	Type       EntryType // Kind of filesystem object
	Size       int64     // Content byte count; zero for non-regular members
	Mode       int64     // Permission bits plus setuid/setgid/sticky
	UID        int       // Owner id
	GID        int       // Group id
	Uname      string    // Owner name
	Gname      string    // Group name
	DevMajor   int       // Device major number (char/block devices)
	DevMinor   int       // Device minor number (char/block devices)
	ModTime    time.Time // Modification time, seconds precision on the wire
}

// NewMember creates a regular-file member with conventional defaults.
func NewMember(path string) *Member {
	return &Member{
		Path:    path,
		Type:    TypeRegular,
		Mode:    0644,
		ModTime: time.Unix(0, 0),
	}
}

func (m *Member) String() string {
	return fmt.Sprintf("<Member %q %s %d bytes>", m.Path, m.Type, m.Size)
}

// normalizedPath is the path as stored on the wire: directories carry a
// trailing separator, everything else does not.
func (m *Member) normalizedPath() string {
	p := strings.TrimSuffix(m.Path, "/")
	if m.Type == TypeDirectory {
		p += "/"
	}
	return p
}

// IsReg reports whether the member is a regular file.
func (m *Member) IsReg() bool { return m.Type == TypeRegular }

// IsDir reports whether the member is a directory.
func (m *Member) IsDir() bool { return m.Type == TypeDirectory }

// IsSym reports whether the member is a symbolic link.
func (m *Member) IsSym() bool { return m.Type == TypeSymlink }

// IsLnk reports whether the member is a hard link.
func (m *Member) IsLnk() bool { return m.Type == TypeHardLink }

// IsDev reports whether the member is a character or block device.
func (m *Member) IsDev() bool {
	return m.Type == TypeCharDevice || m.Type == TypeBlockDevice
}

// IsFifo reports whether the member is a FIFO.
func (m *Member) IsFifo() bool { return m.Type == TypeFifo }

// clone returns an independent copy of the member.
func (m *Member) clone() *Member {
	c := *m
	return &c
}
