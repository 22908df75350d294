package ustar

import (
	"os"
	"os/user"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// fileIdentity keys the inode cache used for hard-link detection.
type fileIdentity struct {
	dev uint64
	ino uint64
}

// lstatMember builds a member from filesystem metadata. With dereference
// set, symlinks are followed and archived as what they point at. The
// returned identity and link count let the caller detect hard links.
func lstatMember(path, arcname string, dereference bool) (*Member, fileIdentity, uint64, error) {
	var st unix.Stat_t
	var err error
	if dereference {
		err = unix.Stat(path, &st)
	} else {
		err = unix.Lstat(path, &st)
	}
	if err != nil {
		return nil, fileIdentity{}, 0, fsError("lstat", path, err)
	}

	m := &Member{
		Path:    arcname,
		Mode:    int64(st.Mode & 07777),
		UID:     int(st.Uid),
		GID:     int(st.Gid),
		ModTime: time.Unix(st.Mtim.Unix()),
	}

	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		m.Type = TypeRegular
		m.Size = st.Size
	case unix.S_IFDIR:
		m.Type = TypeDirectory
	case unix.S_IFLNK:
		m.Type = TypeSymlink
		target, err := os.Readlink(path)
		if err != nil {
			return nil, fileIdentity{}, 0, fsError("readlink", path, err)
		}
		m.LinkTarget = target
	case unix.S_IFCHR:
		m.Type = TypeCharDevice
	case unix.S_IFBLK:
		m.Type = TypeBlockDevice
	case unix.S_IFIFO:
		m.Type = TypeFifo
	default:
		return nil, fileIdentity{}, 0, fsError("lstat", path, unsupportedTypeError(st.Mode))
	}

	if m.IsDev() {
		rdev := uint64(st.Rdev)
		m.DevMajor = int(unix.Major(rdev))
		m.DevMinor = int(unix.Minor(rdev))
	}

	// Best effort; numeric ids are authoritative.
	if u, err := user.LookupId(strconv.Itoa(m.UID)); err == nil {
		m.Uname = u.Username
	}
	if g, err := user.LookupGroupId(strconv.Itoa(m.GID)); err == nil {
		m.Gname = g.Name
	}

	return m, fileIdentity{dev: uint64(st.Dev), ino: st.Ino}, uint64(st.Nlink), nil
}

func unsupportedTypeError(mode uint32) error {
	return errors.Errorf("unsupported file type %#o", mode&unix.S_IFMT)
}

// makeNode recreates a fifo or device node with mknod(2).
func makeNode(path string, m *Member) error {
	mode := uint32(m.Mode)
	var dev uint64
	switch m.Type {
	case TypeCharDevice:
		mode |= unix.S_IFCHR
		dev = unix.Mkdev(uint32(m.DevMajor), uint32(m.DevMinor))
	case TypeBlockDevice:
		mode |= unix.S_IFBLK
		dev = unix.Mkdev(uint32(m.DevMajor), uint32(m.DevMinor))
	case TypeFifo:
		mode |= unix.S_IFIFO
	}
	if err := unix.Mknod(path, mode, int(dev)); err != nil {
		return fsError("mknod", path, err)
	}
	return nil
}

// applyMetadata restores ownership, permission bits and timestamps after a
// node has been created, in that order: lchown first since it clears
// setuid/setgid, then chmod, then times.
func applyMetadata(path string, m *Member) error {
	if err := unix.Lchown(path, m.UID, m.GID); err != nil {
		return fsError("lchown", path, err)
	}
	if m.Type != TypeSymlink {
		if err := unix.Chmod(path, uint32(m.Mode)); err != nil {
			return fsError("chmod", path, err)
		}
	}
	ts := unix.NsecToTimespec(m.ModTime.UnixNano())
	times := []unix.Timespec{ts, ts} // atime, mtime
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, times, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return fsError("utimes", path, err)
	}
	return nil
}
