package ustar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// encodeHeader formats a member into a 512-byte ustar header block. The
// checksum is computed last, over the otherwise complete block.
func encodeHeader(m *Member) ([]byte, error) {
	name := m.normalizedPath()
	if len(m.LinkTarget) > LENGTH_LINK {
		return nil, errors.Wrapf(ErrPathTooLong, "link target %q exceeds %d bytes", m.LinkTarget, LENGTH_LINK)
	}
	prefix := ""
	if len(name) > LENGTH_NAME {
		var err error
		prefix, name, err = splitPath(name, m.Type == TypeDirectory)
		if err != nil {
			return nil, err
		}
	}

	buf := make([]byte, BLOCKSIZE)
	copy(buf[posName:], stn(name, LENGTH_NAME))

	numeric := []struct {
		pos    int
		digits int
		val    int64
	}{
		{posMode, 8, m.Mode},
		{posUID, 8, int64(m.UID)},
		{posGID, 8, int64(m.GID)},
		{posSize, 12, m.Size},
		{posMtime, 12, m.ModTime.Unix()},
	}
	for _, f := range numeric {
		b, err := itn(f.val, f.digits)
		if err != nil {
			return nil, err
		}
		copy(buf[f.pos:], b)
	}

	copy(buf[posChksum:], "        ") // blanked for summation
	buf[posTypeflag] = byte(m.Type)
	copy(buf[posLinkname:], stn(m.LinkTarget, LENGTH_LINK))
	copy(buf[posMagic:], POSIX_MAGIC)
	copy(buf[posVersion:], VERSION)
	copy(buf[posUname:], stn(m.Uname, 32))
	copy(buf[posGname:], stn(m.Gname, 32))
	if m.IsDev() {
		major, err := itn(int64(m.DevMajor), 8)
		if err != nil {
			return nil, err
		}
		minor, err := itn(int64(m.DevMinor), 8)
		if err != nil {
			return nil, err
		}
		copy(buf[posDevMajor:], major)
		copy(buf[posDevMinor:], minor)
	}
	copy(buf[posPrefix:], stn(prefix, LENGTH_PREFIX))

	copy(buf[posChksum:], fmt.Sprintf("%06o\x00 ", calcChecksum(buf)))
	return buf, nil
}

// splitPath splits a long path at its last separator into a ustar
// prefix/name pair. For directories the trailing separator is carried by
// the name part.
func splitPath(path string, isDir bool) (prefix, name string, err error) {
	trimmed := strings.TrimSuffix(path, "/")
	i := strings.LastIndex(trimmed, "/")
	if i < 0 {
		return "", "", errors.Wrapf(ErrPathTooLong, "%q has no separator to split at", path)
	}
	prefix, name = trimmed[:i], trimmed[i+1:]
	if isDir {
		name += "/"
	}
	if len(prefix) > LENGTH_PREFIX || len(name) > LENGTH_NAME {
		return "", "", errors.Wrapf(ErrPathTooLong, "%q does not fit prefix/name fields", path)
	}
	return prefix, name, nil
}

// decodeHeader parses a 512-byte header block into a member. The stored
// checksum is cross-validated against a re-sum of the raw bytes with the
// checksum field blanked.
func decodeHeader(buf []byte) (*Member, error) {
	if len(buf) != BLOCKSIZE {
		return nil, errors.Wrapf(ErrTruncatedHeader, "got %d of %d header bytes", len(buf), BLOCKSIZE)
	}

	stored, err := nti(buf[posChksum : posChksum+8])
	if err != nil {
		return nil, err
	}
	if stored != calcChecksum(buf) {
		return nil, errors.Wrapf(ErrHeaderCorrupt, "checksum %o does not match computed %o", stored, calcChecksum(buf))
	}

	m := &Member{}
	m.Path = nts(buf[posName : posName+LENGTH_NAME])

	if m.Mode, err = nti(buf[posMode : posMode+8]); err != nil {
		return nil, err
	}
	uid, err := nti(buf[posUID : posUID+8])
	if err != nil {
		return nil, err
	}
	m.UID = int(uid)
	gid, err := nti(buf[posGID : posGID+8])
	if err != nil {
		return nil, err
	}
	m.GID = int(gid)
	if m.Size, err = nti(buf[posSize : posSize+12]); err != nil {
		return nil, err
	}
	mtime, err := nti(buf[posMtime : posMtime+12])
	if err != nil {
		return nil, err
	}
	m.ModTime = time.Unix(mtime, 0)

	m.Type = EntryType(buf[posTypeflag])
	m.LinkTarget = nts(buf[posLinkname : posLinkname+LENGTH_LINK])
	m.Uname = nts(buf[posUname : posUname+32])
	m.Gname = nts(buf[posGname : posGname+32])
	if m.IsDev() {
		major, err := nti(buf[posDevMajor : posDevMajor+8])
		if err != nil {
			return nil, err
		}
		minor, err := nti(buf[posDevMinor : posDevMinor+8])
		if err != nil {
			return nil, err
		}
		m.DevMajor = int(major)
		m.DevMinor = int(minor)
	}

	// Pre-POSIX archives flag regular files with NUL and mark
	// directories only by a trailing separator.
	if m.Type == typeRegularOld {
		if strings.HasSuffix(m.Path, "/") {
			m.Type = TypeDirectory
		} else {
			m.Type = TypeRegular
		}
	}
	if !m.Type.valid() {
		return nil, errors.Wrapf(ErrHeaderCorrupt, "unsupported type flag %#x", buf[posTypeflag])
	}

	if prefix := nts(buf[posPrefix:endPrefix]); prefix != "" {
		m.Path = prefix + "/" + m.Path
	}
	m.Path = m.normalizedPath()
	return m, nil
}
