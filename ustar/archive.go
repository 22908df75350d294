package ustar

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// indexEntry records where a member's content starts in the archive file.
type indexEntry struct {
	member *Member
	offset int64 // first content byte, not the header
}

// Archive is a file-backed ustar archive with an in-memory member index.
// It supports content reads by offset, incremental append and extraction.
// A single session owns the file handle; concurrent access to one archive
// file from multiple sessions is undefined.
type Archive struct {
	name  string
	f     *os.File
	index map[string]*indexEntry
	order []string // insertion/scan order of index keys
	end   int64    // offset where the end-of-archive marker begins

	inodes      map[fileIdentity]string // hard-link detection cache
	dereference bool
	closed      bool
	log         logrus.FieldLogger
}

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger used for debug output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Archive) { a.log = log }
}

// WithDereference makes AddFromFilesystem follow symlinks and archive
// their targets instead of the links themselves.
func WithDereference() Option {
	return func(a *Archive) { a.dereference = true }
}

func newArchive(name string, f *os.File, opts []Option) *Archive {
	a := &Archive{
		name:   name,
		f:      f,
		index:  make(map[string]*indexEntry),
		inodes: make(map[fileIdentity]string),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Open opens an existing archive file and builds the member index with a
// single forward scan. The file handle is released again if the scan
// fails; the partial archive is not usable.
func Open(name string, opts ...Option) (*Archive, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(abs, os.O_RDWR, 0666)
	if err != nil {
		return nil, fsError("open", abs, err)
	}
	a := newArchive(abs, f, opts)

	r := NewReader(f)
	for {
		m, err := r.Next()
		if err == io.EOF {
			a.end = r.HeaderOffset()
			break
		}
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "scanning %s", abs)
		}
		a.insert(m, r.ContentOffset())
	}
	a.log.WithField("archive", abs).Debugf("indexed %d members, entries end at %d", len(a.order), a.end)
	return a, nil
}

// Create creates a new, empty archive file: just the end-of-archive
// marker padded to one record. It fails if the file already exists.
func Create(name string, opts ...Option) (*Archive, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(abs, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return nil, fsError("create", abs, err)
	}
	w := NewWriter(f)
	if err := w.Finish(); err != nil {
		f.Close()
		return nil, err
	}
	return newArchive(abs, f, opts), nil
}

// Close releases the archive's file handle. The marker and record padding
// are maintained by Add, so no further writes are pending.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	var result *multierror.Error
	if err := a.f.Sync(); err != nil {
		result = multierror.Append(result, fsError("sync", a.name, err))
	}
	if err := a.f.Close(); err != nil {
		result = multierror.Append(result, fsError("close", a.name, err))
	}
	return result.ErrorOrNil()
}

// Names returns the indexed member paths in scan/insertion order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.order))
	copy(names, a.order)
	return names
}

// Members returns independent copies of all indexed members in
// scan/insertion order.
func (a *Archive) Members() []*Member {
	members := make([]*Member, 0, len(a.order))
	for _, key := range a.order {
		members = append(members, a.index[key].member.clone())
	}
	return members
}

// Member returns an independent copy of the named member.
func (a *Archive) Member(name string) (*Member, error) {
	e, err := a.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.member.clone(), nil
}

// ReadContent reads the named member's content by its indexed offset. The
// file position is restored afterward so the append cursor is undisturbed.
func (a *Archive) ReadContent(name string) ([]byte, error) {
	if a.closed {
		return nil, ErrClosed
	}
	e, err := a.lookup(name)
	if err != nil {
		return nil, err
	}

	cur, err := a.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fsError("seek", a.name, err)
	}
	defer a.f.Seek(cur, io.SeekStart)

	if _, err := a.f.Seek(e.offset, io.SeekStart); err != nil {
		return nil, fsError("seek", a.name, err)
	}
	buf := make([]byte, e.member.Size)
	if _, err := io.ReadFull(a.f, buf); err != nil {
		return nil, errors.Wrapf(ErrTruncatedContent, "member %q at offset %d", e.member.Path, e.offset)
	}
	return buf, nil
}

// Add appends a member at the end of the entries, rewrites the
// end-of-archive marker behind it and resizes the file to a RECORDSIZE
// multiple, extending or truncating as needed.
func (a *Archive) Add(m *Member, content io.Reader) error {
	if a.closed {
		return ErrClosed
	}
	if _, err := a.f.Seek(a.end, io.SeekStart); err != nil {
		return fsError("seek", a.name, err)
	}

	m = m.clone()
	m.Path = m.normalizedPath() // index keys match the wire form
	w := NewWriter(a.f)
	if err := w.Add(m, content); err != nil {
		return err
	}
	contentOffset := a.end + BLOCKSIZE
	a.end += w.Offset()

	if _, err := a.f.Write(make([]byte, 2*BLOCKSIZE)); err != nil {
		return fsError("write", a.name, err)
	}
	if err := a.f.Truncate(roundUp(a.end+2*BLOCKSIZE, RECORDSIZE)); err != nil {
		return fsError("truncate", a.name, err)
	}

	a.insert(m, contentOffset)
	a.log.WithField("archive", a.name).Debugf("added %s", m)
	return nil
}

// AddFromFilesystem archives the filesystem entry at name, walking
// directories breadth-first when recursive is set. A non-nil filter is
// consulted per member; rejecting a directory skips its subtree. Regular
// files seen twice through the same inode are stored as hard links.
func (a *Archive) AddFromFilesystem(name string, recursive bool, filter func(*Member) bool) error {
	if a.closed {
		return ErrClosed
	}

	type walkItem struct {
		fsPath  string
		arcname string
	}
	queue := []walkItem{{fsPath: name, arcname: arcnameFor(name)}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if abs, err := filepath.Abs(item.fsPath); err == nil && abs == a.name {
			a.log.WithField("archive", a.name).Debugf("skipping the archive itself: %s", item.fsPath)
			continue
		}

		m, id, nlink, err := lstatMember(item.fsPath, item.arcname, a.dereference)
		if err != nil {
			return err
		}
		if m.IsReg() && !a.dereference && nlink > 1 {
			if prev, ok := a.inodes[id]; ok && prev != m.Path {
				m.Type = TypeHardLink
				m.LinkTarget = prev
				m.Size = 0
			} else {
				a.inodes[id] = m.Path
			}
		}
		if filter != nil && !filter(m) {
			a.log.WithField("archive", a.name).Debugf("excluded %s", item.fsPath)
			continue
		}

		if m.IsReg() {
			f, err := os.Open(item.fsPath)
			if err != nil {
				return fsError("open", item.fsPath, err)
			}
			err = a.Add(m, f)
			f.Close()
			if err != nil {
				return err
			}
		} else {
			if err := a.Add(m, nil); err != nil {
				return err
			}
		}

		if m.IsDir() && recursive {
			children, err := os.ReadDir(item.fsPath)
			if err != nil {
				return fsError("readdir", item.fsPath, err)
			}
			for _, child := range children {
				queue = append(queue, walkItem{
					fsPath:  filepath.Join(item.fsPath, child.Name()),
					arcname: strings.TrimSuffix(m.Path, "/") + "/" + child.Name(),
				})
			}
		}
	}
	return nil
}

// Extract recreates the named member under destDir. An existing
// destination path is skipped silently, which makes repeated extraction
// idempotent. Parent directories are created on demand.
func (a *Archive) Extract(name, destDir string) error {
	if a.closed {
		return ErrClosed
	}
	e, err := a.lookup(name)
	if err != nil {
		return err
	}
	m := e.member

	target := filepath.Join(destDir, filepath.FromSlash(strings.TrimSuffix(m.Path, "/")))
	if _, err := os.Lstat(target); err == nil {
		a.log.WithField("archive", a.name).Debugf("skipping existing path %s", target)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fsError("mkdir", filepath.Dir(target), err)
	}

	switch m.Type {
	case TypeDirectory:
		if err := os.Mkdir(target, os.FileMode(m.Mode)); err != nil {
			return fsError("mkdir", target, err)
		}
	case TypeSymlink:
		if err := os.Symlink(m.LinkTarget, target); err != nil {
			return fsError("symlink", target, err)
		}
	case TypeHardLink:
		source := filepath.Join(destDir, filepath.FromSlash(m.LinkTarget))
		if err := os.Link(source, target); err != nil {
			return fsError("link", target, err)
		}
		return nil // shares the inode, metadata is already in place
	case TypeRegular:
		content, err := a.ReadContent(m.Path)
		if err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, os.FileMode(m.Mode))
		if err != nil {
			return fsError("create", target, err)
		}
		if _, err := f.Write(content); err != nil {
			f.Close()
			return fsError("write", target, err)
		}
		if err := f.Close(); err != nil {
			return fsError("close", target, err)
		}
	case TypeCharDevice, TypeBlockDevice, TypeFifo:
		if err := makeNode(target, m); err != nil {
			return err
		}
	}

	return applyMetadata(target, m)
}

// ExtractAll extracts every indexed member in scan/insertion order.
func (a *Archive) ExtractAll(destDir string) error {
	for _, key := range a.order {
		if err := a.Extract(key, destDir); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archive) insert(m *Member, offset int64) {
	key := m.Path
	if _, ok := a.index[key]; !ok {
		a.order = append(a.order, key)
	}
	a.index[key] = &indexEntry{member: m, offset: offset}
}

// lookup resolves a member by path, accepting directory names with or
// without their trailing separator.
func (a *Archive) lookup(name string) (*indexEntry, error) {
	if e, ok := a.index[name]; ok {
		return e, nil
	}
	if e, ok := a.index[strings.TrimSuffix(name, "/")]; ok {
		return e, nil
	}
	if e, ok := a.index[name+"/"]; ok {
		return e, nil
	}
	return nil, errors.Wrapf(ErrMemberNotFound, "%q", name)
}

// arcnameFor derives the archive path for a filesystem path: forward
// slashes, no leading separators or dot segments.
func arcnameFor(path string) string {
	arcname := filepath.ToSlash(filepath.Clean(path))
	arcname = strings.TrimPrefix(arcname, "/")
	for strings.HasPrefix(arcname, "../") {
		arcname = strings.TrimPrefix(arcname, "../")
	}
	return strings.TrimPrefix(arcname, "./")
}

func roundUp(n, to int64) int64 {
	_, rem := divmod(n, to)
	if rem == 0 {
		return n
	}
	return n + to - rem
}
