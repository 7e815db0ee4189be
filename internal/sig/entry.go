package sig

import (
	"io"
	"path"

	"github.com/meisterluk/dirsig/internal/hashalgo"
)

// Kind distinguishes the two buckets EntryKind ordering operates over.
// Symlinks share the File bucket with regular files: spec.md §3's ordering
// rules only ever mention Dir and File.
type Kind int

const (
	KindDir Kind = iota
	KindFile
)

// EntryKind is the (kind-tag, path) sort key used by Parser.Advance and by
// the merge engine (spec.md §3, "Ordering of EntryKind").
type EntryKind struct {
	Kind Kind
	Path string
}

// Compare implements the EntryKind ordering from spec.md §3:
//
//	Dir(a)  vs Dir(b)  -> byte-wise compare a, b
//	File(a) vs File(b) -> compare parent(a), parent(b); tie-break on basename
//	Dir(a)  vs File(b) -> Dir(a) < File(b) iff a <= parent(b)
//
// Compare returns a negative number, zero, or a positive number as a is
// less than, equal to, or greater than b.
func (a EntryKind) Compare(b EntryKind) int {
	if a.Kind == KindDir && b.Kind == KindDir {
		return compareBytes(a.Path, b.Path)
	}
	if a.Kind == KindFile && b.Kind == KindFile {
		if c := compareBytes(path.Dir(a.Path), path.Dir(b.Path)); c != 0 {
			return c
		}
		return compareBytes(path.Base(a.Path), path.Base(b.Path))
	}
	if a.Kind == KindDir && b.Kind == KindFile {
		if compareBytes(a.Path, path.Dir(b.Path)) <= 0 {
			return -1
		}
		return 1
	}
	// a.Kind == KindFile && b.Kind == KindDir: mirror the Dir-vs-File case.
	return -b.Compare(a)
}

func compareBytes(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Entry is one parsed row: a directory, a file, or a symlink.
type Entry interface {
	Kind() EntryKind
	isEntry()
}

// DirEntry is a directory row. Path is absolute.
type DirEntry struct {
	Path string
}

func (d DirEntry) Kind() EntryKind { return EntryKind{Kind: KindDir, Path: d.Path} }
func (d DirEntry) isEntry()        {}

// FileEntry is a regular-file row scoped to the directory most recently
// opened by a DirEntry. Hashes has ceil(Size/BlockSize) entries.
type FileEntry struct {
	Dir        string
	Name       string
	Executable bool
	Size       uint64
	Hashes     [][32]byte
}

// Path is the full absolute path of this file (Dir joined with Name).
func (f FileEntry) Path() string { return path.Join(f.Dir, f.Name) }

func (f FileEntry) Kind() EntryKind { return EntryKind{Kind: KindFile, Path: f.Path()} }
func (f FileEntry) isEntry()        {}

// SymlinkEntry is a symlink row scoped to the directory most recently
// opened by a DirEntry. Target is the link's raw, unresolved value.
type SymlinkEntry struct {
	Dir    string
	Name   string
	Target string
}

// Path is the full absolute path of this symlink.
func (s SymlinkEntry) Path() string { return path.Join(s.Dir, s.Name) }

func (s SymlinkEntry) Kind() EntryKind { return EntryKind{Kind: KindFile, Path: s.Path()} }
func (s SymlinkEntry) isEntry()        {}

// CheckFile implements the Hashes.check_file verification helper from
// spec.md §4.4: it re-hashes r in blockSize-sized blocks with h and
// compares each digest to the stored per-block hash, in order. A mismatch,
// a premature EOF, or trailing bytes past the stored hashes all fail.
func (f FileEntry) CheckFile(r io.Reader, h hashalgo.Hash, blockSize int) (bool, error) {
	buf := make([]byte, blockSize)
	for i := 0; i < len(f.Hashes); i++ {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			h.Write(buf[:n])
			if h.Sum() != f.Hashes[i] {
				return false, nil
			}
		}
		switch err {
		case nil:
			continue
		case io.EOF, io.ErrUnexpectedEOF:
			if i != len(f.Hashes)-1 || n == 0 {
				return false, nil
			}
		default:
			return false, err
		}
	}
	// An empty tail is fine; any remaining byte fails the check.
	n, err := r.Read(buf[:1])
	if err != nil && err != io.EOF {
		return false, err
	}
	return n == 0, nil
}
