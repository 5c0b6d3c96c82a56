package rangetar

import (
	"errors"
	"fmt"
	"os"
	"sort"
)

// EntryType is the kind of an archive entry.
type EntryType byte

const (
	// TypeReg is a regular file entry.
	TypeReg EntryType = '0'
	// TypeDir is a header-only directory entry, present only with ScanOptions.WriteDir.
	TypeDir EntryType = '5'
)

func (t EntryType) String() string {
	switch t {
	case TypeReg:
		return "file"
	case TypeDir:
		return "dir"
	default:
		return fmt.Sprintf("EntryType(%q)", byte(t))
	}
}

// Entry describes where one archive member lives in the virtual archive.
type Entry struct {
	// Name is the path of the entry in the archive. Directories end with "/".
	Name string
	// Type is the kind of entry.
	Type EntryType
	// Size is the content size recorded at scan time.
	Size int64
	// Source is the path of the entry on disk.
	Source string
	// HeaderOffset is the offset of the entry's header block in the archive.
	HeaderOffset int64
	// ContentOffset is the offset of the entry's first content byte in the archive.
	ContentOffset int64
}

// Index is the segment-based model of a virtual tar archive.
//
// An Index is built once by Scan and is read-only afterwards. It is safe for concurrent use: any number of cursors and
// readers may be created from it and used from different goroutines. The Index owns the file handles of its regular
// files; call Close once it is no longer needed.
type Index struct {
	root     string
	base     string
	segments []Segment
	starts   []int64
	total    int64
	entries  []Entry
	files    []*os.File
}

// append adds a segment, maintaining starts and total.
func (idx *Index) append(s Segment) {
	idx.segments = append(idx.segments, s)
	idx.starts = append(idx.starts, idx.total)
	idx.total += s.Size()
}

// addEntry appends the header, the content if any, and the padding for the given entry.
func (idx *Index) addEntry(e Entry, hdr *StaticSegment, content *FileSegment) {
	e.HeaderOffset = idx.total
	idx.append(hdr)
	e.ContentOffset = idx.total
	idx.entries = append(idx.entries, e)

	if content == nil {
		return
	}

	idx.append(content)
	if n := padding(content.Size()); n != 0 {
		idx.append(ZeroSegment(n))
	}
}

// Root returns the root path that was scanned.
func (idx *Index) Root() string {
	return idx.root
}

// Base returns BaseName of the root, which prefixes every entry name unless ScanOptions.UnwrapRoot is set.
//
// It is empty if the root has no usable name.
func (idx *Index) Base() string {
	return idx.base
}

// TotalLength returns the length of the archive in bytes.
//
// The value is the sum of the sizes of all segments, computed once at scan time. It does not change even if files in
// the tree change size afterwards.
func (idx *Index) TotalLength() int64 {
	return idx.total
}

// Segments returns the ordered segments of the archive. The returned slice must not be modified.
func (idx *Index) Segments() []Segment {
	return idx.segments
}

// Entries returns the archive entries in archive order. The returned slice must not be modified.
func (idx *Index) Entries() []Entry {
	return idx.entries
}

// Seek returns a new Cursor positioned at the given absolute offset.
//
// The cursor starts in the first segment whose end is past offset. If offset is at or beyond TotalLength, the cursor
// is positioned past the last segment and all reads from it return 0. A negative offset returns
// ErrSeekBeforeFirstByte.
func (idx *Index) Seek(offset int64) (*Cursor, error) {
	if offset < 0 {
		return nil, ErrSeekBeforeFirstByte
	}

	// ends are non-decreasing so this finds the same segment as accumulating sizes one by one. zero-sized segments
	// are skipped since their end equals their start.
	i := sort.Search(len(idx.segments), func(i int) bool {
		return idx.starts[i]+idx.segments[i].Size() > offset
	})

	c := &Cursor{idx: idx, i: i, pos: offset}
	if i < len(idx.segments) {
		c.off = offset - idx.starts[i]
	}

	return c, nil
}

// Close closes all file handles owned by the index.
//
// Cursors and readers created from the index must not be used after Close.
func (idx *Index) Close() error {
	var errs []error
	for _, f := range idx.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	idx.files = nil
	return errors.Join(errs...)
}
