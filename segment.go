package rangetar

import (
	"errors"
	"fmt"
	"io"
)

// Segment is one contiguous run of bytes of the virtual archive.
//
// Read copies bytes of the segment starting at off into p and returns the number of bytes written. Unlike
// [io.ReaderAt], a short count with a nil error is not a failure: it means the segment is exhausted at that point (the
// end of this segment, not the end of the archive). The caller must guarantee 0 <= off <= Size().
type Segment interface {
	// Size returns the number of bytes this segment contributes to the archive.
	//
	// The value is fixed at scan time and never changes afterwards.
	Size() int64

	// Read fills as many bytes of p as available starting at off.
	Read(off int64, p []byte) (int, error)
}

// remaining returns min(size - off, len(p)) without overflowing int.
func remaining(size, off int64, p []byte) int {
	if off >= size {
		return 0
	}

	if n := size - off; n < int64(len(p)) {
		return int(n)
	}

	return len(p)
}

// StaticSegment is an immutable literal byte buffer such as a tar header block.
type StaticSegment struct {
	data []byte
}

var _ Segment = (*StaticSegment)(nil)

// NewStaticSegment returns a StaticSegment holding a copy of data.
func NewStaticSegment(data []byte) *StaticSegment {
	return &StaticSegment{data: append([]byte(nil), data...)}
}

func (s *StaticSegment) Size() int64 {
	return int64(len(s.data))
}

func (s *StaticSegment) Read(off int64, p []byte) (int, error) {
	n := remaining(s.Size(), off, p)
	return copy(p[:n], s.data[off:]), nil
}

// Bytes returns the literal contents of the segment. The returned slice must not be modified.
func (s *StaticSegment) Bytes() []byte {
	return s.data
}

// ZeroSegment is a logical run of zero bytes used for block padding and the end-of-archive marker.
//
// The zero bytes are only materialised on read.
type ZeroSegment int64

var _ Segment = ZeroSegment(0)

func (z ZeroSegment) Size() int64 {
	return int64(z)
}

func (z ZeroSegment) Read(off int64, p []byte) (int, error) {
	n := remaining(int64(z), off, p)
	clear(p[:n])
	return n, nil
}

// FileSegment is the lazily read content of a regular file.
//
// The recorded size is captured at scan time and is the sole authority on the length of the segment: if the file
// shrinks afterwards, the missing bytes read as zero; if the file grows, the extra bytes are never visible. This keeps
// the archive's framing stable even if the source tree changes underneath it, though the content read is not
// guaranteed to be coherent with any single point-in-time snapshot.
//
// FileSegment only uses positioned reads on its handle so it is safe for concurrent use by multiple cursors.
type FileSegment struct {
	r    io.ReaderAt
	name string
	size int64
}

var _ Segment = (*FileSegment)(nil)

// NewFileSegment returns a FileSegment reading from r with the given recorded size.
//
// The name is only used to decorate errors.
func NewFileSegment(r io.ReaderAt, name string, size int64) *FileSegment {
	return &FileSegment{r: r, name: name, size: size}
}

func (s *FileSegment) Size() int64 {
	return s.size
}

// Name returns the path of the backing file.
func (s *FileSegment) Name() string {
	return s.name
}

func (s *FileSegment) Read(off int64, p []byte) (int, error) {
	// never ask for anything past the recorded size so that growth is invisible.
	p = p[:remaining(s.size, off, p)]

	var n int
	for n < len(p) {
		m, err := s.r.ReadAt(p[n:], off+int64(n))
		n += m

		switch {
		case err == nil:
			if m == 0 {
				return n, fmt.Errorf(`read file "%s" at offset %d error: %w`, s.name, off+int64(n), io.ErrNoProgress)
			}
		case errors.Is(err, io.EOF):
			// the file shrank since it was scanned.
			clear(p[n:])
			return len(p), nil
		case isInterrupted(err):
		default:
			return n, fmt.Errorf(`read file "%s" at offset %d error: %w`, s.name, off+int64(n), err)
		}
	}

	return n, nil
}
