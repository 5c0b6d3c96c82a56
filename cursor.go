package rangetar

import (
	"io"
)

// Cursor is a forward-only read position over an Index.
//
// Cursors are created by Index.Seek and hold no resources besides their position; abandoning one requires no cleanup.
// A Cursor is not safe for concurrent use, but any number of cursors may read the same Index concurrently.
type Cursor struct {
	idx *Index
	// i is the current segment; len(idx.segments) once exhausted.
	i int
	// off is the offset within segment i.
	off int64
	// pos is the absolute offset in the archive.
	pos int64
}

// Offset returns the absolute archive offset of the next byte to be read.
func (c *Cursor) Offset() int64 {
	return c.pos
}

// Read fills p with archive bytes starting at the cursor, crossing segment boundaries as needed.
//
// A count shorter than len(p), including zero, with a nil error means the end of the archive has been reached; unlike
// an io.Reader, Read never returns io.EOF. See Index.NewReader for an io.Reader. An error from an underlying segment
// aborts the call; the cursor is still advanced past the bytes counted in n.
func (c *Cursor) Read(p []byte) (n int, err error) {
	segments := c.idx.segments

	for n < len(p) && c.i < len(segments) {
		s := segments[c.i]

		if size := s.Size(); c.off >= size {
			c.i, c.off = c.i+1, c.off-size
			continue
		}

		m, err := s.Read(c.off, p[n:])
		c.off += int64(m)
		c.pos += int64(m)
		n += m

		if err != nil {
			return n, err
		}

		if m == 0 {
			// a segment that is not exhausted must make progress.
			return n, io.ErrNoProgress
		}
	}

	return n, nil
}
