package rangetar

import (
	"fmt"
	"io"
)

// Reader implements io.ReadSeeker and io.ReaderAt on top of an Index.
//
// Read and Seek share a single cursor and are not safe for concurrent use. ReadAt creates its own cursor for every
// call and is safe for concurrent use, which makes Reader suitable for http.ServeContent and parallel uploads.
type Reader struct {
	idx *Index
	c   *Cursor
}

var (
	_ io.ReadSeeker = (*Reader)(nil)
	_ io.ReaderAt   = (*Reader)(nil)
)

// NewReader returns a new Reader positioned at the start of the archive.
func (idx *Index) NewReader() *Reader {
	c, _ := idx.Seek(0)
	return &Reader{idx: idx, c: c}
}

// Size returns the length of the archive, same as Index.TotalLength.
func (r *Reader) Size() int64 {
	return r.idx.total
}

func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n, err := r.c.Read(p)
	if err == nil && n == 0 {
		err = io.EOF
	}

	return n, err
}

// Seek implements io.Seeker.
//
// Seeking past the end of the archive is allowed; subsequent reads return io.EOF. Seeking before the first byte returns
// ErrSeekBeforeFirstByte and leaves the current position unchanged.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += r.c.pos
	case io.SeekEnd:
		offset += r.idx.total
	default:
		return r.c.pos, fmt.Errorf("invalid whence: %d", whence)
	}

	c, err := r.idx.Seek(offset)
	if err != nil {
		return r.c.pos, err
	}

	r.c = c
	return offset, nil
}

// ReadAt implements io.ReaderAt.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	c, err := r.idx.Seek(off)
	if err != nil {
		return 0, err
	}

	n, err := c.Read(p)
	if err == nil && n < len(p) {
		err = io.EOF
	}

	return n, err
}
