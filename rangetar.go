// Package rangetar synthesizes a POSIX ustar archive of a directory tree without building it, and exposes it as a
// randomly seekable byte stream.
//
// Scan walks the tree once and produces an Index: an ordered list of segments made of literal header blocks, lazily
// read file contents, and zero padding. Any byte range of the archive can then be read on demand with Index.Seek and
// Cursor.Read, or through the io.ReadSeeker and io.ReaderAt returned by Index.NewReader. File contents are only read
// from disk when the corresponding bytes are requested.
//
// The archive's length and framing are fixed at scan time. If a file shrinks afterwards its missing bytes read as
// zero; if it grows the extra bytes are ignored.
package rangetar

import (
	"context"
	"fmt"
	"io"
)

// CopyRange writes length bytes of the archive starting at offset to dst.
//
// If length is negative, everything from offset to the end of the archive is written. The context is checked between
// every chunk of size len(buf); if buf is nil, a new buffer of size 32*1024 is created. Returns the number of bytes
// written.
func CopyRange(ctx context.Context, idx *Index, dst io.Writer, offset, length int64, buf []byte) (written int64, err error) {
	if buf == nil {
		buf = make([]byte, 32*1024)
	}

	c, err := idx.Seek(offset)
	if err != nil {
		return 0, err
	}

	if length < 0 {
		length = max(0, idx.total-offset)
	}

	for written < length {
		p := buf
		if n := length - written; n < int64(len(p)) {
			p = p[:n]
		}

		nr, err := c.Read(p)
		if nr > 0 {
			nw, err := dst.Write(p[:nr])
			written += int64(nw)

			switch {
			case err != nil:
				return written, err
			case nw != nr:
				return written, io.ErrShortWrite
			}
		}

		if err != nil {
			return written, fmt.Errorf("read archive at offset %d error: %w", c.pos, err)
		}

		if nr < len(p) {
			return written, nil
		}

		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}
	}

	return written, nil
}
