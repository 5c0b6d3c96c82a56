package cmd

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mholt/archives"
	"github.com/nguyengg/rangetar"
	"github.com/nguyengg/rangetar/internal"
)

// Verify decodes the archive with an independent tar decoder and checks every entry against the index.
type Verify struct {
	Args DirArg `positional-args:"yes"`

	global *internal.GlobalOptions
}

func (c *Verify) Execute(args []string) error {
	ctx, stop, err := start(args, c.Args.Dir)
	if err != nil {
		return err
	}
	defer stop()

	logger := internal.MustLogger(ctx)

	return scanAndRun(ctx, c.global, c.Args.Dir, func(idx *rangetar.Index) error {
		progress := internal.NewProgressLogger(logger, "verified", idx.TotalLength(), 5*time.Second)

		n, err := VerifyArchive(ctx, idx, io.TeeReader(idx.NewReader(), progress))
		if err != nil {
			return err
		}

		progress.Done()
		logger.Printf("verified %d entries", n)
		return nil
	})
}

// ErrMismatch is returned by VerifyArchive if the decoded archive differs from the index.
var ErrMismatch = errors.New("archive does not match index")

// VerifyArchive decodes r as a tar archive and checks that its entries match those of idx in order.
//
// Names, types, sizes, and content lengths must match, and metadata must be deterministic (uid/gid 0, no owner names,
// epoch modification time, permission bits only). Returns the number of verified entries.
func VerifyArchive(ctx context.Context, idx *rangetar.Index, r io.Reader) (int, error) {
	entries := idx.Entries()
	i := 0

	err := archives.Tar{}.Extract(ctx, r, func(ctx context.Context, info archives.FileInfo) error {
		if i >= len(entries) {
			return fmt.Errorf(`%w: unexpected entry "%s"`, ErrMismatch, info.NameInArchive)
		}

		e := entries[i]
		i++

		hdr, ok := info.Header.(*tar.Header)
		if !ok {
			return fmt.Errorf(`entry "%s" has no tar header (%T)`, info.NameInArchive, info.Header)
		}

		if err := checkHeader(e, hdr); err != nil {
			return fmt.Errorf(`%w: entry #%d "%s": %v`, ErrMismatch, i, e.Name, err)
		}

		if e.Type != rangetar.TypeReg {
			return nil
		}

		f, err := info.Open()
		if err != nil {
			return fmt.Errorf(`open entry "%s" error: %w`, e.Name, err)
		}
		defer f.Close()

		n, err := io.Copy(io.Discard, f)
		switch {
		case err != nil:
			return fmt.Errorf(`read entry "%s" error: %w`, e.Name, err)
		case n != e.Size:
			return fmt.Errorf(`%w: entry "%s" has %d content bytes, want %d`, ErrMismatch, e.Name, n, e.Size)
		}

		return nil
	})
	if err != nil {
		return i, err
	}

	if i != len(entries) {
		return i, fmt.Errorf("%w: decoded %d entries, want %d", ErrMismatch, i, len(entries))
	}

	return i, nil
}

func checkHeader(e rangetar.Entry, hdr *tar.Header) error {
	switch {
	case hdr.Name != e.Name:
		return fmt.Errorf(`name got = "%s", want = "%s"`, hdr.Name, e.Name)
	case hdr.Typeflag != byte(e.Type):
		return fmt.Errorf("type got = %q, want = %q", hdr.Typeflag, byte(e.Type))
	case hdr.Size != e.Size:
		return fmt.Errorf("size got = %d, want = %d", hdr.Size, e.Size)
	case hdr.Uid != 0 || hdr.Gid != 0:
		return fmt.Errorf("uid/gid got = %d/%d, want = 0/0", hdr.Uid, hdr.Gid)
	case hdr.Uname != "" || hdr.Gname != "":
		return fmt.Errorf(`uname/gname got = "%s"/"%s", want empty`, hdr.Uname, hdr.Gname)
	case hdr.ModTime.Unix() != 0:
		return fmt.Errorf("mtime got = %v, want epoch", hdr.ModTime)
	case hdr.Mode&^0777 != 0:
		return fmt.Errorf("mode got = %o, want permission bits only", hdr.Mode)
	}

	return nil
}
