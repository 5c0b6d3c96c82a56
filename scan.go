package rangetar

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"slices"
)

// SymlinkPolicy decides what Scan does when it encounters a symbolic link.
//
// Symlinks are never followed nor archived; the policy only controls how loudly they are skipped.
type SymlinkPolicy int

const (
	// SymlinkWarn skips symlinks and logs a warning for each of them.
	SymlinkWarn SymlinkPolicy = iota
	// SymlinkIgnore skips symlinks silently.
	SymlinkIgnore
	// SymlinkError aborts the scan with a ScanError wrapping ErrSymlink.
	SymlinkError
)

// ParseSymlinkPolicy parses "warn", "ignore", or "error".
func ParseSymlinkPolicy(text string) (SymlinkPolicy, error) {
	switch text {
	case "warn", "":
		return SymlinkWarn, nil
	case "ignore":
		return SymlinkIgnore, nil
	case "error":
		return SymlinkError, nil
	default:
		return SymlinkWarn, fmt.Errorf("unknown symlink policy: %s", text)
	}
}

func (p SymlinkPolicy) String() string {
	switch p {
	case SymlinkWarn:
		return "warn"
	case SymlinkIgnore:
		return "ignore"
	case SymlinkError:
		return "error"
	default:
		return fmt.Sprintf("SymlinkPolicy(%d)", int(p))
	}
}

// ScanOptions customises Scan.
type ScanOptions struct {
	// UnwrapRoot determines whether all archived files are under a single root directory or not.
	//
	// By default, if root is "my-dir", the archive contains "my-dir/a.txt", "my-dir/path/b.txt", etc. With UnwrapRoot,
	// the archive contains "a.txt", "path/b.txt", etc.
	UnwrapRoot bool

	// WriteDir will write header-only directory entries to the archive.
	WriteDir bool

	// SymlinkPolicy controls what happens to symlinks. Defaults to SymlinkWarn.
	SymlinkPolicy SymlinkPolicy

	// Logger receives warnings about skipped entries.
	//
	// By default, log.Default is used. Use log.New(io.Discard, "", 0) to silence warnings.
	Logger *log.Logger
}

// Scan walks the directory tree rooted at root and builds the Index of its virtual tar archive.
//
// Traversal is depth-first with the entries of each directory visited in lexical order. Every regular file is opened
// for reading immediately and stays open until Index.Close; a file that cannot be opened is skipped with a warning.
// Symlinks are handled according to ScanOptions.SymlinkPolicy, other non-regular files are skipped with a warning.
//
// Any other failure (unreadable directory or metadata, a header that cannot be encoded, a cancelled context) aborts
// the scan with a *ScanError; files opened so far are closed.
func Scan(ctx context.Context, root string, optFns ...func(*ScanOptions)) (*Index, error) {
	opts := &ScanOptions{
		SymlinkPolicy: SymlinkWarn,
		Logger:        log.Default(),
	}
	for _, fn := range optFns {
		fn(opts)
	}

	switch fi, err := os.Stat(root); {
	case err != nil:
		return nil, &ScanError{Op: "stat root", Path: root, Err: err}
	case !fi.IsDir():
		return nil, &ScanError{Op: "stat root", Path: root, Err: ErrNotDirectory}
	}

	b := &builder{opts: opts, idx: &Index{root: root, base: BaseName(root)}}

	base := ""
	if !opts.UnwrapRoot {
		base = b.idx.base
	}

	if err := b.walk(ctx, root, base); err != nil {
		_ = b.idx.Close()
		return nil, err
	}

	b.idx.append(ZeroSegment(TerminatorSize))
	return b.idx, nil
}

// BaseName returns the name of the directory root as it appears in archive entry names.
//
// The root is resolved to an absolute path first so that "." and "my-dir/" are named after the actual directory.
// A root with no usable name (a filesystem or volume root) returns an empty string; entries are then named relative
// to the root as with ScanOptions.UnwrapRoot. The result never contains a separator and is never "." or "..".
func BaseName(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}

	switch base := filepath.Base(abs); base {
	case ".", "..", string(filepath.Separator), "":
		return ""
	default:
		return base
	}
}

type builder struct {
	opts *ScanOptions
	idx  *Index
}

// item is a pending entry on the work stack.
type item struct {
	src  string
	name string
	d    fs.DirEntry
}

// walk visits the tree with an explicit stack rather than recursion so that deep trees cannot exhaust the call stack.
//
// Children are pushed in reverse so that they are popped in lexical order, and a directory's children are pushed only
// once the directory itself has been popped. The resulting order is the same pre-order as the recursive walk.
func (b *builder) walk(ctx context.Context, root, base string) error {
	stack, err := b.children(nil, root, base)
	if err != nil {
		return err
	}

	for len(stack) != 0 {
		select {
		case <-ctx.Done():
			return &ScanError{Op: "walk", Path: root, Err: ctx.Err()}
		default:
		}

		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch t := it.d.Type(); {
		case t.IsDir():
			if b.opts.WriteDir {
				if err = b.addDir(it); err != nil {
					return err
				}
			}

			if stack, err = b.children(stack, it.src, it.name); err != nil {
				return err
			}

		case t&fs.ModeSymlink != 0:
			switch b.opts.SymlinkPolicy {
			case SymlinkIgnore:
			case SymlinkError:
				return &ScanError{Op: "walk", Path: it.src, Err: ErrSymlink}
			default:
				b.opts.Logger.Printf(`ignoring symlink "%s"`, it.src)
			}

		case t.IsRegular():
			if err = b.addFile(it); err != nil {
				return err
			}

		default:
			b.opts.Logger.Printf(`ignoring non-regular file "%s" (mode=%s)`, it.src, t)
		}
	}

	return nil
}

// children reads the directory src and pushes its entries onto stack in reverse lexical order.
func (b *builder) children(stack []item, src, name string) ([]item, error) {
	des, err := os.ReadDir(src)
	if err != nil {
		return nil, &ScanError{Op: "read directory", Path: src, Err: err}
	}

	for _, d := range slices.Backward(des) {
		stack = append(stack, item{
			src:  filepath.Join(src, d.Name()),
			name: path.Join(name, d.Name()),
			d:    d,
		})
	}

	return stack, nil
}

func (b *builder) addDir(it item) error {
	fi, err := it.d.Info()
	if err != nil {
		return &ScanError{Op: "describe directory", Path: it.src, Err: err}
	}

	hdr, err := encodeHeader(it.name, fi, 0)
	if err != nil {
		return &ScanError{Op: "encode header", Path: it.src, Err: err}
	}

	b.idx.addEntry(Entry{Name: it.name + "/", Type: TypeDir, Source: it.src}, NewStaticSegment(hdr), nil)
	return nil
}

func (b *builder) addFile(it item) error {
	fi, err := it.d.Info()
	if err != nil {
		return &ScanError{Op: "describe file", Path: it.src, Err: err}
	}

	size := fi.Size()
	if size < 0 {
		return &ScanError{Op: "describe file", Path: it.src, Err: fmt.Errorf("invalid size %d", size)}
	}

	hdr, err := encodeHeader(it.name, fi, size)
	if err != nil {
		return &ScanError{Op: "encode header", Path: it.src, Err: err}
	}

	f, err := os.Open(it.src)
	if err != nil {
		b.opts.Logger.Printf(`skipping unopenable file "%s": %v`, it.src, err)
		return nil
	}

	b.idx.files = append(b.idx.files, f)
	b.idx.addEntry(
		Entry{Name: it.name, Type: TypeReg, Size: size, Source: it.src},
		NewStaticSegment(hdr),
		NewFileSegment(f, it.src, size))
	return nil
}
