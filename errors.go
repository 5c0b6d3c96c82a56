package rangetar

import (
	"errors"
	"fmt"
)

// ErrSeekBeforeFirstByte is returned when a seek would end up at a negative offset.
var ErrSeekBeforeFirstByte = errors.New("seek ends up before first byte")

// ErrNotDirectory is returned by Scan if the root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// ErrSymlink is the cause of the ScanError returned by Scan when a symlink is found with SymlinkError policy.
var ErrSymlink = errors.New("symlinks are not supported")

// ScanError is returned by Scan when the index cannot be built.
//
// A ScanError is always fatal: no partial index is ever returned alongside it.
type ScanError struct {
	// Op describes what Scan was doing, for example "read directory" or "encode header".
	Op string
	// Path is the path on disk of the offending entry.
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf(`scan: %s "%s" error: %v`, e.Op, e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
