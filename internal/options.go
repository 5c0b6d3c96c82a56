package internal

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/rangetar"
)

// GlobalOptions are the options shared by every command.
type GlobalOptions struct {
	Profile    string `short:"p" long:"profile" description:"the AWS profile to use for commands that talk to S3"`
	Quiet      bool   `short:"q" long:"quiet" description:"do not log warnings about skipped files"`
	WriteDir   bool   `long:"write-dir" description:"write header-only entries for directories"`
	UnwrapRoot bool   `long:"unwrap-root" description:"name entries relative to the directory instead of prefixing them with its base name"`
	Symlinks   string `long:"symlinks" description:"what to do with symlinks" choice:"warn" choice:"ignore" choice:"error" default:"warn"`
}

// Scan scans dir with the global options applied.
//
// The logger attached to context receives scan warnings unless Quiet is set, as well as a summary of the scan.
func (o *GlobalOptions) Scan(ctx context.Context, dir string) (*rangetar.Index, error) {
	policy, err := rangetar.ParseSymlinkPolicy(o.Symlinks)
	if err != nil {
		return nil, fmt.Errorf("invalid --symlinks: %w", err)
	}

	idx, err := rangetar.Scan(ctx, dir, func(opts *rangetar.ScanOptions) {
		opts.UnwrapRoot = o.UnwrapRoot
		opts.WriteDir = o.WriteDir
		opts.SymlinkPolicy = policy
		opts.Logger = ScanLogger(ctx, o.Quiet)
	})
	if err != nil {
		return nil, err
	}

	MustLogger(ctx).Printf("scanned %d entries, archive is %s", len(idx.Entries()), humanize.IBytes(uint64(idx.TotalLength())))
	return idx, nil
}

// ArchiveName returns the file name of the archive of idx, "<base>.tar", or "archive.tar" if the root has no usable
// name.
func ArchiveName(idx *rangetar.Index) string {
	if base := idx.Base(); base != "" {
		return base + ".tar"
	}

	return "archive.tar"
}
