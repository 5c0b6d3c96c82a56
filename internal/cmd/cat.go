package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/rangetar"
	"github.com/nguyengg/rangetar/internal"
)

// Cat writes [Offset, Offset+Length) of the archive to stdout or Output.
type Cat struct {
	Offset     int64          `long:"offset" description:"the offset in the archive to start writing from" default:"0"`
	Length     int64          `short:"n" long:"length" description:"the number of bytes to write; negative values write until the end of the archive" default:"-1"`
	Output     flags.Filename `short:"o" long:"output" description:"write to this file instead of stdout; the file must not exist yet"`
	NoProgress bool           `long:"no-progress" description:"do not display the progress bar"`
	Args       DirArg         `positional-args:"yes"`

	global *internal.GlobalOptions
	out    io.Writer
}

func (c *Cat) Execute(args []string) error {
	if c.Offset < 0 {
		return fmt.Errorf("--offset must be non-negative")
	}

	ctx, stop, err := start(args, c.Args.Dir)
	if err != nil {
		return err
	}
	defer stop()

	logger := internal.MustLogger(ctx)

	return scanAndRun(ctx, c.global, c.Args.Dir, func(idx *rangetar.Index) (err error) {
		want := max(0, idx.TotalLength()-c.Offset)
		if c.Length >= 0 {
			want = min(want, c.Length)
		}

		var dst io.Writer = stdoutOr(c.out)
		if c.Output != "" {
			f, openErr := os.OpenFile(string(c.Output), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
			if openErr != nil {
				return fmt.Errorf("create output file error: %w", openErr)
			}
			defer func() {
				if closeErr := f.Close(); closeErr != nil && err == nil {
					err = fmt.Errorf("close output file error: %w", closeErr)
				}
			}()

			dst = f
		}

		if !c.NoProgress {
			bar := internal.NewProgressBar(want, "writing")
			defer bar.Close()

			dst = io.MultiWriter(dst, bar)
		}

		written, err := rangetar.CopyRange(ctx, idx, dst, c.Offset, want, nil)
		if err != nil {
			return fmt.Errorf("write archive error: %w", err)
		}

		logger.Printf("wrote %s", humanize.IBytes(uint64(written)))
		return nil
	})
}
