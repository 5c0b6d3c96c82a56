package cmd

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/nguyengg/rangetar"
	"github.com/nguyengg/rangetar/internal"
)

// Head reads up to Count bytes from Offset and prints how many bytes were read followed by the bytes.
type Head struct {
	Offset int64  `long:"offset" description:"the offset in the archive to start reading from" default:"0"`
	Count  int    `short:"n" long:"count" description:"the maximum number of bytes to read" default:"128"`
	Raw    bool   `long:"raw" description:"write the bytes as-is instead of a hex dump"`
	Args   DirArg `positional-args:"yes"`

	global *internal.GlobalOptions
	out    io.Writer
}

func (c *Head) Execute(args []string) error {
	if c.Count < 0 {
		return fmt.Errorf("--count must be non-negative")
	}

	ctx, stop, err := start(args, c.Args.Dir)
	if err != nil {
		return err
	}
	defer stop()

	return scanAndRun(ctx, c.global, c.Args.Dir, func(idx *rangetar.Index) error {
		cur, err := idx.Seek(c.Offset)
		if err != nil {
			return fmt.Errorf("seek to %d error: %w", c.Offset, err)
		}

		// the buffer never exceeds what is left of the archive however large Count is.
		buf := make([]byte, min(int64(c.Count), max(0, idx.TotalLength()-c.Offset)))
		n := 0
		if len(buf) != 0 {
			if n, err = cur.Read(buf); err != nil {
				return fmt.Errorf("read at %d error: %w", c.Offset, err)
			}
		}

		out := stdoutOr(c.out)
		if _, err = fmt.Fprintf(out, "read: %d\n", n); err != nil {
			return err
		}

		if c.Raw {
			_, err = out.Write(buf[:n])
		} else {
			_, err = io.WriteString(out, hex.Dump(buf[:n]))
		}
		return err
	})
}
