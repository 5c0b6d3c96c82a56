package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/rangetar"
	"github.com/nguyengg/rangetar/internal"
	"github.com/nguyengg/rangetar/internal/cmd/upload"
)

// Rangetar is the root of the command-line interface.
type Rangetar struct {
	internal.GlobalOptions

	Head   Head           `command:"head" description:"print the bytes of the archive at an offset"`
	Cat    Cat            `command:"cat" description:"write the archive or a byte range of it to stdout or a file"`
	Ls     Ls             `command:"ls" alias:"list" description:"list the byte ranges of every entry as YAML"`
	Verify Verify         `command:"verify" description:"decode the archive and check it against the directory"`
	Serve  Serve          `command:"serve" description:"serve the archive over HTTP with range support"`
	Upload upload.Command `command:"upload" alias:"up" description:"upload the archive to S3"`
}

// NewParser returns the parser for all commands.
//
// Every command shares the global options of the returned parser.
func NewParser() (*flags.Parser, error) {
	opts := &Rangetar{}
	opts.Head.global = &opts.GlobalOptions
	opts.Cat.global = &opts.GlobalOptions
	opts.Ls.global = &opts.GlobalOptions
	opts.Verify.global = &opts.GlobalOptions
	opts.Serve.global = &opts.GlobalOptions
	opts.Upload.Global = &opts.GlobalOptions

	p := flags.NewNamedParser("rangetar", flags.Default)
	if _, err := p.AddGroup("Global Options", "", opts); err != nil {
		return nil, err
	}

	return p, nil
}

// DirArg is the positional argument shared by every command.
type DirArg struct {
	Dir flags.Filename `positional-arg-name:"dir" description:"the directory to archive" required:"yes"`
}

// start validates args then returns a context that is cancelled on interrupt and carries a logger prefixed with dir.
func start(args []string, dir flags.Filename) (context.Context, context.CancelFunc, error) {
	if len(args) != 0 {
		return nil, nil, fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	return internal.WithPrefixLogger(ctx, internal.Prefix(string(dir))), stop, nil
}

// scanAndRun scans dir then calls fn with the index, closing the index afterwards.
func scanAndRun(ctx context.Context, global *internal.GlobalOptions, dir flags.Filename, fn func(*rangetar.Index) error) (err error) {
	idx, err := global.Scan(ctx, string(dir))
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := idx.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close archive error: %w", closeErr)
		}
	}()

	return fn(idx)
}

func stdoutOr(w io.Writer) io.Writer {
	if w != nil {
		return w
	}

	return os.Stdout
}
