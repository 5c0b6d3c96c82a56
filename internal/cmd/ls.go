package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/rangetar"
	"github.com/nguyengg/rangetar/internal"
	"gopkg.in/yaml.v3"
)

// Ls prints the layout of the archive as YAML.
type Ls struct {
	Args DirArg `positional-args:"yes"`

	global *internal.GlobalOptions
	out    io.Writer
}

// Listing is the YAML document printed by Ls.
type Listing struct {
	Root        string         `yaml:"root"`
	TotalLength int64          `yaml:"total_length"`
	Size        string         `yaml:"size"`
	Entries     []ListingEntry `yaml:"entries"`
}

// ListingEntry is the byte range occupied by one entry.
//
// FirstByte is the first byte of the header and LastByte is the last byte of the content (excluding padding), both
// inclusive so that they can be used directly in an HTTP Range header. For entries without content, LastByte is the last
// byte of the header.
type ListingEntry struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	Size          int64  `yaml:"size"`
	FirstByte     int64  `yaml:"first_byte"`
	ContentOffset int64  `yaml:"content_offset"`
	LastByte      int64  `yaml:"last_byte"`
}

func (c *Ls) Execute(args []string) error {
	ctx, stop, err := start(args, c.Args.Dir)
	if err != nil {
		return err
	}
	defer stop()

	return scanAndRun(ctx, c.global, c.Args.Dir, func(idx *rangetar.Index) error {
		enc := yaml.NewEncoder(stdoutOr(c.out))
		enc.SetIndent(2)

		if err := enc.Encode(NewListing(idx)); err != nil {
			return fmt.Errorf("encode listing error: %w", err)
		}

		return enc.Close()
	})
}

// NewListing describes the layout of the given archive.
func NewListing(idx *rangetar.Index) Listing {
	l := Listing{
		Root:        idx.Root(),
		TotalLength: idx.TotalLength(),
		Size:        humanize.IBytes(uint64(idx.TotalLength())),
		Entries:     make([]ListingEntry, 0, len(idx.Entries())),
	}

	for _, e := range idx.Entries() {
		l.Entries = append(l.Entries, ListingEntry{
			Name:          e.Name,
			Type:          e.Type.String(),
			Size:          e.Size,
			FirstByte:     e.HeaderOffset,
			ContentOffset: e.ContentOffset,
			LastByte:      e.ContentOffset + e.Size - 1,
		})
	}

	return l
}
