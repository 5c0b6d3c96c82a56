package cmd

import (
	"bytes"
	"encoding/hex"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/rangetar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewParser(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)

	for _, name := range []string{"head", "cat", "ls", "verify", "serve", "upload"} {
		assert.NotNilf(t, p.Find(name), "command %s must exist", name)
	}

	_, err = p.ParseArgs([]string{"--symlinks=follow", "ls", t.TempDir()})
	assert.Error(t, err)
}

func TestHead_Execute(t *testing.T) {
	root := testTree(t)
	_, full := testArchive(t, root)

	tests := []struct {
		name   string
		offset int64
		count  int
		raw    bool
		want   string
	}{
		{name: "default", count: 128, raw: true, want: "read: 128\n" + string(full[:128])},
		{name: "hex dump", offset: 512, count: 5, want: "read: 5\n" + hex.Dump([]byte("hello"))},
		{name: "end of archive", offset: int64(len(full)) - 10, count: 128, raw: true, want: "read: 10\n" + string(make([]byte, 10))},
		{name: "past end", offset: int64(len(full)) + 10, count: 128, raw: true, want: "read: 0\n"},
		{name: "huge count", offset: int64(len(full)) - 10, count: math.MaxInt, raw: true, want: "read: 10\n" + string(make([]byte, 10))},
		{name: "huge count past end", offset: int64(len(full)), count: math.MaxInt, raw: true, want: "read: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := &Head{Offset: tt.offset, Count: tt.count, Raw: tt.raw, Args: dirArg(root), global: testGlobal(), out: &out}
			require.NoError(t, c.Execute(nil))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestHead_Execute_Errors(t *testing.T) {
	root := testTree(t)

	c := &Head{Offset: -1, Count: 128, Args: dirArg(root), global: testGlobal(), out: &bytes.Buffer{}}
	assert.ErrorIs(t, c.Execute(nil), rangetar.ErrSeekBeforeFirstByte)

	c = &Head{Count: -1, Args: dirArg(root), global: testGlobal()}
	assert.ErrorContains(t, c.Execute(nil), "--count")

	c = &Head{Count: 128, Args: dirArg(filepath.Join(root, "a.txt")), global: testGlobal()}
	assert.ErrorIs(t, c.Execute(nil), rangetar.ErrNotDirectory)

	c = &Head{Count: 128, Args: dirArg(root), global: testGlobal()}
	assert.ErrorContains(t, c.Execute([]string{"extra"}), "unknown positional arguments")
}

func TestCat_Execute(t *testing.T) {
	root := testTree(t)
	_, full := testArchive(t, root)

	tests := []struct {
		name           string
		offset, length int64
		want           []byte
	}{
		{name: "everything", length: -1, want: full},
		{name: "range", offset: 500, length: 600, want: full[500:1100]},
		{name: "length past end", offset: int64(len(full)) - 3, length: 100, want: full[len(full)-3:]},
		{name: "offset past end", offset: int64(len(full)) + 3, length: -1, want: []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := &Cat{Offset: tt.offset, Length: tt.length, NoProgress: true, Args: dirArg(root), global: testGlobal(), out: &out}
			require.NoError(t, c.Execute(nil))
			assert.Equal(t, tt.want, append([]byte{}, out.Bytes()...))
		})
	}
}

func TestCat_Execute_Output(t *testing.T) {
	root := testTree(t)
	_, full := testArchive(t, root)
	output := filepath.Join(t.TempDir(), "my-dir.tar")

	c := &Cat{Length: -1, Output: flags.Filename(output), NoProgress: true, Args: dirArg(root), global: testGlobal()}
	require.NoError(t, c.Execute(nil))

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, full, got)

	// the output file must not be overwritten.
	assert.ErrorContains(t, c.Execute(nil), "create output file error")
}

func TestLs_Execute(t *testing.T) {
	root := testTree(t)

	var out bytes.Buffer
	c := &Ls{Args: dirArg(root), global: testGlobal(), out: &out}
	require.NoError(t, c.Execute(nil))

	var got Listing
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, Listing{
		Root:        root,
		TotalLength: 5632,
		Size:        "5.5 KiB",
		Entries: []ListingEntry{
			{Name: "my-dir/a.txt", Type: "file", Size: 5, FirstByte: 0, ContentOffset: 512, LastByte: 516},
			{Name: "my-dir/sub/b.txt", Type: "file", Size: 3000, FirstByte: 1024, ContentOffset: 1536, LastByte: 4535},
		},
	}, got)
}

func TestNewListing_WriteDir(t *testing.T) {
	root := testTree(t)

	global := testGlobal()
	global.WriteDir = true
	global.UnwrapRoot = true

	var out bytes.Buffer
	c := &Ls{Args: dirArg(root), global: global, out: &out}
	require.NoError(t, c.Execute(nil))

	var got Listing
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	require.Len(t, got.Entries, 3)
	assert.Equal(t, ListingEntry{Name: "sub/", Type: "dir", FirstByte: 1024, ContentOffset: 1536, LastByte: 1535}, got.Entries[1])
}
