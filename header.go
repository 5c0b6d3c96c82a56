package rangetar

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io/fs"
	"strings"
	"time"
)

// BlockSize is the size of a tar block. Every header occupies exactly one block and every file's content is padded
// with zeroes to a multiple of BlockSize.
const BlockSize = 512

// TerminatorSize is the size of the end-of-archive marker, two zero blocks.
const TerminatorSize = 2 * BlockSize

// MaxFileSize is the largest file size that the ustar 12-byte octal size field can encode.
const MaxFileSize = 1<<33 - 1

// epoch is the fixed modification time of every entry.
var epoch = time.Unix(0, 0)

// encodeHeader returns the ustar header block for the entry at name with the given metadata.
//
// Metadata is normalised so that two scans of logically identical trees produce identical bytes: uid and gid are 0,
// owner and group names are empty, the modification time is the Unix epoch, and only the permission bits of the mode
// are kept (setuid, setgid, and sticky bits are dropped). Directories get a trailing "/" and a zero size.
//
// Names are stored as raw bytes in the name and prefix fields so UTF-8 names are archived as-is; archive/tar alone
// refuses any non-ASCII name in ustar format.
func encodeHeader(name string, fi fs.FileInfo, size int64) ([]byte, error) {
	typeflag := byte(tar.TypeReg)
	if fi.IsDir() {
		name, typeflag, size = name+"/", tar.TypeDir, 0
	}

	if size > MaxFileSize {
		return nil, fmt.Errorf(`size %d of "%s" exceeds ustar limit`, size, name)
	}

	prefix, suffix, err := splitName(name)
	if err != nil {
		return nil, err
	}

	// tar.Writer writes the header block straight through so buf ends up with exactly one block. The writer is then
	// discarded without Close so no content or trailer is ever produced.
	var buf bytes.Buffer
	if err = tar.NewWriter(&buf).WriteHeader(&tar.Header{
		Name:     "x",
		Mode:     int64(fi.Mode().Perm()),
		ModTime:  epoch,
		Typeflag: typeflag,
		Size:     size,
		Format:   tar.FormatUSTAR,
	}); err != nil {
		return nil, fmt.Errorf(`encode tar header for "%s" error: %w`, name, err)
	}

	blk := buf.Bytes()
	if len(blk) != BlockSize {
		return nil, fmt.Errorf(`encode tar header for "%s" error: got %d bytes, want %d`, name, len(blk), BlockSize)
	}

	clear(blk[nameOffset : nameOffset+nameSize])
	copy(blk[nameOffset:], suffix)
	clear(blk[prefixOffset : prefixOffset+prefixSize])
	copy(blk[prefixOffset:], prefix)
	setChecksum(blk)

	return blk, nil
}

// ustar field layout.
const (
	nameOffset     = 0
	nameSize       = 100
	checksumOffset = 148
	checksumSize   = 8
	prefixOffset   = 345
	prefixSize     = 155
)

// splitName splits name into the ustar prefix and name fields at a "/", preferring the longest prefix.
//
// Names are measured in bytes, not runes.
func splitName(name string) (prefix, suffix string, err error) {
	if strings.IndexByte(name, 0) >= 0 {
		return "", "", fmt.Errorf(`name "%s" contains a NUL byte`, name)
	}

	if len(name) <= nameSize {
		return "", name, nil
	}

	n := len(name)
	if n > prefixSize+1 {
		n = prefixSize + 1
	} else if name[n-1] == '/' {
		n--
	}

	i := strings.LastIndexByte(name[:n], '/')
	if i <= 0 || len(name)-i-1 > nameSize || len(name)-i-1 == 0 || i > prefixSize {
		return "", "", fmt.Errorf(`name "%s" does not fit the ustar name and prefix fields`, name)
	}

	return name[:i], name[i+1:], nil
}

// setChecksum computes the header checksum with the checksum field treated as spaces and stores it as six octal
// digits followed by NUL and a space.
func setChecksum(blk []byte) {
	copy(blk[checksumOffset:checksumOffset+checksumSize], "        ")

	var sum int64
	for _, b := range blk {
		sum += int64(b)
	}

	copy(blk[checksumOffset:checksumOffset+checksumSize], fmt.Sprintf("%06o\x00 ", sum))
}

// padding returns the number of zero bytes needed to round size up to the next block.
func padding(size int64) int64 {
	if m := size % BlockSize; m != 0 {
		return BlockSize - m
	}

	return 0
}
