// Package config finds and applies the optional .rangetar ini file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
)

// Name is the name of the configuration file.
const Name = ".rangetar"

// Find traverses the directory hierarchy upwards from dir to find the first regular file named Name.
//
// An empty string is returned if no such file exists.
func Find(ctx context.Context, dir string) (string, error) {
	cur, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf(`resolve "%s" error: %w`, dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		path := filepath.Join(cur, Name)
		switch fi, err := os.Stat(path); {
		case err == nil && !fi.IsDir():
			return path, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf(`stat "%s" error: %w`, path, err)
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return "", nil
		}
		cur = parent
	}
}

// Apply parses the ini file at path into the options of p.
//
// Sections are named after the parser's groups ("Global Options") and commands ("upload", "serve", etc.). Apply must
// be called before p.Parse so that command-line flags take precedence.
func Apply(p *flags.Parser, path string) error {
	if err := flags.NewIniParser(p).ParseFile(path); err != nil {
		return fmt.Errorf(`parse "%s" error: %w`, path, err)
	}

	return nil
}

// Load is a convenient method to Find the nearest configuration file from the working directory then Apply it.
//
// The path of the applied file is returned, or an empty string if none was found.
func Load(ctx context.Context, p *flags.Parser) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory error: %w", err)
	}

	path, err := Find(ctx, wd)
	if err != nil || path == "" {
		return "", err
	}

	return path, Apply(p, path)
}
