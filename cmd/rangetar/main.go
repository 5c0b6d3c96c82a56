// Command rangetar presents a directory as a virtual, seekable tar archive.
package main

import (
	"context"
	"log"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/rangetar/internal/cmd"
	"github.com/nguyengg/rangetar/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	p, err := cmd.NewParser()
	if err != nil {
		log.Printf("create parser error: %v", err)
		return 1
	}

	// options from the nearest .rangetar are applied first so that command-line flags override them.
	if _, err = config.Load(context.Background(), p); err != nil {
		log.Printf("load %s error: %v", config.Name, err)
	} else {
		_, err = p.Parse()
	}

	code := exitCode(err)
	if code != 0 {
		holdConsole()
	}

	return code
}

// exitCode is 0 on success or when only the help message was written, 1 otherwise.
func exitCode(err error) int {
	if err == nil || flags.WroteHelp(err) {
		return 0
	}

	return 1
}
