//go:build windows

package main

import (
	"bufio"
	"fmt"
	"os"

	"golang.org/x/term"
)

// holdConsole keeps a console window that was opened just for this process around long enough to read the error.
func holdConsole() {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return
	}

	_, _ = fmt.Fprintf(os.Stderr, "Press Enter to close the console\n")
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
}
