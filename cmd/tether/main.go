// Package main implements the tether command-line tool: a bridge between
// chat channels and a single interactive terminal agent running in tmux.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
