// Package main is the entry point for the puyobridge CLI.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "puyobridge:", err)
		os.Exit(1)
	}
}
