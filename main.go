// Package main is the entry point for the rtuport command.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/rtuport/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
