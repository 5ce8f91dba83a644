// Package main provides the entry point for the swissknife CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/swissknife/cmd/swissknife/commands"
)

func main() {
	err := commands.NewRootCommand(commands.NewApp).Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
