// Package main provides the entry point for the assist CLI.
package main

import (
	"fmt"
	"os"

	"github.com/grantline/assist/cmd/assist/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
