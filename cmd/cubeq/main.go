// Package main is the entry point for the cubeq binary.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/cubeq/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		// ExitErrors have already been written in the requested format.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
