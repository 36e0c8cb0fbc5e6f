package main

import (
	"fmt"
	"os"

	"github.com/arkus7/migrate-bb-to-gh/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the migrate-bb-to-gh command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
