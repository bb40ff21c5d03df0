// Command importer loads survey sheets into a project from the command line
// and writes exports and blank templates.
package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(run())
}

func run() int {
	root, release := newRootCmd(openServices)
	defer release()

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
