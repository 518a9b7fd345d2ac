// Command qatool is the QA checklist: an interactive terminal UI by default,
// plus subcommands for the HTTP API, scripted reports, comment overrides,
// history and catalog seeding.
package main

import (
	"fmt"
	"os"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
