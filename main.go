// Command vibecad compiles natural-language part descriptions into D-Files
// and executes them against a CAD backend.
package main

import (
	"errors"
	"os"

	"github.com/pterm/pterm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			pterm.Error.Println(err)
		}
		os.Exit(1)
	}
}
