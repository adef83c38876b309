// SPDX-License-Identifier: EPL-2.0

// Command audclass classifies urban sound clips.
//
// Usage:
//
//	audclass [--config file] <command> [args]
//
// Commands:
//
//	serve      - run the HTTP classification service
//	classify   - classify local files with every configured model
//	normalize  - write the normalized 4 s mono waveform as WAV
//	features   - print the MFCC feature matrix of a file
//	version    - print build information
package main

import (
	"fmt"
	"os"

	"github.com/ik5/audclass/cmd/audclass/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
