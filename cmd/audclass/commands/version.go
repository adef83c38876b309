// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set through -ldflags "-X github.com/ik5/audclass/cmd/audclass/commands.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "audclass %s (commit %s, built %s, %s)\n",
				Version, Commit, Date, runtime.Version())
		},
	}
}
