// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"github.com/spf13/cobra"

	"github.com/ik5/audclass/internal/config"
)

type globalFlags struct {
	configPath string
	envFiles   []string
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "audclass",
		Short: "Urban sound classification",
		Long: `audclass sorts short audio clips into the ten UrbanSound8K classes
with pre-trained LSTM and bidirectional LSTM models.

Configuration comes from a YAML file (--config), AUDCLASS_* environment
variables and a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "path to the YAML configuration file")
	root.PersistentFlags().StringSliceVar(&g.envFiles, "env-file", nil, "env files to load (default ./.env when present)")

	root.AddCommand(
		newServeCommand(g),
		newClassifyCommand(g),
		newNormalizeCommand(g),
		newFeaturesCommand(g),
		newVersionCommand(),
	)

	return root
}

// Execute runs the command line.
func Execute() error {
	return NewRootCommand().Execute()
}

func (g *globalFlags) load() (*config.Config, error) {
	return config.Load(g.configPath, g.envFiles...)
}
