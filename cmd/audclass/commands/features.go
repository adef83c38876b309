// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ik5/audclass/internal/config"
)

func newFeaturesCommand(g *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "features <file>",
		Short: "Print the MFCC matrix extracted from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			return features(cmd, cfg, args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full matrix as JSON")

	return cmd
}

func features(cmd *cobra.Command, cfg *config.Config, path string, asJSON bool) error {
	svc, err := newService(cfg, nil, slog.New(slog.DiscardHandler), nil)
	if err != nil {
		return err
	}

	up, err := readUpload(path)
	if err != nil {
		return err
	}

	fm, err := svc.Preprocess(cmd.Context(), up)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if err := json.NewEncoder(out).Encode(fm); err != nil {
			return fmt.Errorf("encode features: %w", err)
		}
		return nil
	}

	frames, coeffs := fm.Dims()
	fmt.Fprintf(out, "%s: %d frames x %d coefficients\n", path, frames, coeffs)
	return nil
}
