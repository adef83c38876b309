// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ik5/audclass/formats/wav"
	"github.com/ik5/audclass/internal/config"
)

func newNormalizeCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <input> <output.wav>",
		Short: "Write the normalized waveform the models see",
		Long: `normalize decodes the input, resamples it, mixes it to mono and pads or
trims it to the configured duration, then writes it as 16-bit mono WAV.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			return normalize(cmd, cfg, args[0], args[1])
		},
	}
}

func normalize(cmd *cobra.Command, cfg *config.Config, in, out string) error {
	svc, err := newService(cfg, nil, slog.New(slog.DiscardHandler), nil)
	if err != nil {
		return err
	}

	up, err := readUpload(in)
	if err != nil {
		return err
	}

	w, err := svc.Normalize(cmd.Context(), up)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()

	if err := wav.WriteWAV16(f, w.SampleRate, w.PCM16()); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d samples at %d Hz (%s)\n",
		out, len(w.Samples), w.SampleRate, w.Duration())
	return f.Close()
}
