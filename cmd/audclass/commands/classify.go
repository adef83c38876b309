// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ik5/audclass"
	"github.com/ik5/audclass/inference"
	"github.com/ik5/audclass/internal/config"
)

type classifyFlags struct {
	models []string
	json   bool
}

func newClassifyCommand(g *globalFlags) *cobra.Command {
	f := &classifyFlags{}

	cmd := &cobra.Command{
		Use:   "classify <file>...",
		Short: "Classify audio files with every configured model",
		Long: `classify runs each file through the preprocessing pipeline and every
configured model, regardless of the serving mode, and prints one line per
model.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			return classify(cmd, cfg, f, args)
		},
	}

	cmd.Flags().StringSliceVarP(&f.models, "model", "m", nil, "only run the named models")
	cmd.Flags().BoolVar(&f.json, "json", false, "print results as JSON")

	return cmd
}

func classify(cmd *cobra.Command, cfg *config.Config, f *classifyFlags, files []string) error {
	specs, err := selectModels(cfg.Models, f.models)
	if err != nil {
		return err
	}

	svc, err := newService(cfg, specs, slog.New(slog.DiscardHandler), nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	results := make(map[string]map[string]any, len(files))
	failed := 0

	for _, path := range files {
		up, err := readUpload(path)
		if err != nil {
			return err
		}

		report, err := svc.Classify(cmd.Context(), up)
		if report == nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err != nil {
			failed++
		}

		if f.json {
			results[path] = reportJSON(report)
			continue
		}
		printReport(out, path, report, len(files) > 1)
	}

	if f.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w in %d of %d files", audclass.ErrNoModelResult, failed, len(files))
	}
	return nil
}

// selectModels narrows configured models to names, keeping config order.
func selectModels(models []config.ModelConfig, names []string) ([]inference.ModelSpec, error) {
	configured := make(map[string]bool, len(models))
	for _, m := range models {
		configured[m.Name] = true
	}
	for _, n := range names {
		if !configured[n] {
			return nil, fmt.Errorf("model %q is not configured", n)
		}
	}

	specs := make([]inference.ModelSpec, 0, len(models))
	for _, m := range models {
		if len(names) > 0 && !slices.Contains(names, m.Name) {
			continue
		}
		specs = append(specs, inference.ModelSpec{Name: m.Name, Path: m.Path})
	}
	if len(specs) == 0 {
		return nil, inference.ErrNoModels
	}
	return specs, nil
}

func readUpload(path string) (audclass.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return audclass.Upload{}, fmt.Errorf("read %s: %w", path, err)
	}
	return audclass.Upload{Filename: filepath.Base(path), Data: data}, nil
}

func printReport(w io.Writer, path string, report *inference.Report, header bool) {
	if header {
		fmt.Fprintf(w, "%s:\n", path)
	}
	for _, o := range report.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "%s Prediction failed: %v\n", o.Model, o.Err)
			continue
		}
		fmt.Fprintf(w, "%s Prediction: %s (%.2f%%)\n", o.Model, o.Result.Label, o.Result.Confidence*100)
	}
}

func reportJSON(report *inference.Report) map[string]any {
	out := make(map[string]any, len(report.Outcomes))
	for _, o := range report.Outcomes {
		if o.Err != nil {
			out[o.Model] = map[string]string{"error": o.Err.Error()}
			continue
		}
		out[o.Model] = o.Result
	}
	return out
}
