package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robalobadob/crestle/internal/audit"
	"github.com/robalobadob/crestle/internal/catalog"
	"github.com/robalobadob/crestle/internal/raster"
	"github.com/robalobadob/crestle/internal/similarity"
)

var (
	auditJSON    bool
	auditStrict  bool
	auditCanvas  int
	auditWorkers int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check the catalog for unplayable crests",
	Long: `Load every crest in the catalog and report:

  load_failed     crest could not be fetched or decoded
  transparent     crest has no opaque pixels, so it can never be solved
  near_duplicate  two crests in a league with nearly equal perceptual hashes
  ambiguous       guessing one crest solves the other's puzzle`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "print the report as JSON")
	auditCmd.Flags().BoolVar(&auditStrict, "strict", false, "exit non-zero when there are findings")
	auditCmd.Flags().IntVar(&auditCanvas, "canvas", 128, "canvas size for pixel checks")
	auditCmd.Flags().IntVarP(&auditWorkers, "workers", "w", 8, "concurrent crest loads")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return err
	}
	sim, err := cfg.Similarity()
	if err != nil {
		return err
	}
	overrides, err := similarity.LoadOverrides(cfg.OverridesFile)
	if err != nil {
		return err
	}

	report := audit.Run(context.Background(), cat, raster.NewCache(newLoader()), audit.Options{
		Canvas:     auditCanvas,
		Workers:    auditWorkers,
		Similarity: sim,
		Overrides:  overrides,
	})

	out := cmd.OutOrStdout()
	if auditJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "checked %d crests, %d findings\n", report.Checked, len(report.Findings))
		for _, f := range report.Findings {
			fmt.Fprintf(out, "  %-15s %-30s %s", f.Kind, f.League, f.EntityID)
			if f.Other != "" {
				fmt.Fprintf(out, " ~ %s", f.Other)
			}
			if f.Detail != "" {
				fmt.Fprintf(out, "  (%s)", f.Detail)
			}
			fmt.Fprintln(out)
		}
	}

	if auditStrict && len(report.Findings) > 0 {
		return fmt.Errorf("audit found %d problems", len(report.Findings))
	}
	return nil
}
