package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/robalobadob/crestle/internal/daily"
)

var (
	dailyDate   string
	dailyReveal bool
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "List leagues and today's puzzle for each",
	Long: `List every league in the catalog with its team count and the index of
the day's target. The same date and league always give the same target.

Examples:
  # Today's puzzles
  crestle daily

  # Puzzles for a given date, naming the answers
  crestle daily --date 2025-01-15 --reveal`,
	Args: cobra.NoArgs,
	RunE: runDaily,
}

func init() {
	dailyCmd.Flags().StringVar(&dailyDate, "date", "", "date as YYYY-MM-DD (default: today in DAILY_TZ)")
	dailyCmd.Flags().BoolVar(&dailyReveal, "reveal", false, "print each day's answer")
}

func runDaily(cmd *cobra.Command, args []string) error {
	engine, err := newEngine(false)
	if err != nil {
		return err
	}
	date := engine.Today()
	if dailyDate != "" {
		if _, err := time.Parse(daily.DateLayout, dailyDate); err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		date = dailyDate
	}

	out := cmd.OutOrStdout()
	cat := engine.Catalog()
	fmt.Fprintf(out, "Puzzles for %s\n\n", date)
	for _, lg := range cat.Leagues() {
		idx := daily.Index(date, lg.Key, lg.Teams)
		fmt.Fprintf(out, "  %-36s %-40s %3d teams  #%d", lg.Key, lg.Label, lg.Teams, idx)
		if dailyReveal {
			fmt.Fprintf(out, "  %s", engine.DisplayName(cat.TargetPool(lg.Key)[idx]))
		}
		fmt.Fprintln(out)
	}
	return nil
}
