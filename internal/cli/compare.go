package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/robalobadob/crestle/internal/raster"
	"github.com/robalobadob/crestle/internal/reveal"
	"github.com/robalobadob/crestle/internal/tui"
)

var compareNoImage bool

var compareCmd = &cobra.Command{
	Use:   "compare <target> <guess>",
	Short: "Score one crest against another",
	Long: `Score a guess crest against a target crest with the configured colour
comparison and show which parts of the target it reveals. Either argument
may be a file path or an http(s) URL.

Examples:
  crestle compare crests/boca.png crests/river.png
  crestle compare --similarity hsl target.webp guess.png`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().BoolVar(&compareNoImage, "no-image", false, "print only the score")
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	loader := newLoader()

	target, err := loader.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	guess, err := loader.Load(ctx, args[1])
	if err != nil {
		return fmt.Errorf("guess: %w", err)
	}
	sim, err := cfg.Similarity()
	if err != nil {
		return err
	}

	w, h := raster.CanvasSize(target, cfg.MaxCanvas)
	rz := raster.ContainRasterizer{}
	sess := reveal.NewSession(args[0], rz.Rasterize(target, w, h), sim)
	mask := sess.NewMask()
	pct, err := sess.ApplyGuess(rz.Rasterize(guess, w, h), mask)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "mode %s  canvas %dx%d  opaque %d  revealed %d\n", sim.Mode, w, h, sess.Opaque(), mask.Count())
	fmt.Fprintf(out, "hit %.1f%%", pct)
	if reveal.IsWin(pct) {
		fmt.Fprint(out, "  (win)")
	}
	fmt.Fprintln(out)

	if !compareNoImage {
		cols, rows := 80, 24
		if tw, th, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			cols, rows = tw, th-3
		}
		fmt.Fprint(out, tui.Render(reveal.Compose(sess.Target(), mask), cols, rows))
	}
	return nil
}
