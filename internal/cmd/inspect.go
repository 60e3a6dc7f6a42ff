package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/strrl/headview/internal/packager"
	"github.com/strrl/headview/internal/pipeline"
	"github.com/strrl/headview/internal/summary"
)

var (
	inspectAttention      string
	inspectTokens         string
	inspectRightTokens    string
	inspectSentenceBStart int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print shape and per-head attention statistics",
	Long: `Package an attention file the same way render does, without writing any
output, and print per-filter, per-head totals and peak weights. Without
--tokens, positions are labelled by index.`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectAttention, "attention", "a", "", "Attention file")
	inspectCmd.Flags().StringVarP(&inspectTokens, "tokens", "t", "", "Token labels")
	inspectCmd.Flags().StringVar(&inspectRightTokens, "right-tokens", "", "Key-side token labels")
	inspectCmd.Flags().IntVarP(&inspectSentenceBStart, "sentence-b-start", "b", 0, "Index of the first token of sentence B")

	_ = inspectCmd.MarkFlagRequired("attention")
}

func runInspect(cmd *cobra.Command, args []string) error {
	var boundary *int
	if cmd.Flags().Changed("sentence-b-start") {
		b := inspectSentenceBStart
		boundary = &b
	}

	p, err := newPipeline("", "", cfg.PrettifyTokens, false)
	if err != nil {
		return err
	}

	pkg, stack, err := p.Package(cmd.Context(), pipeline.Request{
		AttentionPath:   inspectAttention,
		LeftTokensPath:  inspectTokens,
		RightTokensPath: inspectRightTokens,
		Segmentation:    packager.SegmentationFor(boundary),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Attention: %d layers, %d heads, %d positions\n", stack.Layers(), stack.Heads(), stack.Queries())
	fmt.Fprintf(out, "Default filter: %s\n", pkg.DefaultFilter())

	for _, fs := range summary.Summarize(pkg) {
		fmt.Fprintf(out, "\n[%s] %s (%d x %d)\n", fs.Filter, fs.Filter.Label(), fs.Rows, fs.Cols)
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "LAYER\tHEAD\tMASS\tROW MEAN\tPEAK\tAT")
		for _, h := range fs.Heads {
			at := "-"
			if h.HasPeak {
				at = fmt.Sprintf("%d->%d", h.PeakQuery, h.PeakKey)
			}
			fmt.Fprintf(tw, "%d\t%d\t%.4f\t%.4f\t%.4f\t%s\n", h.Layer, h.Head, h.Mass, h.RowMean, h.Peak, at)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if best, ok := fs.Strongest(); ok && fs.Filter != packager.FilterAll {
			fmt.Fprintf(out, "Strongest head: layer %d head %d (mass %.4f)\n", best.Layer, best.Head, best.Mass)
		}
	}
	return nil
}
