package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strrl/headview/internal/packager"
	"github.com/strrl/headview/internal/pipeline"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Render every view listed in the config file",
	Long: `Render all views from the views section of headview.yaml, several at a
time (see concurrency). The first failing view stops the batch.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	if len(cfg.Views) == 0 {
		return fmt.Errorf("no views configured in %s", configPath)
	}

	p, err := newPipeline("", "", true, cfg.WriteJSON)
	if err != nil {
		return err
	}

	reqs := make([]pipeline.Request, len(cfg.Views))
	for i, v := range cfg.Views {
		reqs[i] = pipeline.Request{
			Name:            v.Name,
			AttentionPath:   v.Attention,
			LeftTokensPath:  v.Tokens,
			RightTokensPath: v.RightTokens,
			Segmentation:    packager.SegmentationFor(v.SentenceBStart),
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Rendering %d views\n", len(reqs))
	results, err := p.ProcessAll(cmd.Context(), reqs)
	if err != nil {
		return err
	}
	for _, stats := range results {
		printStats(cmd.OutOrStdout(), stats)
	}
	return nil
}
