package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/strrl/headview/internal/packager"
	"github.com/strrl/headview/internal/pipeline"
	"github.com/strrl/headview/internal/render"
	"github.com/strrl/headview/internal/watch"
)

var (
	renderAttention      string
	renderTokens         string
	renderRightTokens    string
	renderSentenceBStart int
	renderNoPrettify     bool
	renderName           string
	renderOut            string
	renderScriptSrc      string
	renderNoJSON         bool
	renderWatch          bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one attention file as a head view page",
	Long: `Load an attention tensor and its token labels, package them per layer and
head, and write <name>.html (plus <name>.params.json) to the output directory.

Attention may be nested JSON, either [layer][1][head][query][key] as models
return it or [layer][head][query][key], or a long-format table with columns
layer, head, query, key, weight in CSV, TSV, Parquet or NDJSON.`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderAttention, "attention", "a", "", "Attention file (.json, .csv, .tsv, .parquet, .jsonl)")
	renderCmd.Flags().StringVarP(&renderTokens, "tokens", "t", "", "Token labels (.json array or one per line)")
	renderCmd.Flags().StringVar(&renderRightTokens, "right-tokens", "", "Key-side token labels (default: --tokens)")
	renderCmd.Flags().IntVarP(&renderSentenceBStart, "sentence-b-start", "b", 0, "Index of the first token of sentence B")
	renderCmd.Flags().BoolVar(&renderNoPrettify, "no-prettify", false, "Keep tokenizer markers such as Ġ in labels")
	renderCmd.Flags().StringVarP(&renderName, "name", "n", "", "View name used for output files (default: attention file name)")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output directory (default: output_dir from config)")
	renderCmd.Flags().StringVar(&renderScriptSrc, "script-src", "", "URL or path of the head view script (default: script_src from config)")
	renderCmd.Flags().BoolVar(&renderNoJSON, "no-json", false, "Do not write the params JSON file")
	renderCmd.Flags().BoolVarP(&renderWatch, "watch", "w", false, "Re-render when an input file changes")

	_ = renderCmd.MarkFlagRequired("attention")
	_ = renderCmd.MarkFlagRequired("tokens")
}

func runRender(cmd *cobra.Command, args []string) error {
	var boundary *int
	if cmd.Flags().Changed("sentence-b-start") {
		b := renderSentenceBStart
		boundary = &b
	}

	name := renderName
	if name == "" {
		base := filepath.Base(renderAttention)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	p, err := newPipeline(renderOut, renderScriptSrc, !renderNoPrettify, !renderNoJSON && cfg.WriteJSON)
	if err != nil {
		return err
	}

	req := pipeline.Request{
		Name:            name,
		AttentionPath:   renderAttention,
		LeftTokensPath:  renderTokens,
		RightTokensPath: renderRightTokens,
		Segmentation:    packager.SegmentationFor(boundary),
	}

	out := cmd.OutOrStdout()
	stats, err := p.Process(cmd.Context(), req)
	if err != nil {
		return err
	}
	printStats(out, stats)

	if !renderWatch {
		return nil
	}

	files := []string{renderAttention, renderTokens}
	if renderRightTokens != "" {
		files = append(files, renderRightTokens)
	}
	w, err := watch.New(files, watch.DefaultDebounce, logger.Named("watch"))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Watching inputs for changes (Ctrl+C to stop)")
	return w.Run(cmd.Context(), func(ctx context.Context) error {
		stats, err := p.Process(ctx, req)
		if err != nil {
			return err
		}
		printStats(out, stats)
		return nil
	})
}

func newPipeline(outDir, scriptSrc string, prettify, writeJSON bool) (*pipeline.Pipeline, error) {
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	if scriptSrc == "" {
		scriptSrc = cfg.ScriptSrc
	}
	logger.Debug("Creating pipeline",
		zap.String("output_dir", outDir),
		zap.String("script_src", scriptSrc),
		zap.Bool("prettify", prettify))

	return pipeline.New(pipeline.Config{
		Options: packager.Options{PrettifyTokens: prettify && cfg.PrettifyTokens},
		Render: render.Config{
			OutputDir: outDir,
			ScriptSrc: scriptSrc,
			WriteJSON: writeJSON,
		},
		Concurrency: cfg.Concurrency,
	}, logger.Named("pipeline"))
}

func printStats(out io.Writer, stats pipeline.Stats) {
	fmt.Fprintf(out, "Rendered %s: %d layers x %d heads over %d positions\n",
		stats.Name, stats.Layers, stats.Heads, stats.Positions)
	filters := make([]string, len(stats.Filters))
	for i, f := range stats.Filters {
		filters[i] = string(f)
	}
	fmt.Fprintf(out, "  Filters: %s\n", strings.Join(filters, ", "))
	fmt.Fprintf(out, "  - %s\n", stats.Output.HTMLPath)
	if stats.Output.JSONPath != "" {
		fmt.Fprintf(out, "  - %s\n", stats.Output.JSONPath)
	}
}
