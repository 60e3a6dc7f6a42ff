package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/strrl/headview/internal/attention"
	"github.com/strrl/headview/internal/loader"
	"github.com/strrl/headview/internal/packager"
	"github.com/strrl/headview/internal/render"
)

type Pipeline struct {
	loader      *loader.Loader
	generator   *render.Generator
	options     packager.Options
	concurrency int
	logger      *zap.Logger
}

type Config struct {
	Options     packager.Options
	Render      render.Config
	Concurrency int
}

// Request names the inputs of one view. RightTokensPath defaults to
// LeftTokensPath, which is the usual case of self-attention over one input.
// With no LeftTokensPath positions are labelled by index.
type Request struct {
	Name            string
	AttentionPath   string
	LeftTokensPath  string
	RightTokensPath string
	Segmentation    packager.Segmentation
}

type Stats struct {
	Name      string
	Layers    int
	Heads     int
	Positions int
	Filters   []packager.FilterName
	Output    render.Output
}

func New(cfg Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	l, err := loader.NewLoader(logger.Named("loader"))
	if err != nil {
		return nil, fmt.Errorf("failed to create loader: %w", err)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Pipeline{
		loader:      l,
		generator:   render.NewGenerator(cfg.Render),
		options:     cfg.Options,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// Package loads the request inputs and builds the render package without
// writing anything.
func (p *Pipeline) Package(ctx context.Context, req Request) (*packager.RenderPackage, *attention.Stack, error) {
	stack, err := p.loader.LoadAttention(ctx, req.AttentionPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load attention: %w", err)
	}

	var left []string
	if req.LeftTokensPath == "" {
		left = positionLabels(stack.Queries())
	} else {
		left, err = p.loader.LoadTokens(req.LeftTokensPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load tokens: %w", err)
		}
	}

	right := left
	if req.RightTokensPath != "" && req.RightTokensPath != req.LeftTokensPath {
		right, err = p.loader.LoadTokens(req.RightTokensPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load right tokens: %w", err)
		}
	}

	pkg, err := packager.Build(stack, left, right, req.Segmentation, p.options)
	if err != nil {
		return nil, nil, err
	}
	return pkg, stack, nil
}

func (p *Pipeline) Process(ctx context.Context, req Request) (Stats, error) {
	stats := Stats{Name: req.Name}

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	pkg, stack, err := p.Package(ctx, req)
	if err != nil {
		return stats, fmt.Errorf("view %s: %w", req.Name, err)
	}
	stats.Layers = stack.Layers()
	stats.Heads = stack.Heads()
	stats.Positions = stack.Queries()
	stats.Filters = pkg.Filters()

	out, err := p.generator.Generate(req.Name, pkg)
	if err != nil {
		return stats, fmt.Errorf("view %s: %w", req.Name, err)
	}
	stats.Output = out

	p.logger.Info("Rendered head view",
		zap.String("view", req.Name),
		zap.String("view_id", out.ViewID),
		zap.Int("layers", stats.Layers),
		zap.Int("heads", stats.Heads),
		zap.Int("positions", stats.Positions),
		zap.Bool("segmented", pkg.Segmented()),
		zap.String("html", out.HTMLPath))

	return stats, nil
}

// ProcessAll renders every request, at most Config.Concurrency at a time. The
// first failure cancels the remaining requests. Requests whose names map to
// the same output file are rejected before anything is written.
func (p *Pipeline) ProcessAll(ctx context.Context, reqs []Request) ([]Stats, error) {
	seen := make(map[string]string, len(reqs))
	for _, req := range reqs {
		base := render.FileBase(req.Name)
		if prev, dup := seen[base]; dup {
			return nil, fmt.Errorf("views %q and %q both write %s.html", prev, req.Name, base)
		}
		seen[base] = req.Name
	}

	results := make([]Stats, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			stats, err := p.Process(ctx, req)
			if err != nil {
				return err
			}
			results[i] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func positionLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}
	return labels
}
