// Package packager turns an attention stack and its token labels into the
// filter-keyed structure the head view renderer consumes.
package packager

import (
	"fmt"

	"github.com/strrl/headview/internal/attention"
	"github.com/strrl/headview/internal/tokens"
)

type Options struct {
	// PrettifyTokens strips tokenizer markers such as Ġ from labels.
	PrettifyTokens bool
}

func DefaultOptions() Options {
	return Options{PrettifyTokens: true}
}

// Build validates the inputs and assembles a RenderPackage. left holds the
// query-side labels and right the key-side labels. Nothing is returned on
// error.
func Build(stack *attention.Stack, left, right []string, seg Segmentation, opts Options) (*RenderPackage, error) {
	if len(left) != len(right) {
		return nil, &LengthMismatchError{Left: len(left), Right: len(right)}
	}
	if stack == nil {
		return nil, &attention.MalformedTensorError{Reason: "no attention stack"}
	}
	if stack.Keys() != len(left) {
		return nil, &ShapeMismatchError{Attention: stack.Keys(), Tokens: len(left)}
	}
	if !stack.Square() {
		return nil, &attention.MalformedTensorError{
			Reason: fmt.Sprintf("attention matrices must be square, got shape %v", stack.Shape()),
		}
	}
	if seg == nil {
		seg = NoSegmentation{}
	}
	n := len(left)
	if s, ok := seg.(Segmented); ok && (s.Boundary < 0 || s.Boundary > n) {
		return nil, &BoundaryOutOfRangeError{Boundary: s.Boundary, Positions: n}
	}

	if opts.PrettifyTokens {
		left = tokens.PrettifyAll(left)
		right = tokens.PrettifyAll(right)
	}

	whole := attention.Range{Start: 0, End: n}
	spans := map[FilterName][2]attention.Range{FilterAll: {whole, whole}}
	if s, ok := seg.(Segmented); ok {
		a, b := s.ranges(n)
		spans[FilterAA] = [2]attention.Range{a, a}
		spans[FilterAB] = [2]attention.Range{a, b}
		spans[FilterBA] = [2]attention.Range{b, a}
		spans[FilterBB] = [2]attention.Range{b, b}
	}

	pkg := &RenderPackage{
		entries:       make(map[FilterName]FilterEntry, len(spans)),
		filters:       seg.filters(),
		defaultFilter: FilterAll,
	}
	for _, name := range pkg.filters {
		span := spans[name]
		entry, err := buildEntry(stack, left, right, span[0], span[1])
		if err != nil {
			return nil, err
		}
		pkg.entries[name] = entry
	}
	return pkg, nil
}

func buildEntry(stack *attention.Stack, left, right []string, rows, cols attention.Range) (FilterEntry, error) {
	sub, err := stack.Slice(rows, cols)
	if err != nil {
		return FilterEntry{}, err
	}
	return FilterEntry{
		Attn:      sub.Nested(),
		LeftText:  append(make([]string, 0, rows.Len()), left[rows.Start:rows.End]...),
		RightText: append(make([]string, 0, cols.Len()), right[cols.Start:cols.End]...),
	}, nil
}
