package packager

import "github.com/strrl/headview/internal/attention"

// Segmentation selects which filters a RenderPackage carries. It is either
// NoSegmentation or Segmented.
type Segmentation interface {
	filters() []FilterName
}

// NoSegmentation is a single-sequence input. Only the "all" filter is built.
type NoSegmentation struct{}

func (NoSegmentation) filters() []FilterName {
	return []FilterName{FilterAll}
}

// Segmented is a sentence-pair input where sentence B starts at Boundary.
type Segmented struct {
	Boundary int
}

func (Segmented) filters() []FilterName {
	return allFilters
}

// SegmentationFor maps an optional boundary, as read from flags or config,
// onto a Segmentation.
func SegmentationFor(boundary *int) Segmentation {
	if boundary == nil {
		return NoSegmentation{}
	}
	return Segmented{Boundary: *boundary}
}

func (s Segmented) ranges(n int) (a, b attention.Range) {
	return attention.Range{Start: 0, End: s.Boundary}, attention.Range{Start: s.Boundary, End: n}
}
