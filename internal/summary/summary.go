package summary

import (
	"github.com/strrl/headview/internal/packager"
)

// HeadSummary aggregates one [query][key] matrix of a filter entry.
type HeadSummary struct {
	Layer     int
	Head      int
	Mass      float64
	RowMean   float64
	Peak      float64
	PeakQuery int
	PeakKey   int
	HasPeak   bool
}

type FilterSummary struct {
	Filter packager.FilterName
	Rows   int
	Cols   int
	Heads  []HeadSummary
}

// Summarize walks every filter of pkg in display order.
func Summarize(pkg *packager.RenderPackage) []FilterSummary {
	var out []FilterSummary
	for _, name := range pkg.Filters() {
		entry, ok := pkg.Entry(name)
		if !ok {
			continue
		}
		out = append(out, summarizeEntry(name, entry))
	}
	return out
}

func summarizeEntry(name packager.FilterName, entry packager.FilterEntry) FilterSummary {
	fs := FilterSummary{
		Filter: name,
		Rows:   len(entry.LeftText),
		Cols:   len(entry.RightText),
	}
	for l, layer := range entry.Attn {
		for h, head := range layer {
			fs.Heads = append(fs.Heads, summarizeHead(l, h, head))
		}
	}
	return fs
}

func summarizeHead(layer, head int, m [][]float64) HeadSummary {
	hs := HeadSummary{Layer: layer, Head: head}
	for q, row := range m {
		for k, w := range row {
			hs.Mass += w
			if !hs.HasPeak || w > hs.Peak {
				hs.Peak = w
				hs.PeakQuery = q
				hs.PeakKey = k
				hs.HasPeak = true
			}
		}
	}
	if len(m) > 0 {
		hs.RowMean = hs.Mass / float64(len(m))
	}
	return hs
}

// Strongest returns the head with the highest mass in fs, which for a cross
// segment filter is the head that attends most across the sentence boundary.
func (fs FilterSummary) Strongest() (HeadSummary, bool) {
	var best HeadSummary
	found := false
	for _, h := range fs.Heads {
		if !found || h.Mass > best.Mass {
			best = h
			found = true
		}
	}
	return best, found
}
