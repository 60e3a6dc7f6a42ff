package packager

import (
	"io"

	"github.com/goccy/go-json"
)

type FilterName string

const (
	FilterAll FilterName = "all"
	FilterAA  FilterName = "aa"
	FilterAB  FilterName = "ab"
	FilterBA  FilterName = "ba"
	FilterBB  FilterName = "bb"
)

var allFilters = []FilterName{FilterAll, FilterAA, FilterAB, FilterBA, FilterBB}

var filterLabels = map[FilterName]string{
	FilterAll: "All",
	FilterAA:  "Sentence A -> Sentence A",
	FilterAB:  "Sentence A -> Sentence B",
	FilterBA:  "Sentence B -> Sentence A",
	FilterBB:  "Sentence B -> Sentence B",
}

// Label is the human readable name a renderer shows for the filter.
func (f FilterName) Label() string {
	return filterLabels[f]
}

// FilterEntry is one view of the attention: Attn is [layer][head][query][key]
// with len(LeftText) query rows and len(RightText) key columns.
type FilterEntry struct {
	Attn      [][][][]float64 `json:"attn"`
	LeftText  []string        `json:"left_text"`
	RightText []string        `json:"right_text"`
}

// RenderPackage is the data handed to the head view renderer. Entries share
// no memory with the stack and labels they were built from.
type RenderPackage struct {
	entries       map[FilterName]FilterEntry
	filters       []FilterName
	defaultFilter FilterName
}

type wirePackage struct {
	Attention     map[FilterName]FilterEntry `json:"attention"`
	DefaultFilter FilterName                 `json:"default_filter"`
}

func (p *RenderPackage) Entry(name FilterName) (FilterEntry, bool) {
	e, ok := p.entries[name]
	return e, ok
}

// Filters lists the filters present, in display order.
func (p *RenderPackage) Filters() []FilterName {
	return append([]FilterName(nil), p.filters...)
}

func (p *RenderPackage) DefaultFilter() FilterName {
	return p.defaultFilter
}

// Segmented reports whether the sentence-pair filters are present, which is
// what decides if the renderer shows the filter selector.
func (p *RenderPackage) Segmented() bool {
	_, ok := p.entries[FilterAA]
	return ok
}

func (p *RenderPackage) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePackage{
		Attention:     p.entries,
		DefaultFilter: p.defaultFilter,
	})
}

func (p *RenderPackage) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(wirePackage{
		Attention:     p.entries,
		DefaultFilter: p.defaultFilter,
	})
}
