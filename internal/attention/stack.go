package attention

import "fmt"

const (
	axisLayer = iota
	axisHead
	axisQuery
	axisKey
)

// Stack holds attention weights indexed as [layer][head][query][key] in a
// flat row-major slice. A Stack is never mutated after construction.
type Stack struct {
	data    []float64
	shape   [4]int
	strides [4]int
}

// Range is a half-open interval [Start, End) along a position axis.
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

func New(data []float64, layers, heads, queries, keys int) (*Stack, error) {
	if layers < 1 {
		return nil, malformed("", "need at least one layer, got %d", layers)
	}
	if heads < 1 {
		return nil, malformed("", "need at least one head, got %d", heads)
	}
	if queries < 0 || keys < 0 {
		return nil, malformed("", "negative position count %dx%d", queries, keys)
	}
	total := layers * heads * queries * keys
	if total != len(data) {
		return nil, malformed("", "shape [%d %d %d %d] needs %d values, got %d", layers, heads, queries, keys, total, len(data))
	}
	shape := [4]int{layers, heads, queries, keys}
	return &Stack{
		data:    append([]float64(nil), data...),
		shape:   shape,
		strides: makeStrides(shape),
	}, nil
}

func makeStrides(shape [4]int) [4]int {
	var strides [4]int
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

func (s *Stack) Layers() int  { return s.shape[axisLayer] }
func (s *Stack) Heads() int   { return s.shape[axisHead] }
func (s *Stack) Queries() int { return s.shape[axisQuery] }
func (s *Stack) Keys() int    { return s.shape[axisKey] }

// Shape returns [layers, heads, queries, keys].
func (s *Stack) Shape() []int {
	shape := s.shape
	return shape[:]
}

func (s *Stack) Square() bool {
	return s.shape[axisQuery] == s.shape[axisKey]
}

func (s *Stack) At(layer, head, query, key int) float64 {
	return s.data[s.offset(layer, head, query, key)]
}

func (s *Stack) offset(layer, head, query, key int) int {
	return layer*s.strides[axisLayer] + head*s.strides[axisHead] + query*s.strides[axisQuery] + key*s.strides[axisKey]
}

// Slice returns a copy of the stack restricted to rows on the query axis and
// cols on the key axis. Layers and heads are kept whole.
func (s *Stack) Slice(rows, cols Range) (*Stack, error) {
	if err := checkRange("query", rows, s.shape[axisQuery]); err != nil {
		return nil, err
	}
	if err := checkRange("key", cols, s.shape[axisKey]); err != nil {
		return nil, err
	}
	shape := [4]int{s.shape[axisLayer], s.shape[axisHead], rows.Len(), cols.Len()}
	out := &Stack{
		data:    make([]float64, 0, shape[0]*shape[1]*shape[2]*shape[3]),
		shape:   shape,
		strides: makeStrides(shape),
	}
	for l := 0; l < shape[0]; l++ {
		for h := 0; h < shape[1]; h++ {
			for q := rows.Start; q < rows.End; q++ {
				start := s.offset(l, h, q, cols.Start)
				out.data = append(out.data, s.data[start:start+cols.Len()]...)
			}
		}
	}
	return out, nil
}

func checkRange(axis string, r Range, size int) error {
	if r.Start < 0 || r.End < r.Start || r.End > size {
		return fmt.Errorf("%s range [%d, %d) out of bounds for size %d", axis, r.Start, r.End, size)
	}
	return nil
}

// Nested copies the stack into a freshly allocated [layer][head][query][key]
// array. Empty axes come back as empty, non-nil slices.
func (s *Stack) Nested() [][][][]float64 {
	out := make([][][][]float64, s.shape[axisLayer])
	for l := range out {
		heads := make([][][]float64, s.shape[axisHead])
		for h := range heads {
			rows := make([][]float64, s.shape[axisQuery])
			for q := range rows {
				start := s.offset(l, h, q, 0)
				rows[q] = append(make([]float64, 0, s.shape[axisKey]), s.data[start:start+s.shape[axisKey]]...)
			}
			heads[h] = rows
		}
		out[l] = heads
	}
	return out
}
