package attention

import "fmt"

// FromNested builds a Stack from a [layer][head][query][key] array. Every
// layer must carry the same number of heads and every head the same
// query x key matrix.
func FromNested(v [][][][]float64) (*Stack, error) {
	if len(v) == 0 {
		return nil, malformed("", "no layers")
	}
	heads := len(v[0])
	if heads == 0 {
		return nil, malformed("[0]", "no heads")
	}
	queries := len(v[0][0])
	keys := 0
	if queries > 0 {
		keys = len(v[0][0][0])
	}

	data := make([]float64, 0, len(v)*heads*queries*keys)
	for l, layer := range v {
		if len(layer) != heads {
			return nil, malformed(fmt.Sprintf("[%d]", l), "expected %d heads, got %d", heads, len(layer))
		}
		for h, head := range layer {
			if len(head) != queries {
				return nil, malformed(fmt.Sprintf("[%d][%d]", l, h), "expected %d query rows, got %d", queries, len(head))
			}
			for q, row := range head {
				if len(row) != keys {
					return nil, malformed(fmt.Sprintf("[%d][%d][%d]", l, h, q), "expected %d key columns, got %d", keys, len(row))
				}
				data = append(data, row...)
			}
		}
	}
	return New(data, len(v), heads, queries, keys)
}

// FromLayers builds a Stack from one [batch][head][query][key] tensor per
// layer, the shape attention comes out of a model in. The batch axis must
// have size 1 and is squeezed away.
func FromLayers(layers [][][][][]float64) (*Stack, error) {
	if len(layers) == 0 {
		return nil, malformed("", "no layers")
	}
	squeezed := make([][][][]float64, len(layers))
	for l, batch := range layers {
		if len(batch) != 1 {
			return nil, malformed(fmt.Sprintf("[%d]", l), "batch size must be 1, got %d", len(batch))
		}
		squeezed[l] = batch[0]
	}
	return FromNested(squeezed)
}
