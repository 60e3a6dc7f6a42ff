// Package tokens cleans sub-word tokenizer labels for display.
package tokens

import "strings"

// markers maps tokenizer artifacts to their display form: byte-level BPE and
// SentencePiece word-boundary markers become a space, and the BPE end-of-word
// suffix is dropped.
var markers = []struct {
	from string
	to   string
}{
	{"Ġ", " "},
	{"▁", " "},
	{"</w>", ""},
}

var replacer = func() *strings.Replacer {
	pairs := make([]string, 0, len(markers)*2)
	for _, m := range markers {
		pairs = append(pairs, m.from, m.to)
	}
	return strings.NewReplacer(pairs...)
}()

// Prettify strips tokenizer markers from a single label. Deleting a marker
// can splice a new one together ("</</w>w>"), so replacement runs until the
// label is stable.
func Prettify(label string) string {
	for {
		next := replacer.Replace(label)
		if next == label {
			return next
		}
		label = next
	}
}

// PrettifyAll returns a new slice with every label cleaned. Length and order
// are preserved.
func PrettifyAll(labels []string) []string {
	out := make([]string, len(labels))
	for i, label := range labels {
		out[i] = Prettify(label)
	}
	return out
}
