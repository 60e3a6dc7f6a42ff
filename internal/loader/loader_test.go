package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/strrl/headview/internal/attention"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader(zaptest.NewLogger(t))
	require.NoError(t, err)
	return l
}

func TestLoadAttentionPerLayerJSON(t *testing.T) {
	path := writeFile(t, "attn.json", `[
		[[[[1, 0], [0.5, 0.5]], [[0, 1], [1, 0]]]],
		[[[[0.2, 0.8], [0.6, 0.4]], [[0.3, 0.7], [0.9, 0.1]]]]
	]`)
	stack, err := newTestLoader(t).LoadAttention(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2, 2}, stack.Shape())
	assert.Equal(t, 0.5, stack.At(0, 0, 1, 0))
	assert.Equal(t, 0.9, stack.At(1, 1, 1, 0))
}

func TestLoadAttentionSqueezedJSON(t *testing.T) {
	path := writeFile(t, "attn.json", `[[[[1, 0], [0, 1]]]]`)
	stack, err := newTestLoader(t).LoadAttention(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 2}, stack.Shape())
}

func TestLoadAttentionRaggedJSON(t *testing.T) {
	path := writeFile(t, "attn.json", `[[[[1, 0], [0]]]]`)
	_, err := newTestLoader(t).LoadAttention(context.Background(), path)
	assert.ErrorIs(t, err, attention.ErrMalformedTensor)
}

func TestLoadAttentionRejectsUnknownExtension(t *testing.T) {
	path := writeFile(t, "attn.npy", "")
	_, err := newTestLoader(t).LoadAttention(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported attention file type")
}

func longCSV(layers, heads, n int) string {
	var sb strings.Builder
	sb.WriteString("layer,head,query,key,weight\n")
	for l := 0; l < layers; l++ {
		for h := 0; h < heads; h++ {
			for q := 0; q < n; q++ {
				for k := 0; k < n; k++ {
					w := 0.0
					if q == k {
						w = 1
					}
					fmt.Fprintf(&sb, "%d,%d,%d,%d,%.1f\n", l, h, q, k, w)
				}
			}
		}
	}
	return sb.String()
}

func TestLoadAttentionCSV(t *testing.T) {
	path := writeFile(t, "attn.csv", longCSV(2, 2, 3))
	stack, err := newTestLoader(t).LoadAttention(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 3, 3}, stack.Shape())
	assert.Equal(t, 1.0, stack.At(1, 1, 2, 2))
	assert.Equal(t, 0.0, stack.At(1, 1, 2, 1))
}

func TestLoadAttentionNDJSON(t *testing.T) {
	path := writeFile(t, "attn.jsonl", strings.Join([]string{
		`{"layer": 0, "head": 0, "query": 0, "key": 0, "weight": 0.25}`,
		`{"layer": 0, "head": 0, "query": 0, "key": 1, "weight": 0.75}`,
		`{"layer": 0, "head": 0, "query": 1, "key": 0, "weight": 0.5}`,
		`{"layer": 0, "head": 0, "query": 1, "key": 1, "weight": 0.5}`,
	}, "\n"))
	stack, err := newTestLoader(t).LoadAttention(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 2}, stack.Shape())
	assert.Equal(t, 0.75, stack.At(0, 0, 0, 1))
}

func TestLoadAttentionCSVMissingCells(t *testing.T) {
	path := writeFile(t, "attn.csv", "layer,head,query,key,weight\n0,0,0,0,1.0\n0,0,1,1,1.0\n")
	_, err := newTestLoader(t).LoadAttention(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, attention.ErrMalformedTensor)
	assert.Contains(t, err.Error(), "has 2 rows")
}

func TestLoadAttentionCSVDuplicateCells(t *testing.T) {
	path := writeFile(t, "attn.csv", "layer,head,query,key,weight\n0,0,0,0,1.0\n0,0,0,0,1.0\n0,0,1,1,1.0\n0,0,1,0,0.0\n")
	_, err := newTestLoader(t).LoadAttention(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, attention.ErrMalformedTensor)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadTokensJSON(t *testing.T) {
	path := writeFile(t, "tokens.json", `["[CLS]", "Ġthe", "[SEP]"]`)
	labels, err := newTestLoader(t).LoadTokens(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"[CLS]", "Ġthe", "[SEP]"}, labels)
}

func TestLoadTokensText(t *testing.T) {
	path := writeFile(t, "tokens.txt", "[CLS]\r\nthe\n\ncat\n")
	labels, err := newTestLoader(t).LoadTokens(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"[CLS]", "the", "", "cat"}, labels)
}

func TestLoadTokensMissingFile(t *testing.T) {
	_, err := newTestLoader(t).LoadTokens(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
