package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strrl/headview/internal/attention"
	"github.com/strrl/headview/internal/packager"
)

func buildPackage(t *testing.T, toks []string, seg packager.Segmentation) *packager.RenderPackage {
	t.Helper()
	n := len(toks)
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	stack, err := attention.New(data, 1, 1, n, n)
	require.NoError(t, err)
	pkg, err := packager.Build(stack, toks, toks, seg, packager.DefaultOptions())
	require.NoError(t, err)
	return pkg
}

func newTestGenerator(dir string, writeJSON bool) *Generator {
	g := NewGenerator(Config{OutputDir: dir, ScriptSrc: "static/head_view.js", WriteJSON: writeJSON})
	g.newID = func() string { return "test-view" }
	return g
}

func TestGenerateSegmentedPage(t *testing.T) {
	dir := t.TempDir()
	pkg := buildPackage(t, []string{"[CLS]", "a", "[SEP]", "b"}, packager.Segmented{Boundary: 2})

	out, err := newTestGenerator(dir, true).Generate("Pair Example", pkg)
	require.NoError(t, err)
	assert.Equal(t, "test-view", out.ViewID)
	assert.Equal(t, filepath.Join(dir, "pair-example.html"), out.HTMLPath)
	assert.Equal(t, filepath.Join(dir, "pair-example.params.json"), out.JSONPath)

	html, err := os.ReadFile(out.HTMLPath)
	require.NoError(t, err)
	page := string(html)
	assert.Contains(t, page, `<select id="layer">`)
	assert.Contains(t, page, `<select id="filter">`)
	assert.Contains(t, page, `<option value="ab">Sentence A -&gt; Sentence B</option>`)
	assert.Contains(t, page, `id="headview-test-view"`)
	assert.Contains(t, page, `<script src="static/head_view.js"></script>`)
	assert.Contains(t, page, `window.params = {"attention":`)

	params, err := os.ReadFile(out.JSONPath)
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(params, &decoded))
	assert.JSONEq(t, `"all"`, string(decoded["default_filter"]))
}

func TestGenerateSingleSequencePage(t *testing.T) {
	dir := t.TempDir()
	pkg := buildPackage(t, []string{"x", "y"}, packager.NoSegmentation{})

	out, err := newTestGenerator(dir, false).Generate("single", pkg)
	require.NoError(t, err)
	assert.Empty(t, out.JSONPath)

	html, err := os.ReadFile(out.HTMLPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), `<select id="layer">`)
	assert.NotContains(t, string(html), `id="filter"`)

	_, err = os.Stat(filepath.Join(dir, "single.params.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateEscapesLabels(t *testing.T) {
	dir := t.TempDir()
	pkg := buildPackage(t, []string{"</script>", "<b>"}, packager.NoSegmentation{})

	out, err := newTestGenerator(dir, false).Generate("escape", pkg)
	require.NoError(t, err)
	html, err := os.ReadFile(out.HTMLPath)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(html), "</script>\n<script src"))
	assert.NotContains(t, string(html), `"</script>"`)
}

func TestNewGeneratorDefaults(t *testing.T) {
	g := NewGenerator(Config{OutputDir: t.TempDir()})
	assert.Equal(t, "head_view.js", g.scriptSrc)
	assert.NotEmpty(t, g.newID())
	assert.NotEqual(t, g.newID(), g.newID())
}

func TestFileBase(t *testing.T) {
	tests := map[string]string{
		"Pair Example":  "pair-example",
		"  ":            "head_view",
		"bert/layer#3":  "bert-layer-3",
		"keep_under-ok": "keep_under-ok",
	}
	for in, want := range tests {
		assert.Equal(t, want, FileBase(in), in)
	}
	assert.Len(t, FileBase(strings.Repeat("a", 100)), 64)
}

func TestGenerateLeavesNoPageWhenParamsFail(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "pair.params.json"), 0755))
	pkg := buildPackage(t, []string{"a", "b"}, packager.NoSegmentation{})

	_, err := newTestGenerator(dir, true).Generate("pair", pkg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write params file")
	assert.NoFileExists(t, filepath.Join(dir, "pair.html"))
}
