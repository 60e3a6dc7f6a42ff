package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/strrl/headview/internal/packager"
)

// Generator writes a RenderPackage to disk as an HTML page that loads the
// external head view script, and optionally as a bare params JSON file.
type Generator struct {
	outputDir string
	scriptSrc string
	writeJSON bool
	newID     func() string
}

type Config struct {
	OutputDir string
	ScriptSrc string
	WriteJSON bool
}

func NewGenerator(cfg Config) *Generator {
	scriptSrc := cfg.ScriptSrc
	if scriptSrc == "" {
		scriptSrc = "head_view.js"
	}
	return &Generator{
		outputDir: cfg.OutputDir,
		scriptSrc: scriptSrc,
		writeJSON: cfg.WriteJSON,
		newID:     uuid.NewString,
	}
}

// Output describes the files written for one view.
type Output struct {
	ViewID   string
	HTMLPath string
	JSONPath string
}

func (g *Generator) Generate(name string, pkg *packager.RenderPackage) (Output, error) {
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return Output{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	params, err := json.Marshal(pkg)
	if err != nil {
		return Output{}, fmt.Errorf("failed to marshal render params: %w", err)
	}

	out := Output{ViewID: g.newID()}
	base := FileBase(name)

	var page bytes.Buffer
	if err := pageTemplate.Execute(&page, newPageData(name, out.ViewID, g.scriptSrc, pkg, params)); err != nil {
		return Output{}, fmt.Errorf("failed to render page: %w", err)
	}
	out.HTMLPath = filepath.Join(g.outputDir, base+".html")
	if err := os.WriteFile(out.HTMLPath, page.Bytes(), 0644); err != nil {
		return Output{}, fmt.Errorf("failed to write html file: %w", err)
	}

	if g.writeJSON {
		out.JSONPath = filepath.Join(g.outputDir, base+".params.json")
		if err := os.WriteFile(out.JSONPath, params, 0644); err != nil {
			_ = os.Remove(out.HTMLPath)
			return Output{}, fmt.Errorf("failed to write params file: %w", err)
		}
	}

	return out, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// FileBase returns the file name stem Generate uses for a view name. Distinct
// names can share a stem, e.g. "Pair" and "pair".
func FileBase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = unsafeChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 64 {
		s = s[:64]
	}
	if s == "" {
		return "head_view"
	}
	return s
}
