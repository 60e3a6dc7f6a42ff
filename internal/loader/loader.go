package loader

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/strrl/headview/internal/attention"
	"github.com/strrl/headview/internal/db"
)

// Loader reads attention stacks and token labels from disk. Nested JSON is
// decoded directly; long-format tables (one row per layer, head, query, key)
// are scanned through DuckDB.
type Loader struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) (*Loader, error) {
	database, err := db.GetDB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{db: database, logger: logger}, nil
}

func (l *Loader) LoadAttention(ctx context.Context, path string) (*attention.Stack, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var (
		stack *attention.Stack
		err   error
	)
	switch ext {
	case ".json":
		stack, err = loadNestedJSON(path)
	case ".csv", ".tsv", ".parquet", ".jsonl", ".ndjson":
		stack, err = l.loadTable(ctx, path, ext)
	default:
		return nil, fmt.Errorf("unsupported attention file type %q: %s", ext, path)
	}
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Loaded attention",
		zap.String("path", path),
		zap.Ints("shape", stack.Shape()))
	return stack, nil
}

// loadNestedJSON accepts either the per-layer model output shape
// [layer][1][head][query][key] or an already squeezed [layer][head][query][key].
func loadNestedJSON(path string) (*attention.Stack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attention file: %w", err)
	}

	var layers [][][][][]float64
	if err := json.Unmarshal(data, &layers); err == nil {
		return attention.FromLayers(layers)
	}

	var nested [][][][]float64
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("failed to parse attention file %s: %w", path, err)
	}
	return attention.FromNested(nested)
}

// LoadTokens reads labels from a JSON string array, or from a text file with
// one label per line.
func (l *Loader) LoadTokens(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read tokens file: %w", err)
		}
		var labels []string
		if err := json.Unmarshal(data, &labels); err != nil {
			return nil, fmt.Errorf("failed to parse tokens file %s: %w", path, err)
		}
		if labels == nil {
			labels = []string{}
		}
		return labels, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tokens file: %w", err)
	}
	defer f.Close()

	labels := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tokens file: %w", err)
	}
	return labels, nil
}
