package loader

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/strrl/headview/internal/attention"
)

type tableStats struct {
	count                         int
	minLayer, minHead, minQ, minK int
	layers, heads, queries, keys  int
}

func tableSource(path, ext string) string {
	quoted := strings.ReplaceAll(path, "'", "''")
	switch ext {
	case ".tsv":
		return fmt.Sprintf("read_csv_auto('%s', delim = '\t', header = true)", quoted)
	case ".parquet":
		return fmt.Sprintf(`read_parquet('%s')`, quoted)
	case ".jsonl", ".ndjson":
		return fmt.Sprintf(`read_json('%s', format = 'newline_delimited')`, quoted)
	default:
		return fmt.Sprintf(`read_csv_auto('%s', header = true)`, quoted)
	}
}

func (l *Loader) loadTable(ctx context.Context, path, ext string) (*attention.Stack, error) {
	source := tableSource(path, ext)

	stats, err := l.tableStats(ctx, source)
	if err != nil {
		return nil, err
	}
	if stats.count == 0 {
		return nil, &attention.MalformedTensorError{Reason: fmt.Sprintf("%s has no attention rows", path)}
	}
	if stats.minLayer < 0 || stats.minHead < 0 || stats.minQ < 0 || stats.minK < 0 {
		return nil, &attention.MalformedTensorError{Reason: fmt.Sprintf("%s has negative indices", path)}
	}
	total := stats.layers * stats.heads * stats.queries * stats.keys
	if stats.count != total {
		return nil, &attention.MalformedTensorError{
			Reason: fmt.Sprintf("%s has %d rows, shape [%d %d %d %d] needs %d",
				path, stats.count, stats.layers, stats.heads, stats.queries, stats.keys, total),
		}
	}

	query := fmt.Sprintf(`
		SELECT
			CAST("layer" AS BIGINT),
			CAST("head" AS BIGINT),
			CAST("query" AS BIGINT),
			CAST("key" AS BIGINT),
			CAST("weight" AS DOUBLE)
		FROM %s
	`, source)
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query attention rows: %w", err)
	}
	defer rows.Close()

	data := make([]float64, total)
	seen := make([]bool, total)
	for rows.Next() {
		var layer, head, q, k int
		var weight float64
		if err := rows.Scan(&layer, &head, &q, &k, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan attention row: %w", err)
		}
		idx := ((layer*stats.heads+head)*stats.queries+q)*stats.keys + k
		if seen[idx] {
			return nil, &attention.MalformedTensorError{
				Path:   fmt.Sprintf("[%d][%d][%d][%d]", layer, head, q, k),
				Reason: "duplicate attention row",
			}
		}
		seen[idx] = true
		data[idx] = weight
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	l.logger.Debug("Scanned attention table",
		zap.String("path", path),
		zap.Int("rows", stats.count))

	return attention.New(data, stats.layers, stats.heads, stats.queries, stats.keys)
}

func (l *Loader) tableStats(ctx context.Context, source string) (tableStats, error) {
	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COALESCE(MIN("layer"), 0), COALESCE(MIN("head"), 0), COALESCE(MIN("query"), 0), COALESCE(MIN("key"), 0),
			COALESCE(MAX("layer") + 1, 0), COALESCE(MAX("head") + 1, 0), COALESCE(MAX("query") + 1, 0), COALESCE(MAX("key") + 1, 0)
		FROM %s
	`, source)

	var s tableStats
	err := l.db.QueryRowContext(ctx, query).Scan(
		&s.count,
		&s.minLayer, &s.minHead, &s.minQ, &s.minK,
		&s.layers, &s.heads, &s.queries, &s.keys,
	)
	if err != nil {
		return tableStats{}, fmt.Errorf("failed to get attention table stats: %w", err)
	}
	return s, nil
}
