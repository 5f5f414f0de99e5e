package docindex

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"research_assistant/pkg/core/period"

	"github.com/jackc/pgx/v5/pgxpool"
)

const DefaultTable = "report_chunks"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// PostgresIndex searches a chunk table with columns
// (year, quarter, locator, content, embedding vector). With an Embedder it
// ranks by pgvector cosine distance; without one it falls back to
// full-text ranking.
type PostgresIndex struct {
	pool     *pgxpool.Pool
	table    string
	embedder Embedder
}

var _ Index = (*PostgresIndex)(nil)

func NewPostgresIndex(pool *pgxpool.Pool, table string, embedder Embedder) (*PostgresIndex, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresIndex{pool: pool, table: table, embedder: embedder}, nil
}

func (ix *PostgresIndex) Search(ctx context.Context, query string, tr *period.TimeRange, topK int) ([]Passage, error) {
	var first any = query
	if ix.embedder != nil {
		vec, err := ix.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		first = vectorLiteral(vec)
	}
	sql, args := buildSearch(ix.table, ix.embedder != nil, first, tr, topK)

	rows, err := ix.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", ix.table, err)
	}
	defer rows.Close()

	var out []Passage
	for rows.Next() {
		var (
			p             Passage
			year, quarter int
		)
		if err := rows.Scan(&p.Content, &p.Score, &year, &quarter, &p.Locator); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		p.Period = period.Quarter{Year: year, Quarter: quarter}
		out = append(out, p)
	}
	return out, rows.Err()
}

// buildSearch returns the SQL and arguments for one search. $1 is the query
// text or the query vector literal.
func buildSearch(table string, vector bool, first any, tr *period.TimeRange, topK int) (string, []any) {
	if topK <= 0 {
		topK = 5
	}
	args := []any{first}
	var conds []string

	score := "ts_rank(to_tsvector('english', content), plainto_tsquery('english', $1))"
	order := "score DESC"
	if vector {
		score = "1 - (embedding <=> $1::vector)"
		order = "embedding <=> $1::vector"
	} else {
		conds = append(conds, "to_tsvector('english', content) @@ plainto_tsquery('english', $1)")
	}

	if tr != nil {
		args = append(args, tr.Start.Year, tr.Start.Quarter, tr.End.Year, tr.End.Quarter)
		conds = append(conds,
			"(year > $2 OR (year = $2 AND quarter >= $3))",
			"(year < $4 OR (year = $4 AND quarter <= $5))")
	}
	args = append(args, topK)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT content, %s AS score, year, quarter, locator FROM %s", score, table)
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY %s LIMIT $%d", order, len(args))
	return b.String(), args
}

// vectorLiteral formats a vector the way pgvector parses it: [1,2,3].
func vectorLiteral(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
