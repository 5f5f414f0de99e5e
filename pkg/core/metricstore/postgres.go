package metricstore

import (
	"context"
	"fmt"

	"research_assistant/pkg/core/period"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads the same table layout from Postgres.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool, table string) (*PostgresStore, error) {
	t, err := checkTable(table)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, table: t}, nil
}

func (s *PostgresStore) Query(ctx context.Context, tr period.TimeRange) ([]ValuationRow, error) {
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, rangeQuery(s.table, true),
		tr.Start.Year, tr.Start.Quarter, tr.End.Year, tr.End.Quarter)
	if err != nil {
		return nil, fmt.Errorf("query valuation metrics: %w", err)
	}
	defer rows.Close()

	var out []ValuationRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan valuation row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
