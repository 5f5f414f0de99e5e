package metricstore

import (
	"context"
	"database/sql"
	"fmt"

	"research_assistant/pkg/core/period"
)

// SQLStore queries any database/sql driver that binds ? placeholders; in
// production that is the Snowflake driver.
type SQLStore struct {
	db    *sql.DB
	table string
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(db *sql.DB, table string) (*SQLStore, error) {
	t, err := checkTable(table)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: db, table: t}, nil
}

func (s *SQLStore) Query(ctx context.Context, tr period.TimeRange) ([]ValuationRow, error) {
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	sy, sq := tr.Start.Year, tr.Start.Quarter
	ey, eq := tr.End.Year, tr.End.Quarter

	rows, err := s.db.QueryContext(ctx, rangeQuery(s.table, false), sy, sy, sq, ey, ey, eq)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate valuation rows: %w", err)
	}
	return out, nil
}
