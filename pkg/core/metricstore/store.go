// Package metricstore reads quarterly valuation metrics from a SQL warehouse.
package metricstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"research_assistant/pkg/core/period"
)

// DefaultTable holds one row per (YEAR, QUARTER).
const DefaultTable = "NVIDIA_VALUATION_METRICS"

// ValuationRow is one quarter of valuation metrics. Money fields are in USD;
// NULL columns read as zero.
type ValuationRow struct {
	Period              period.Quarter `json:"period"`
	MarketCap           float64        `json:"market_cap"`
	EnterpriseValue     float64        `json:"enterprise_value"`
	TrailingPE          float64        `json:"trailing_pe"`
	ForwardPE           float64        `json:"forward_pe"`
	PriceToSales        float64        `json:"price_to_sales"`
	PriceToBook         float64        `json:"price_to_book"`
	EnterpriseToRevenue float64        `json:"enterprise_to_revenue"`
	EnterpriseToEBITDA  float64        `json:"enterprise_to_ebitda"`
}

// Store returns the rows inside a time range, ordered by period ascending.
type Store interface {
	Query(ctx context.Context, tr period.TimeRange) ([]ValuationRow, error)
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*){0,2}$`)

func checkTable(table string) (string, error) {
	if table == "" {
		return DefaultTable, nil
	}
	if !identifier.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

const selectColumns = `SELECT YEAR, QUARTER, MARKET_CAP, ENTERPRISE_VALUE, TRAILING_PE, FORWARD_PE,
       PRICE_TO_SALES, PRICE_TO_BOOK, ENTERPRISE_TO_REVENUE, ENTERPRISE_TO_EBITDA
FROM %s
`

// rangeQuery builds the range query. Snowflake binds with ?, Postgres with
// numbered parameters that can be reused.
func rangeQuery(table string, numbered bool) string {
	where := `WHERE (YEAR > ? OR (YEAR = ? AND QUARTER >= ?))
  AND (YEAR < ? OR (YEAR = ? AND QUARTER <= ?))
`
	if numbered {
		where = `WHERE (YEAR > $1 OR (YEAR = $1 AND QUARTER >= $2))
  AND (YEAR < $3 OR (YEAR = $3 AND QUARTER <= $4))
`
	}
	return fmt.Sprintf(selectColumns, table) + where + "ORDER BY YEAR, QUARTER"
}

// scanner is satisfied by *sql.Rows and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (ValuationRow, error) {
	var (
		year, quarter int
		vals          [8]sql.NullFloat64
	)
	dest := []any{&year, &quarter}
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	if err := s.Scan(dest...); err != nil {
		return ValuationRow{}, err
	}
	return ValuationRow{
		Period:              period.Quarter{Year: year, Quarter: quarter},
		MarketCap:           vals[0].Float64,
		EnterpriseValue:     vals[1].Float64,
		TrailingPE:          vals[2].Float64,
		ForwardPE:           vals[3].Float64,
		PriceToSales:        vals[4].Float64,
		PriceToBook:         vals[5].Float64,
		EnterpriseToRevenue: vals[6].Float64,
		EnterpriseToEBITDA:  vals[7].Float64,
	}, nil
}
