package metricstore

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"research_assistant/pkg/core/period"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"YEAR", "QUARTER", "MARKET_CAP", "ENTERPRISE_VALUE", "TRAILING_PE", "FORWARD_PE",
	"PRICE_TO_SALES", "PRICE_TO_BOOK", "ENTERPRISE_TO_REVENUE", "ENTERPRISE_TO_EBITDA",
}

func TestSQLStore_Query(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(rangeQuery(DefaultTable, false))).
		WithArgs(2021, 2021, 2, 2022, 2022, 1).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2021, 2, 4.5e11, 4.4e11, 80.1, 45.2, 25.0, 20.1, 24.3, 60.0).
			AddRow(2022, 1, 6.1e11, nil, 55.0, 40.0, 21.5, 18.0, nil, 50.0))

	store, err := NewSQLStore(db, "")
	require.NoError(t, err)

	tr, err := period.NewTimeRange("2021q2", "2022q1")
	require.NoError(t, err)
	rows, err := store.Query(context.Background(), tr)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "2021q2", rows[0].Period.String())
	assert.Equal(t, 4.5e11, rows[0].MarketCap)
	assert.Equal(t, 60.0, rows[0].EnterpriseToEBITDA)
	assert.Zero(t, rows[1].EnterpriseValue, "NULL reads as zero")
	assert.Zero(t, rows[1].EnterpriseToRevenue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_QueryEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT YEAR, QUARTER.*FROM ANALYTICS\.VALUATION.*ORDER BY YEAR, QUARTER`).
		WillReturnRows(sqlmock.NewRows(columns))

	store, err := NewSQLStore(db, "ANALYTICS.VALUATION")
	require.NoError(t, err)
	rows, err := store.Query(context.Background(), period.TimeRange{Start: period.MustParse("2019q1"), End: period.MustParse("2019q4")})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("warehouse suspended")
	mock.ExpectQuery("SELECT").WillReturnError(boom)

	store, err := NewSQLStore(db, "")
	require.NoError(t, err)
	_, err = store.Query(context.Background(), period.TimeRange{Start: period.MustParse("2021q1"), End: period.MustParse("2021q4")})
	assert.ErrorIs(t, err, boom)
}

func TestNewSQLStore_RejectsBadTable(t *testing.T) {
	_, err := NewSQLStore(nil, "metrics; DROP TABLE x")
	assert.Error(t, err)
}

func TestRangeQuery_Numbered(t *testing.T) {
	q := rangeQuery("valuation", true)
	assert.Contains(t, q, "FROM valuation")
	assert.Contains(t, q, "QUARTER >= $2")
	assert.NotContains(t, q, "?")
}
