package metricstore

import (
	"database/sql"
	"fmt"

	sf "github.com/snowflakedb/gosnowflake"
)

type SnowflakeConfig struct {
	Account   string `mapstructure:"account"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"`
	Schema    string `mapstructure:"schema"`
	Warehouse string `mapstructure:"warehouse"`
	Role      string `mapstructure:"role"`
}

// Configured reports whether enough is set to attempt a connection.
func (c SnowflakeConfig) Configured() bool {
	return c.Account != "" && c.User != ""
}

// OpenSnowflake returns a connection pool for the Snowflake driver. The pool
// connects lazily; the first query surfaces bad credentials.
func OpenSnowflake(c SnowflakeConfig) (*sql.DB, error) {
	dsn, err := sf.DSN(&sf.Config{
		Account:   c.Account,
		User:      c.User,
		Password:  c.Password,
		Database:  c.Database,
		Schema:    c.Schema,
		Warehouse: c.Warehouse,
		Role:      c.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake DSN: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake: %w", err)
	}
	return db, nil
}
