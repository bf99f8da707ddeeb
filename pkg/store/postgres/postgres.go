// Package postgres stores schemas and entity values in PostgreSQL through
// database/sql and the lib/pq driver. Definitions, hints and payloads are
// kept as JSONB documents.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Options configures Open.
type Options struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	if opts.DSN == "" {
		return nil, errors.New("postgres: dsn is required")
	}
	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return db, nil
}

// Migration creates the tables used by both stores. It is idempotent.
const Migration = `
CREATE TABLE IF NOT EXISTS custom_field_schemas (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	entity_type      TEXT NOT NULL,
	definition       JSONB NOT NULL,
	ui_hints         JSONB,
	company_id       BIGINT,
	is_system        BOOLEAN NOT NULL DEFAULT FALSE,
	version          INTEGER NOT NULL,
	parent_schema_id TEXT REFERENCES custom_field_schemas (id) ON DELETE SET NULL,
	remark           TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS custom_field_schemas_entity_idx
	ON custom_field_schemas (entity_type, company_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS custom_field_values (
	id          TEXT PRIMARY KEY,
	schema_id   TEXT NOT NULL REFERENCES custom_field_schemas (id),
	entity_type TEXT NOT NULL,
	entity_id   BIGINT NOT NULL,
	value       JSONB NOT NULL,
	remark      TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (entity_type, entity_id, schema_id)
);
CREATE INDEX IF NOT EXISTS custom_field_values_schema_idx ON custom_field_values (schema_id);
`

// Migrate applies Migration.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Migration); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

type rowScanner interface {
	Scan(dest ...any) error
}
