package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect maps a configured driver name onto a dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "postgres", "postgresql":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

func (d Dialect) placeholder() sq.PlaceholderFormat {
	if d == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// One connection keeps in-memory databases shared and writes serialized.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return db, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS problems (
		id TEXT PRIMARY KEY,
		origin TEXT NOT NULL,
		channel TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		author_reputation INTEGER NOT NULL DEFAULT 0,
		external_id TEXT,
		text TEXT NOT NULL,
		summary TEXT,
		keywords TEXT,
		category TEXT,
		popularity INTEGER NOT NULL DEFAULT 0,
		enriched BOOLEAN NOT NULL DEFAULT FALSE,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_problems_created_at ON problems (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_problems_category ON problems (category)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_problems_external_id ON problems (external_id)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id TEXT PRIMARY KEY,
		problem_id TEXT NOT NULL REFERENCES problems (id),
		voter TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_problem_id ON votes (problem_id)`,
	`CREATE TABLE IF NOT EXISTS experts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		affiliation TEXT NOT NULL DEFAULT '',
		expertise TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		contact TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS expert_tags (
		expert_id TEXT NOT NULL REFERENCES experts (id),
		tag TEXT NOT NULL,
		tag_lower TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (expert_id, tag)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expert_tags_tag_lower ON expert_tags (tag_lower)`,
}

// Migrate creates tables and indexes if they do not exist.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
