package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chasopis/internal/logger"
)

// SQLStorage implements Storage on top of sqlx for SQLite and PostgreSQL.
// Queries are written with ? placeholders and rebound for the driver.
// Timestamps are always bound in UTC so SQLite text comparison orders them.
type SQLStorage struct {
	db      *sqlx.DB
	dialect dialect
	log     logger.Logger
	now     func() time.Time
}

// New wraps an already opened database. driver selects the placeholder style
// and maintenance statements; unknown drivers keep ? placeholders.
func New(db *sqlx.DB, driver string, log logger.Logger) *SQLStorage {
	d := sqliteDialect
	if driver == postgresDialect.name {
		d = postgresDialect
	}
	return &SQLStorage{
		db:      db,
		dialect: d,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// DB exposes the underlying handle.
func (s *SQLStorage) DB() *sqlx.DB {
	return s.db
}

func (s *SQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// Optimize refreshes planner statistics.
func (s *SQLStorage) Optimize(ctx context.Context) error {
	for _, stmt := range s.dialect.analyze {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run %s: %w", stmt, err)
		}
	}
	s.log.Info("Database optimization completed")
	return nil
}

// Stats returns row counts per table and articles per section.
func (s *SQLStorage) Stats(ctx context.Context) (map[string]any, error) {
	stats := make(map[string]any)

	counts := []struct {
		key   string
		query string
	}{
		{"total_articles", "SELECT COUNT(*) FROM articles"},
		{"total_authors", "SELECT COUNT(*) FROM authors"},
		{"total_comments", "SELECT COUNT(*) FROM comments"},
		{"total_likes", "SELECT COUNT(*) FROM likes"},
		{"total_visits", "SELECT COUNT(*) FROM visits"},
		{"geolocated_visits", "SELECT COUNT(*) FROM visits WHERE country IS NOT NULL"},
	}
	for _, c := range counts {
		var n int64
		if err := s.db.GetContext(ctx, &n, c.query); err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", c.key, err)
		}
		stats[c.key] = n
	}

	var rows []struct {
		Name  string `db:"name"`
		Count int64  `db:"cnt"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT s.name, COUNT(a.id) AS cnt
		FROM sections s
		LEFT JOIN articles a ON a.section_id = s.id
		GROUP BY s.id, s.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get articles by section: %w", err)
	}
	bySection := make(map[string]int64, len(rows))
	for _, r := range rows {
		bySection[r.Name] = r.Count
	}
	stats["articles_by_section"] = bySection

	return stats, nil
}

func (s *SQLStorage) rebind(query string) string {
	return s.db.Rebind(query)
}

// in expands slice arguments with sqlx.In and rebinds the result.
func (s *SQLStorage) in(query string, args ...any) (string, []any, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return s.db.Rebind(query), args, nil
}

// idSet returns a predicate restricting column to ids. The whole set is bound
// as a single parameter, so search results of any size stay below the
// driver's bind variable limit.
func (s *SQLStorage) idSet(column string, ids []int64) (string, any, error) {
	if s.dialect.name == postgresDialect.name {
		return column + " = ANY(?::bigint[])", pq.Array(ids), nil
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return "", nil, err
	}
	return column + " IN (SELECT value FROM json_each(?))", string(encoded), nil
}
