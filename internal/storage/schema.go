package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type dialect struct {
	name    string
	id      string
	ref     string
	ts      string
	float   string
	analyze []string
}

var (
	sqliteDialect = dialect{
		name:    "sqlite3",
		id:      "INTEGER PRIMARY KEY AUTOINCREMENT",
		ref:     "INTEGER",
		ts:      "TIMESTAMP",
		float:   "REAL",
		analyze: []string{"PRAGMA optimize", "ANALYZE"},
	}
	postgresDialect = dialect{
		name:    "postgres",
		id:      "BIGSERIAL PRIMARY KEY",
		ref:     "BIGINT",
		ts:      "TIMESTAMPTZ",
		float:   "DOUBLE PRECISION",
		analyze: []string{"ANALYZE"},
	}
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sections (
		id {{id}},
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS authors (
		id {{id}},
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS places (
		id {{id}},
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS subjects (
		id {{id}},
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id {{id}},
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id {{id}},
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		excerpt TEXT NOT NULL DEFAULT '',
		cover_url TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		source_url TEXT UNIQUE,
		section_id {{ref}} REFERENCES sections(id) ON DELETE SET NULL,
		author_id {{ref}} REFERENCES authors(id) ON DELETE SET NULL,
		views {{ref}} NOT NULL DEFAULT 0,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_section ON articles(section_id)`,
	`CREATE TABLE IF NOT EXISTS article_places (
		article_id {{ref}} NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		place_id {{ref}} NOT NULL REFERENCES places(id) ON DELETE CASCADE,
		PRIMARY KEY (article_id, place_id)
	)`,
	`CREATE TABLE IF NOT EXISTS article_subjects (
		article_id {{ref}} NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		subject_id {{ref}} NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		PRIMARY KEY (article_id, subject_id)
	)`,
	`CREATE TABLE IF NOT EXISTS article_tags (
		article_id {{ref}} NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		tag_id {{ref}} NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (article_id, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id {{id}},
		article_id {{ref}} NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		author_name TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_article ON comments(article_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_created_at ON comments(created_at)`,
	`CREATE TABLE IF NOT EXISTS likes (
		id {{id}},
		article_id {{ref}} NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		session_id TEXT NOT NULL,
		created_at {{ts}} NOT NULL,
		UNIQUE (article_id, session_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_likes_created_at ON likes(created_at)`,
	`CREATE TABLE IF NOT EXISTS visits (
		id {{id}},
		ip TEXT NOT NULL,
		session_id TEXT NOT NULL,
		path TEXT NOT NULL,
		country TEXT,
		city TEXT,
		latitude {{float}},
		longitude {{float}},
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_ip_created_at ON visits(ip, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_created_at ON visits(created_at)`,
}

// requiredColumns lists the columns the queries in this package rely on.
var requiredColumns = map[string][]string{
	"sections": {"id", "name"},
	"authors":  {"id", "name"},
	"places":   {"id", "name"},
	"subjects": {"id", "name"},
	"tags":     {"id", "name"},
	"articles": {
		"id", "title", "content", "excerpt", "cover_url", "language", "source_url",
		"section_id", "author_id", "views", "created_at", "updated_at",
	},
	"article_places":   {"article_id", "place_id"},
	"article_subjects": {"article_id", "subject_id"},
	"article_tags":     {"article_id", "tag_id"},
	"comments":         {"id", "article_id", "author_name", "body", "created_at"},
	"likes":            {"id", "article_id", "session_id", "created_at"},
	"visits":           {"id", "ip", "session_id", "path", "country", "city", "latitude", "longitude", "created_at"},
}

func (d dialect) render(stmt string) string {
	return strings.NewReplacer(
		"{{id}}", d.id,
		"{{ref}}", d.ref,
		"{{ts}}", d.ts,
		"{{float}}", d.float,
	).Replace(stmt)
}

func createTables(ctx context.Context, db *sqlx.DB, d dialect) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, d.render(stmt)); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// validateSchema selects every required column from an empty result so a
// pre-existing database with an older layout fails fast at startup.
func validateSchema(ctx context.Context, db *sqlx.DB) error {
	for table, columns := range requiredColumns {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE 1 = 0", strings.Join(columns, ", "), table)
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("table %s: %w", table, err)
		}
		rows.Close()
	}
	return nil
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return strings.TrimSpace(stmt[:i])
	}
	return stmt
}
