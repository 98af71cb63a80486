package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"chasopis/internal/models"
)

type summaryRow struct {
	ID          int64          `db:"id"`
	Title       string         `db:"title"`
	Excerpt     string         `db:"excerpt"`
	CoverURL    string         `db:"cover_url"`
	Language    string         `db:"language"`
	Views       int64          `db:"views"`
	CreatedAt   time.Time      `db:"created_at"`
	SectionID   sql.NullInt64  `db:"section_id"`
	SectionName sql.NullString `db:"section_name"`
	AuthorID    sql.NullInt64  `db:"author_id"`
	AuthorName  sql.NullString `db:"author_name"`
	Likes       int64          `db:"like_count"`
	Comments    int64          `db:"comment_count"`
}

type articleRow struct {
	summaryRow
	Content   string         `db:"content"`
	SourceURL sql.NullString `db:"source_url"`
	UpdatedAt time.Time      `db:"updated_at"`
}

type assocRow struct {
	ArticleID int64  `db:"article_id"`
	ID        int64  `db:"id"`
	Name      string `db:"name"`
}

// association describes one many-to-many facet.
type association struct {
	table  string
	join   string
	column string
}

var (
	placesAssoc   = association{table: "places", join: "article_places", column: "place_id"}
	subjectsAssoc = association{table: "subjects", join: "article_subjects", column: "subject_id"}
	tagsAssoc     = association{table: "tags", join: "article_tags", column: "tag_id"}
)

const summarySelect = `
	SELECT a.id, a.title, a.excerpt, a.cover_url, a.language, a.views, a.created_at,
		a.section_id, s.name AS section_name, a.author_id, au.name AS author_name,
		(SELECT COUNT(*) FROM likes l WHERE l.article_id = a.id) AS like_count,
		(SELECT COUNT(*) FROM comments c WHERE c.article_id = a.id) AS comment_count`

const summaryFrom = `
	FROM articles a
	LEFT JOIN sections s ON s.id = a.section_id
	LEFT JOIN authors au ON au.id = a.author_id`

func (r summaryRow) toModel() models.ArticleSummary {
	a := models.ArticleSummary{
		ID:        r.ID,
		Title:     r.Title,
		Excerpt:   r.Excerpt,
		CoverURL:  r.CoverURL,
		Language:  r.Language,
		Views:     r.Views,
		Likes:     r.Likes,
		Comments:  r.Comments,
		CreatedAt: r.CreatedAt.UTC(),
		Tags:      []models.Named{},
		Places:    []models.Named{},
		Subjects:  []models.Named{},
	}
	if r.SectionID.Valid {
		a.Section = &models.Named{ID: r.SectionID.Int64, Name: r.SectionName.String}
	}
	if r.AuthorID.Valid {
		a.Author = &models.Named{ID: r.AuthorID.Int64, Name: r.AuthorName.String}
	}
	return a
}

// SearchCandidates loads the minimal projection scanned by free-text search.
func (s *SQLStorage) SearchCandidates(ctx context.Context) ([]models.SearchCandidate, error) {
	var rows []struct {
		ID     int64          `db:"id"`
		Title  string         `db:"title"`
		Author sql.NullString `db:"author_name"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id, a.title, au.name AS author_name
		FROM articles a
		LEFT JOIN authors au ON au.id = a.author_id
		ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load search candidates: %w", err)
	}

	places, err := s.allAssociationNames(ctx, placesAssoc)
	if err != nil {
		return nil, err
	}
	subjects, err := s.allAssociationNames(ctx, subjectsAssoc)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.SearchCandidate, 0, len(rows))
	for _, r := range rows {
		c := models.SearchCandidate{
			ID:       r.ID,
			Title:    r.Title,
			Places:   places[r.ID],
			Subjects: subjects[r.ID],
		}
		if r.Author.Valid {
			author := r.Author.String
			c.Author = &author
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func (s *SQLStorage) allAssociationNames(ctx context.Context, a association) (map[int64][]string, error) {
	var rows []assocRow
	query := fmt.Sprintf(`
		SELECT j.article_id, t.id, t.name
		FROM %s j
		JOIN %s t ON t.id = j.%s`, a.join, a.table, a.column)
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", a.table, err)
	}
	names := make(map[int64][]string)
	for _, r := range rows {
		names[r.ArticleID] = append(names[r.ArticleID], r.Name)
	}
	return names, nil
}

// ListArticles runs one page of the listing. Facets are AND-ed together and
// each facet matches when any of its selected values is associated.
func (s *SQLStorage) ListArticles(ctx context.Context, plan models.ListPlan) ([]models.ArticleSummary, error) {
	if plan.IDs != nil && len(plan.IDs) == 0 {
		return []models.ArticleSummary{}, nil
	}

	var (
		where []string
		args  []any
	)
	f := plan.Filters
	if f.SectionID != nil {
		where = append(where, "a.section_id = ?")
		args = append(args, *f.SectionID)
	}
	if authors := models.Values(f.Authors); authors != nil {
		where = append(where, "au.name IN (?)")
		args = append(args, authors)
	}
	for _, facet := range []struct {
		assoc  association
		values []string
	}{
		{placesAssoc, models.Values(f.Places)},
		{subjectsAssoc, models.Values(f.Subjects)},
		{tagsAssoc, models.Values(f.Tags)},
	} {
		if facet.values == nil {
			continue
		}
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s j JOIN %s t ON t.id = j.%s WHERE j.article_id = a.id AND t.name IN (?))",
			facet.assoc.join, facet.assoc.table, facet.assoc.column))
		args = append(args, facet.values)
	}
	if plan.IDs != nil {
		pred, arg, err := s.idSet("a.id", plan.IDs)
		if err != nil {
			return nil, fmt.Errorf("failed to build listing query: %w", err)
		}
		where = append(where, pred)
		args = append(args, arg)
	}

	var b strings.Builder
	b.WriteString(summarySelect)
	b.WriteString(summaryFrom)
	if len(where) > 0 {
		b.WriteString("\n\tWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\n\tORDER BY ")
	b.WriteString(orderBy(plan.SortBy))
	b.WriteString("\n\tLIMIT ? OFFSET ?")
	args = append(args, plan.Limit, plan.Offset)

	query, args, err := s.in(b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build listing query: %w", err)
	}

	var rows []summaryRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	articles := make([]models.ArticleSummary, 0, len(rows))
	for _, r := range rows {
		articles = append(articles, r.toModel())
	}
	if err := s.attachAssociations(ctx, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func orderBy(sort models.SortBy) string {
	switch sort {
	case models.SortOldest:
		return "a.created_at ASC, a.id ASC"
	case models.SortViews:
		return "a.views DESC, a.id DESC"
	case models.SortLikes:
		return "like_count DESC, a.id DESC"
	default:
		return "a.created_at DESC, a.id DESC"
	}
}

func (s *SQLStorage) attachAssociations(ctx context.Context, articles []models.ArticleSummary) error {
	if len(articles) == 0 {
		return nil
	}
	ids := make([]int64, len(articles))
	index := make(map[int64]int, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
		index[a.ID] = i
	}

	for _, assoc := range []association{tagsAssoc, placesAssoc, subjectsAssoc} {
		query, args, err := s.in(fmt.Sprintf(`
			SELECT j.article_id, t.id, t.name
			FROM %s j
			JOIN %s t ON t.id = j.%s
			WHERE j.article_id IN (?)
			ORDER BY t.name`, assoc.join, assoc.table, assoc.column), ids)
		if err != nil {
			return err
		}
		var rows []assocRow
		if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return fmt.Errorf("failed to load %s: %w", assoc.table, err)
		}
		for _, r := range rows {
			a := &articles[index[r.ArticleID]]
			named := models.Named{ID: r.ID, Name: r.Name}
			switch assoc {
			case tagsAssoc:
				a.Tags = append(a.Tags, named)
			case placesAssoc:
				a.Places = append(a.Places, named)
			case subjectsAssoc:
				a.Subjects = append(a.Subjects, named)
			}
		}
	}
	return nil
}

// GetArticle returns the full article or ErrNotFound.
func (s *SQLStorage) GetArticle(ctx context.Context, id int64) (*models.Article, error) {
	var row articleRow
	query := s.rebind(summarySelect + `, a.content, a.source_url, a.updated_at` + summaryFrom + `
	WHERE a.id = ?`)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get article %d: %w", id, err)
	}

	summaries := []models.ArticleSummary{row.toModel()}
	if err := s.attachAssociations(ctx, summaries); err != nil {
		return nil, err
	}
	return &models.Article{
		ArticleSummary: summaries[0],
		Content:        row.Content,
		SourceURL:      row.SourceURL.String,
		UpdatedAt:      row.UpdatedAt.UTC(),
	}, nil
}

// IncrementViews adds one view to the article.
func (s *SQLStorage) IncrementViews(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE articles SET views = views + 1 WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ArticleTitles resolves titles for the given ids; unknown ids are absent.
func (s *SQLStorage) ArticleTitles(ctx context.Context, ids []int64) (map[int64]string, error) {
	titles := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}
	query, args, err := s.in("SELECT id, title FROM articles WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var rows []models.Named
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to resolve titles: %w", err)
	}
	for _, r := range rows {
		titles[r.ID] = r.Name
	}
	return titles, nil
}

// SaveArticle inserts the article, or updates the one sharing its source URL,
// creating referenced names as needed. Associations are replaced.
func (s *SQLStorage) SaveArticle(ctx context.Context, in models.ArticleInput) (int64, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sectionID, err := s.nameID(ctx, tx, "sections", in.Section)
	if err != nil {
		return 0, false, err
	}
	authorID, err := s.nameID(ctx, tx, "authors", in.Author)
	if err != nil {
		return 0, false, err
	}

	now := s.now()
	createdAt := in.CreatedAt.UTC()
	if in.CreatedAt.IsZero() {
		createdAt = now
	}
	sourceURL := sql.NullString{String: in.SourceURL, Valid: in.SourceURL != ""}

	var id int64
	created := true
	if sourceURL.Valid {
		err := tx.GetContext(ctx, &id, tx.Rebind("SELECT id FROM articles WHERE source_url = ?"), sourceURL)
		switch {
		case err == nil:
			created = false
		case !errors.Is(err, sql.ErrNoRows):
			return 0, false, fmt.Errorf("failed to look up source url: %w", err)
		}
	}

	if created {
		err = tx.GetContext(ctx, &id, tx.Rebind(`
			INSERT INTO articles (title, content, excerpt, cover_url, language, source_url,
				section_id, author_id, views, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
			RETURNING id`),
			in.Title, in.Content, in.Excerpt, in.CoverURL, in.Language, sourceURL,
			sectionID, authorID, createdAt, now)
		if err != nil {
			return 0, false, fmt.Errorf("failed to insert article: %w", err)
		}
	} else {
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE articles SET title = ?, content = ?, excerpt = ?, cover_url = ?, language = ?,
				section_id = ?, author_id = ?, updated_at = ?
			WHERE id = ?`),
			in.Title, in.Content, in.Excerpt, in.CoverURL, in.Language,
			sectionID, authorID, now, id)
		if err != nil {
			return 0, false, fmt.Errorf("failed to update article %d: %w", id, err)
		}
	}

	for _, link := range []struct {
		assoc association
		names []string
	}{
		{tagsAssoc, in.Tags},
		{placesAssoc, in.Places},
		{subjectsAssoc, in.Subjects},
	} {
		if err := s.replaceAssociation(ctx, tx, id, link.assoc, link.names); err != nil {
			return 0, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit article: %w", err)
	}
	return id, created, nil
}

// nameID returns the id of name in a lookup table, inserting it when missing.
// An empty name yields a NULL id.
func (s *SQLStorage) nameID(ctx context.Context, tx *sqlx.Tx, table, name string) (sql.NullInt64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return sql.NullInt64{}, nil
	}
	insert := fmt.Sprintf("INSERT INTO %s (name) VALUES (?) ON CONFLICT (name) DO NOTHING", table)
	if _, err := tx.ExecContext(ctx, tx.Rebind(insert), name); err != nil {
		return sql.NullInt64{}, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	var id int64
	if err := tx.GetContext(ctx, &id, tx.Rebind(fmt.Sprintf("SELECT id FROM %s WHERE name = ?", table)), name); err != nil {
		return sql.NullInt64{}, fmt.Errorf("failed to look up %s: %w", table, err)
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

func (s *SQLStorage) replaceAssociation(ctx context.Context, tx *sqlx.Tx, articleID int64, a association, names []string) error {
	del := fmt.Sprintf("DELETE FROM %s WHERE article_id = ?", a.join)
	if _, err := tx.ExecContext(ctx, tx.Rebind(del), articleID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", a.join, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (article_id, %s) VALUES (?, ?) ON CONFLICT DO NOTHING", a.join, a.column)
	for _, name := range names {
		id, err := s.nameID(ctx, tx, a.table, name)
		if err != nil {
			return err
		}
		if !id.Valid {
			continue
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(insert), articleID, id.Int64); err != nil {
			return fmt.Errorf("failed to link %s: %w", a.table, err)
		}
	}
	return nil
}

// Facets lists every selectable facet value ordered by name.
func (s *SQLStorage) Facets(ctx context.Context) (*models.Facets, error) {
	facets := &models.Facets{}

	if err := s.db.SelectContext(ctx, &facets.Sections, "SELECT id, name FROM sections ORDER BY name"); err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	if facets.Sections == nil {
		facets.Sections = []models.Named{}
	}

	for _, f := range []struct {
		table string
		dst   *[]models.Option
	}{
		{"authors", &facets.Authors},
		{"places", &facets.Places},
		{"subjects", &facets.Subjects},
		{"tags", &facets.Tags},
	} {
		var names []string
		if err := s.db.SelectContext(ctx, &names, fmt.Sprintf("SELECT name FROM %s ORDER BY name", f.table)); err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", f.table, err)
		}
		opts := make([]models.Option, 0, len(names))
		for _, n := range names {
			opts = append(opts, models.Option{Label: n, Value: n})
		}
		*f.dst = opts
	}
	return facets, nil
}
