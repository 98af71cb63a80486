package storage

import (
	"context"
	"fmt"
	"time"

	"chasopis/internal/models"
)

func (s *SQLStorage) articleExists(ctx context.Context, id int64) error {
	var n int
	if err := s.db.GetContext(ctx, &n, s.rebind("SELECT COUNT(*) FROM articles WHERE id = ?"), id); err != nil {
		return fmt.Errorf("failed to check article %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddLike records a like once per session and returns the article's like count.
func (s *SQLStorage) AddLike(ctx context.Context, articleID int64, sessionID string) (int64, error) {
	if err := s.articleExists(ctx, articleID); err != nil {
		return 0, err
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO likes (article_id, session_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (article_id, session_id) DO NOTHING`),
		articleID, sessionID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to insert like: %w", err)
	}

	var count int64
	if err := s.db.GetContext(ctx, &count, s.rebind("SELECT COUNT(*) FROM likes WHERE article_id = ?"), articleID); err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return count, nil
}

// AddComment stores c and returns it with its id and timestamp set.
func (s *SQLStorage) AddComment(ctx context.Context, c models.Comment) (*models.Comment, error) {
	if err := s.articleExists(ctx, c.ArticleID); err != nil {
		return nil, err
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	c.CreatedAt = c.CreatedAt.UTC()

	err := s.db.GetContext(ctx, &c.ID, s.rebind(`
		INSERT INTO comments (article_id, author_name, body, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`),
		c.ArticleID, c.Author, c.Body, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}
	return &c, nil
}

// ListComments returns an article's comments, newest first.
func (s *SQLStorage) ListComments(ctx context.Context, articleID int64) ([]models.Comment, error) {
	if err := s.articleExists(ctx, articleID); err != nil {
		return nil, err
	}

	comments := []models.Comment{}
	err := s.db.SelectContext(ctx, &comments, s.rebind(`
		SELECT id, article_id, author_name, body, created_at
		FROM comments
		WHERE article_id = ?
		ORDER BY created_at DESC, id DESC`), articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	for i := range comments {
		comments[i].CreatedAt = comments[i].CreatedAt.UTC()
	}
	return comments, nil
}

// CountCommentsSince counts comments created at or after since.
func (s *SQLStorage) CountCommentsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.rebind("SELECT COUNT(*) FROM comments WHERE created_at >= ?"), since.UTC()); err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}

// TopLikedSince ranks articles by likes received at or after since.
func (s *SQLStorage) TopLikedSince(ctx context.Context, since time.Time, limit int) ([]models.LikedArticle, error) {
	rows := []models.LikedArticle{}
	err := s.db.SelectContext(ctx, &rows, s.rebind(`
		SELECT a.id, a.title, COUNT(*) AS cnt
		FROM likes l
		JOIN articles a ON a.id = l.article_id
		WHERE l.created_at >= ?
		GROUP BY a.id, a.title
		ORDER BY cnt DESC, a.id ASC
		LIMIT ?`), since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank liked articles: %w", err)
	}
	return rows, nil
}

// TopCommentedSince ranks articles by comments written at or after since.
func (s *SQLStorage) TopCommentedSince(ctx context.Context, since time.Time, limit int) ([]models.CommentedArticle, error) {
	rows := []models.CommentedArticle{}
	err := s.db.SelectContext(ctx, &rows, s.rebind(`
		SELECT a.id, a.title, COUNT(*) AS cnt
		FROM comments c
		JOIN articles a ON a.id = c.article_id
		WHERE c.created_at >= ?
		GROUP BY a.id, a.title
		ORDER BY cnt DESC, a.id ASC
		LIMIT ?`), since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank commented articles: %w", err)
	}
	return rows, nil
}
