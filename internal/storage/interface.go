package storage

import (
	"context"
	"errors"
	"time"

	"chasopis/internal/models"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the content store used by every service.
type Storage interface {
	// Articles
	SearchCandidates(ctx context.Context) ([]models.SearchCandidate, error)
	ListArticles(ctx context.Context, plan models.ListPlan) ([]models.ArticleSummary, error)
	GetArticle(ctx context.Context, id int64) (*models.Article, error)
	IncrementViews(ctx context.Context, id int64) error
	SaveArticle(ctx context.Context, in models.ArticleInput) (id int64, created bool, err error)
	Facets(ctx context.Context) (*models.Facets, error)
	ArticleTitles(ctx context.Context, ids []int64) (map[int64]string, error)

	// Engagement
	AddLike(ctx context.Context, articleID int64, sessionID string) (int64, error)
	AddComment(ctx context.Context, c models.Comment) (*models.Comment, error)
	ListComments(ctx context.Context, articleID int64) ([]models.Comment, error)

	// Visits
	LatestGeo(ctx context.Context, ip string, since time.Time) (*models.GeoInfo, error)
	InsertVisit(ctx context.Context, v *models.VisitRecord) error
	VisitsSince(ctx context.Context, since time.Time) ([]models.VisitRecord, error)

	// Engagement statistics
	CountCommentsSince(ctx context.Context, since time.Time) (int, error)
	TopLikedSince(ctx context.Context, since time.Time, limit int) ([]models.LikedArticle, error)
	TopCommentedSince(ctx context.Context, since time.Time, limit int) ([]models.CommentedArticle, error)

	// Maintenance
	Stats(ctx context.Context) (map[string]any, error)
	Optimize(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
