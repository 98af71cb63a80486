// Package catalog serves article listings, details, facets and reader
// engagement on top of the content store.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"chasopis/internal/cache"
	"chasopis/internal/content"
	"chasopis/internal/logger"
	"chasopis/internal/models"
	"chasopis/internal/query"
	"chasopis/internal/storage"
)

const (
	// MaxCommentLength bounds a comment body in runes.
	MaxCommentLength = 2000
	// MaxAuthorLength bounds a comment author name in runes.
	MaxAuthorLength = 100
	// AnonymousAuthor is shown for comments posted without a name.
	AnonymousAuthor = "Ананім"

	facetsKey = "catalog:facets"
)

var (
	ErrNotFound       = storage.ErrNotFound
	ErrEmptyComment   = errors.New("comment body is empty")
	ErrCommentTooLong = fmt.Errorf("comment body exceeds %d characters", MaxCommentLength)
	ErrMissingSession = errors.New("session id is required")
	ErrEmptyTitle     = errors.New("article title is empty")
)

// ArticleStore is the part of the content store the listing query needs.
type ArticleStore interface {
	SearchCandidates(ctx context.Context) ([]models.SearchCandidate, error)
	ListArticles(ctx context.Context, plan models.ListPlan) ([]models.ArticleSummary, error)
}

// Store is everything the catalog reads and writes.
type Store interface {
	ArticleStore
	GetArticle(ctx context.Context, id int64) (*models.Article, error)
	IncrementViews(ctx context.Context, id int64) error
	SaveArticle(ctx context.Context, in models.ArticleInput) (int64, bool, error)
	Facets(ctx context.Context) (*models.Facets, error)
	AddLike(ctx context.Context, articleID int64, sessionID string) (int64, error)
	AddComment(ctx context.Context, c models.Comment) (*models.Comment, error)
	ListComments(ctx context.Context, articleID int64) ([]models.Comment, error)
}

type Service struct {
	store     Store
	cache     *cache.Manager
	facetsTTL time.Duration
	detector  *content.Detector
	metrics   *Metrics
	log       logger.Logger
}

type Option func(*Service)

// WithFacetsTTL sets how long the facet lists are cached.
func WithFacetsTTL(ttl time.Duration) Option {
	return func(s *Service) { s.facetsTTL = ttl }
}

// WithDetector enables language detection for saved articles.
func WithDetector(d *content.Detector) Option {
	return func(s *Service) { s.detector = d }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, cacheManager *cache.Manager, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		cache:     cacheManager,
		facetsTTL: 5 * time.Minute,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of articles for q.
//
// A search that is blank after trimming is ignored. Otherwise every article's
// title, author, places and subjects are scanned in memory, and when nothing
// matches the result is empty without running the listing query.
func (s *Service) List(ctx context.Context, q models.SearchQuery) ([]models.ArticleSummary, error) {
	if err := query.Validate(q); err != nil {
		return nil, err
	}

	search := strings.TrimSpace(q.Search)
	start := time.Now()
	defer func() { s.metrics.observeList(search != "", time.Since(start)) }()

	plan := models.ListPlan{
		Filters: q.Filters,
		SortBy:  models.ParseSortBy(string(q.SortBy)),
		Offset:  q.Skip,
		Limit:   models.PageSize,
	}

	if search != "" {
		candidates, err := s.store.SearchCandidates(ctx)
		if err != nil {
			return nil, err
		}
		ids := query.MatchIDs(candidates, search)
		if len(ids) == 0 {
			return []models.ArticleSummary{}, nil
		}
		plan.IDs = ids
	}

	return s.store.ListArticles(ctx, plan)
}

// Get returns an article and counts the view.
func (s *Service) Get(ctx context.Context, id int64) (*models.Article, error) {
	if err := s.store.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetArticle(ctx, id)
}

// Facets returns the selectable filter values, cached for the facets TTL.
func (s *Service) Facets(ctx context.Context) (*models.Facets, error) {
	return cache.Remember(s.cache, facetsKey, s.facetsTTL, func() (*models.Facets, error) {
		return s.store.Facets(ctx)
	})
}

// Like records a like from sessionID and returns the like count.
// Repeated likes from one session count once.
func (s *Service) Like(ctx context.Context, articleID int64, sessionID string) (int64, error) {
	if strings.TrimSpace(sessionID) == "" {
		return 0, ErrMissingSession
	}
	return s.store.AddLike(ctx, articleID, sessionID)
}

// Comment validates and stores a reader comment.
func (s *Service) Comment(ctx context.Context, articleID int64, author, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyComment
	}
	if utf8.RuneCountInString(body) > MaxCommentLength {
		return nil, ErrCommentTooLong
	}

	author = strings.TrimSpace(author)
	if author == "" {
		author = AnonymousAuthor
	}
	if r := []rune(author); len(r) > MaxAuthorLength {
		author = string(r[:MaxAuthorLength])
	}

	return s.store.AddComment(ctx, models.Comment{ArticleID: articleID, Author: author, Body: body})
}

// Comments lists an article's comments, newest first.
func (s *Service) Comments(ctx context.Context, articleID int64) ([]models.Comment, error) {
	return s.store.ListComments(ctx, articleID)
}

// Save creates or updates an article. A missing excerpt is derived from the
// content and a missing language is detected when a detector is configured.
func (s *Service) Save(ctx context.Context, in models.ArticleInput) (int64, bool, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return 0, false, ErrEmptyTitle
	}
	if in.Excerpt == "" {
		in.Excerpt = content.Excerpt(in.Content, content.DefaultExcerptLength)
	}
	if in.Language == "" && s.detector != nil {
		in.Language = s.detector.Detect(in.Title + ". " + content.PlainText(in.Content))
	}

	id, created, err := s.store.SaveArticle(ctx, in)
	if err != nil {
		return 0, false, err
	}
	s.cache.Delete(facetsKey)

	s.log.Debug("Article saved",
		logger.Int64("id", id),
		logger.Bool("created", created),
		logger.String("language", in.Language))
	return id, created, nil
}
