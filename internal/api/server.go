// Package api exposes the catalog, visit logging and analytics over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chasopis/internal/config"
	"chasopis/internal/importer"
	"chasopis/internal/logger"
	"chasopis/internal/models"
	"chasopis/internal/security"
	"chasopis/internal/web"
)

const (
	shutdownTimeout = 10 * time.Second
	limiterSweep    = time.Minute
	limiterIdle     = 10 * time.Minute
)

// Catalog is the article side of the site.
type Catalog interface {
	List(ctx context.Context, q models.SearchQuery) ([]models.ArticleSummary, error)
	Get(ctx context.Context, id int64) (*models.Article, error)
	Facets(ctx context.Context) (*models.Facets, error)
	Like(ctx context.Context, articleID int64, sessionID string) (int64, error)
	Comment(ctx context.Context, articleID int64, author, body string) (*models.Comment, error)
	Comments(ctx context.Context, articleID int64) ([]models.Comment, error)
}

// VisitQueue accepts page views for asynchronous logging.
type VisitQueue interface {
	Enqueue(in models.VisitInput) bool
	Len() int
}

// Dashboards builds admin analytics.
type Dashboards interface {
	Dashboard(ctx context.Context, since time.Time) (*models.Dashboard, error)
	DashboardPreset(ctx context.Context, name string) (*models.Dashboard, error)
	Invalidate()
}

// Importer runs feed imports on demand.
type Importer interface {
	ImportAll(ctx context.Context) ([]importer.Result, error)
	ImportSection(ctx context.Context, section string) (importer.Result, error)
	IsRunning() bool
	LastRun() map[string]time.Time
}

// Store reports content store health and totals.
type Store interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
}

// Deps are the collaborators behind the routes. Importer, Store and Registry
// may be nil; the routes that need them are then not registered.
type Deps struct {
	Catalog   Catalog
	Visits    VisitQueue
	Analytics Dashboards
	Importer  Importer
	Store     Store
	Registry  *prometheus.Registry
}

type Server struct {
	router  *gin.Engine
	deps    Deps
	cfg     *config.Config
	limiter *security.RateLimiter
	log     logger.Logger
}

func NewServer(cfg *config.Config, deps Deps, log logger.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router: router,
		deps:   deps,
		cfg:    cfg,
		log:    log,
	}

	if cfg.EnableMetrics && deps.Registry != nil {
		router.Use(NewMetrics(deps.Registry).Middleware())
	}
	s.limiter = security.Setup(router, cfg.Security, log)

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	if s.cfg.EnableMetrics && s.deps.Registry != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})))
	}

	api := s.router.Group("/api/v1")
	api.Use(sessionMiddleware(s.cfg.Visits.SessionCookie))
	{
		api.GET("/articles", s.listArticles)
		api.POST("/articles/search", s.searchArticles)
		api.GET("/articles/:id", s.getArticle)
		api.GET("/articles/:id/comments", s.listComments)
		api.POST("/articles/:id/comments", s.addComment)
		api.POST("/articles/:id/like", s.likeArticle)
		api.GET("/facets", s.getFacets)
		api.POST("/visits", s.logVisit)
	}

	admin := api.Group("/admin")
	{
		admin.GET("/dashboard", s.getDashboard)
		if s.deps.Store != nil {
			admin.GET("/stats", s.getStats)
		}
		if s.deps.Importer != nil {
			admin.GET("/import", s.getImportStatus)
			admin.POST("/import", s.runImport)
		}
	}

	web.NewSwaggerServer(s.cfg.EnableSwagger).RegisterRoutes(s.router)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.limiter != nil {
		go s.limiter.RunCleanup(ctx, limiterSweep, limiterIdle)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", logger.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) healthCheck(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(c.Request.Context()); err != nil {
			s.log.Warn("Health check failed", logger.Error(err))
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
	}

	body := gin.H{
		"status":  status,
		"service": "chasopis",
	}
	if s.deps.Importer != nil {
		body["importer_active"] = s.deps.Importer.IsRunning()
	}
	c.JSON(code, body)
}
