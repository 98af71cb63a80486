package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chasopis/internal/analytics"
	"chasopis/internal/catalog"
	"chasopis/internal/importer"
	"chasopis/internal/logger"
	"chasopis/internal/models"
	"chasopis/internal/query"
)

type listResponse struct {
	Articles []models.ArticleSummary `json:"articles"`
	Count    int                     `json:"count"`
	Skip     int                     `json:"skip"`
	HasMore  bool                    `json:"has_more"`
}

type commentRequest struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

type visitRequest struct {
	Path string `json:"path" binding:"required"`
}

func badRequest(c *gin.Context, title string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   title,
		"message": err.Error(),
	})
}

// fail maps service errors onto HTTP responses.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not found",
			"message": "Article not found",
		})
	case errors.Is(err, catalog.ErrEmptyComment),
		errors.Is(err, catalog.ErrCommentTooLong),
		errors.Is(err, catalog.ErrMissingSession),
		errors.Is(err, query.ErrInvalidSkip),
		errors.Is(err, query.ErrInvalidSection),
		errors.Is(err, query.ErrSearchTooLong),
		errors.Is(err, importer.ErrUnknownSection):
		badRequest(c, "Invalid request", err)
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		s.log.Error("Request failed",
			logger.String("path", c.FullPath()),
			logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"message": "The request could not be completed",
		})
	}
}

func articleID(c *gin.Context) (int64, bool) {
	id, err := query.ParseID(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid path parameters", err)
		return 0, false
	}
	return id, true
}

func (s *Server) respondList(c *gin.Context, q models.SearchQuery) {
	articles, err := s.deps.Catalog.List(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{
		Articles: articles,
		Count:    len(articles),
		Skip:     q.Skip,
		HasMore:  len(articles) == models.PageSize,
	})
}

func (s *Server) listArticles(c *gin.Context) {
	q, err := query.ParseValues(c.Request.URL.Query())
	if err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}
	s.respondList(c, q)
}

func (s *Server) searchArticles(c *gin.Context) {
	var q models.SearchQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	q.SortBy = models.ParseSortBy(string(q.SortBy))
	if err := query.Validate(q); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	s.respondList(c, q)
}

func (s *Server) getArticle(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}
	article, err := s.deps.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

func (s *Server) listComments(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}
	comments, err := s.deps.Catalog.Comments(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"comments": comments,
		"count":    len(comments),
	})
}

func (s *Server) addComment(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	comment, err := s.deps.Catalog.Comment(c.Request.Context(), id, req.Author, req.Body)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) likeArticle(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}
	likes, err := s.deps.Catalog.Like(c.Request.Context(), id, sessionID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":    id,
		"likes": likes,
	})
}

func (s *Server) getFacets(c *gin.Context) {
	facets, err := s.deps.Catalog.Facets(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, facets)
}

// logVisit queues the page view and answers before it is written.
func (s *Server) logVisit(c *gin.Context) {
	var req visitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	queued := s.deps.Visits.Enqueue(models.VisitInput{
		IP:        c.ClientIP(),
		SessionID: sessionID(c),
		Path:      req.Path,
	})
	c.JSON(http.StatusAccepted, gin.H{"queued": queued})
}

func (s *Server) getDashboard(c *gin.Context) {
	var (
		dashboard *models.Dashboard
		err       error
	)
	if raw := c.Query("since"); raw != "" {
		since, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			badRequest(c, "Invalid query parameters", perr)
			return
		}
		dashboard, err = s.deps.Analytics.Dashboard(c.Request.Context(), since)
	} else {
		name := c.DefaultQuery("range", "24h")
		if _, ok := analytics.Presets[name]; !ok {
			badRequest(c, "Invalid query parameters", errors.New("range must be one of 24h, 7d, 30d"))
			return
		}
		dashboard, err = s.deps.Analytics.DashboardPreset(c.Request.Context(), name)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.deps.Store.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	stats["queued_visits"] = s.deps.Visits.Len()
	c.JSON(http.StatusOK, stats)
}

func (s *Server) getImportStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":  s.deps.Importer.IsRunning(),
		"last_run": s.deps.Importer.LastRun(),
	})
}

func (s *Server) runImport(c *gin.Context) {
	var (
		results []importer.Result
		err     error
	)
	if section := c.Query("section"); section != "" {
		var result importer.Result
		result, err = s.deps.Importer.ImportSection(c.Request.Context(), section)
		results = []importer.Result{result}
	} else {
		results, err = s.deps.Importer.ImportAll(c.Request.Context())
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	// Cached dashboards carry article titles and engagement leaders.
	s.deps.Analytics.Invalidate()
	c.JSON(http.StatusOK, gin.H{
		"message": "Import completed",
		"results": results,
	})
}
