package models

import (
	"strings"
	"time"
)

// PageSize is the fixed number of articles returned by one listing request.
const PageSize = 16

// Option is a label/value pair used by multi-select facets.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FilterState is the faceted-search selection. Each facet is OR-within,
// facets are AND-across.
type FilterState struct {
	SectionID *int64   `json:"sectionId,omitempty"`
	Authors   []Option `json:"authors,omitempty"`
	Places    []Option `json:"places,omitempty"`
	Subjects  []Option `json:"subjects,omitempty"`
	Tags      []Option `json:"tags,omitempty"`
}

// IsEmpty reports whether no facet is selected.
func (f FilterState) IsEmpty() bool {
	return f.SectionID == nil && len(f.Authors) == 0 && len(f.Places) == 0 &&
		len(f.Subjects) == 0 && len(f.Tags) == 0
}

// Values returns the option values of a facet.
func Values(opts []Option) []string {
	if len(opts) == 0 {
		return nil
	}
	values := make([]string, 0, len(opts))
	for _, o := range opts {
		values = append(values, o.Value)
	}
	return values
}

// SortBy selects the listing order.
type SortBy string

const (
	SortNewest SortBy = "newest"
	SortOldest SortBy = "oldest"
	SortViews  SortBy = "views"
	SortLikes  SortBy = "likes"
)

// ParseSortBy maps a user supplied value onto a SortBy. Absent or unknown
// values fall back to SortNewest.
func ParseSortBy(s string) SortBy {
	switch SortBy(strings.ToLower(strings.TrimSpace(s))) {
	case SortOldest:
		return SortOldest
	case SortViews:
		return SortViews
	case SortLikes:
		return SortLikes
	default:
		return SortNewest
	}
}

// SearchQuery is one listing request.
type SearchQuery struct {
	Skip    int         `json:"skip"`
	Search  string      `json:"search,omitempty"`
	SortBy  SortBy      `json:"sortBy,omitempty"`
	Filters FilterState `json:"filters"`
}

// Named is an id/name reference to a section, author, place, subject or tag.
type Named struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// ArticleSummary is the denormalized projection returned by listings.
type ArticleSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt"`
	CoverURL  string    `json:"cover_url,omitempty"`
	Language  string    `json:"language,omitempty"`
	Views     int64     `json:"views"`
	Likes     int64     `json:"likes"`
	Comments  int64     `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
	Section   *Named    `json:"section,omitempty"`
	Author    *Named    `json:"author,omitempty"`
	Tags      []Named   `json:"tags"`
	Places    []Named   `json:"places"`
	Subjects  []Named   `json:"subjects"`
}

// Article is the full article as shown on its detail page.
type Article struct {
	ArticleSummary
	Content   string    `json:"content"`
	SourceURL string    `json:"source_url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ArticleInput is the write model for creating or updating an article.
// Associations are referenced by name and created when missing.
type ArticleInput struct {
	Title     string
	Content   string
	Excerpt   string
	CoverURL  string
	Language  string
	SourceURL string
	Section   string
	Author    string
	Tags      []string
	Places    []string
	Subjects  []string
	CreatedAt time.Time
}

// SearchCandidate is the minimal projection scanned by free-text search.
type SearchCandidate struct {
	ID       int64
	Title    string
	Author   *string
	Places   []string
	Subjects []string
}

// ListPlan is the data-layer form of a listing request.
type ListPlan struct {
	Filters FilterState
	// IDs restricts results to the given ids when non-nil.
	IDs    []int64
	SortBy SortBy
	Offset int
	Limit  int
}

// Facets holds the selectable values of every facet.
type Facets struct {
	Sections []Named  `json:"sections"`
	Authors  []Option `json:"authors"`
	Places   []Option `json:"places"`
	Subjects []Option `json:"subjects"`
	Tags     []Option `json:"tags"`
}

// Comment is a reader comment on an article.
type Comment struct {
	ID        int64     `json:"id" db:"id"`
	ArticleID int64     `json:"article_id" db:"article_id"`
	Author    string    `json:"author" db:"author_name"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
