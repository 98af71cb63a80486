package models

import (
	"encoding/json"
	"time"
)

// GeoInfo is a resolved location. A visit either carries all of it or none.
type GeoInfo struct {
	Country   string  `json:"country"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// VisitInput describes one page view to be logged.
type VisitInput struct {
	IP        string `json:"ip"`
	SessionID string `json:"session_id"`
	Path      string `json:"path"`
}

// VisitRecord is one stored page view.
type VisitRecord struct {
	ID        int64     `json:"id"`
	IP        string    `json:"ip"`
	SessionID string    `json:"session_id"`
	Path      string    `json:"path"`
	Geo       *GeoInfo  `json:"geo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CityCount is one row of the city ranking.
type CityCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// PageCount is one row of the popular pages ranking.
type PageCount struct {
	Path  string `json:"path"`
	Title string `json:"title"`
	Count int    `json:"count"`
}

// LikedArticle is an engagement leader by likes.
type LikedArticle struct {
	ID    int64  `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
	Likes int    `json:"likes" db:"cnt"`
}

// CommentedArticle is an engagement leader by comments.
type CommentedArticle struct {
	ID    int64  `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
	Count int    `json:"count" db:"cnt"`
}

// MapPoint is a geolocated visit for the dashboard map.
type MapPoint struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	City string  `json:"city"`
	Path string  `json:"path"`
}

// Dashboard is the aggregated analytics for [Since, now).
type Dashboard struct {
	Since          time.Time          `json:"since"`
	Total          int                `json:"total"`
	UniqueSessions int                `json:"uniqueSessions"`
	ByCity         []CityCount        `json:"byCity"`
	PopularPages   []PageCount        `json:"popularPages"`
	NewComments    int                `json:"newComments"`
	TopLiked       []LikedArticle     `json:"topLiked"`
	TopCommented   []CommentedArticle `json:"topCommented"`
	Points         []MapPoint         `json:"points"`
	Timeline       map[string]int     `json:"timeline"`
}

// MarshalJSON encodes the row as a [label, count] pair.
func (c CityCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Label, c.Count})
}
