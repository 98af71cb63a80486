package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"chasopis/internal/models"
)

var (
	ErrInvalidSkip    = errors.New("skip must be a non-negative integer")
	ErrInvalidSection = errors.New("section must be a positive integer")
	ErrInvalidID      = errors.New("id must be a positive integer")
	ErrSearchTooLong  = fmt.Errorf("search must be at most %d characters", MaxSearchLength)
)

// MaxSearchLength bounds the free-text search string.
const MaxSearchLength = 200

// ParseValues builds a SearchQuery from listing URL parameters:
// skip, search, sort, section and the repeatable author, place, subject, tag.
func ParseValues(values url.Values) (models.SearchQuery, error) {
	q := models.SearchQuery{
		Search: values.Get("search"),
		SortBy: models.ParseSortBy(values.Get("sort")),
	}

	if raw := values.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return q, ErrInvalidSkip
		}
		q.Skip = skip
	}

	if raw := values.Get("section"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return q, ErrInvalidSection
		}
		q.Filters.SectionID = &id
	}

	q.Filters.Authors = options(values["author"])
	q.Filters.Places = options(values["place"])
	q.Filters.Subjects = options(values["subject"])
	q.Filters.Tags = options(values["tag"])

	return q, Validate(q)
}

// Validate checks a query built from a request body.
func Validate(q models.SearchQuery) error {
	if q.Skip < 0 {
		return ErrInvalidSkip
	}
	if q.Filters.SectionID != nil && *q.Filters.SectionID <= 0 {
		return ErrInvalidSection
	}
	if len([]rune(q.Search)) > MaxSearchLength {
		return ErrSearchTooLong
	}
	return nil
}

// ParseID parses a positive numeric article id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

func options(raw []string) []models.Option {
	var opts []models.Option
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		opts = append(opts, models.Option{Label: v, Value: v})
	}
	return opts
}
