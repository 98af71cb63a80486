// Package pagination drives incremental loading of the article listing.
//
// Reduce is a pure state transition function; Controller runs the requests
// it emits, debounces query edits and drops responses that were superseded.
package pagination

import "chasopis/internal/models"

type Status int

const (
	Idle Status = iota
	Loading
)

func (s Status) String() string {
	if s == Loading {
		return "loading"
	}
	return "idle"
}

// Mode says how a response is merged into the loaded articles.
type Mode int

const (
	Replace Mode = iota
	Append
)

// State is the listing as seen by one client session.
type State struct {
	// Query holds search, sort and filters. Skip is derived per request.
	Query    models.SearchQuery
	Status   Status
	Mode     Mode
	Seq      uint64
	Articles []models.ArticleSummary
	// HasMore is true when the last page received was full.
	HasMore bool
	Err     error
}

// Request is a fetch the caller must perform and answer with Loaded or Failed
// carrying the same Seq.
type Request struct {
	Seq   uint64
	Query models.SearchQuery
	Mode  Mode
}

type Action interface {
	isAction()
}

type SetSearch struct{ Search string }

type SetSort struct{ Sort models.SortBy }

type SetFilters struct{ Filters models.FilterState }

// Reload replaces the results from the first page. It supersedes any request
// in flight.
type Reload struct{}

// LoadMore appends the next page. It is ignored while loading or once a short
// page has been received.
type LoadMore struct{}

type Loaded struct {
	Seq   uint64
	Items []models.ArticleSummary
}

type Failed struct {
	Seq uint64
	Err error
}

func (SetSearch) isAction()  {}
func (SetSort) isAction()    {}
func (SetFilters) isAction() {}
func (Reload) isAction()     {}
func (LoadMore) isAction()   {}
func (Loaded) isAction()     {}
func (Failed) isAction()     {}

// Reduce applies a to s. It returns the request to issue, if any.
// Query edits only update the state; issuing the reload is up to the caller.
func Reduce(s State, a Action) (State, *Request) {
	switch a := a.(type) {
	case SetSearch:
		s.Query.Search = a.Search
	case SetSort:
		s.Query.SortBy = models.ParseSortBy(string(a.Sort))
	case SetFilters:
		s.Query.Filters = a.Filters
	case Reload:
		return start(s, Replace, 0)
	case LoadMore:
		if s.Status == Loading || !s.HasMore {
			return s, nil
		}
		return start(s, Append, len(s.Articles))
	case Loaded:
		if s.Status != Loading || a.Seq != s.Seq {
			return s, nil
		}
		if s.Mode == Replace {
			s.Articles = append([]models.ArticleSummary(nil), a.Items...)
		} else {
			merged := make([]models.ArticleSummary, 0, len(s.Articles)+len(a.Items))
			merged = append(merged, s.Articles...)
			s.Articles = append(merged, a.Items...)
		}
		s.HasMore = len(a.Items) == models.PageSize
		s.Status = Idle
		s.Err = nil
	case Failed:
		if s.Status != Loading || a.Seq != s.Seq {
			return s, nil
		}
		s.Status = Idle
		s.Err = a.Err
	}
	return s, nil
}

func start(s State, mode Mode, skip int) (State, *Request) {
	s.Seq++
	s.Status = Loading
	s.Mode = mode
	s.Err = nil

	q := s.Query
	q.Skip = skip
	return s, &Request{Seq: s.Seq, Query: q, Mode: mode}
}
