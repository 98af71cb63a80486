// Package geoip resolves visitor IP addresses to an approximate location
// using an ipwho.is compatible HTTP service.
package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"chasopis/internal/models"
)

var ErrLookupFailed = errors.New("geo lookup failed")

// maxBody bounds the response read from the lookup service.
const maxBody = 64 << 10

type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

type response struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	Country   string   `json:"country"`
	City      string   `json:"city"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// NewClient creates a client for baseURL. Outbound calls are limited to
// perSecond with the given burst; a non-positive rate disables the limit.
func NewClient(baseURL string, timeout time.Duration, perSecond float64, burst int) *Client {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Lookup resolves ip. It returns a complete GeoInfo or an error, never a
// partially filled result.
func (c *Client) Lookup(ctx context.Context, ip string) (*models.GeoInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit: %v", ErrLookupFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var r response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrLookupFailed, err)
	}
	if !r.Success {
		return nil, fmt.Errorf("%w: %s", ErrLookupFailed, r.Message)
	}
	if r.Country == "" || r.Latitude == nil || r.Longitude == nil {
		return nil, fmt.Errorf("%w: incomplete response", ErrLookupFailed)
	}

	return &models.GeoInfo{
		Country:   r.Country,
		City:      r.City,
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
	}, nil
}
