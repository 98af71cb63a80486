package visits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chasopis/internal/cache"
	"chasopis/internal/models"
)

// GeoCache remembers the location resolved for an IP address.
type GeoCache interface {
	// Lookup returns the location last resolved for ip at or after since,
	// or nil.
	Lookup(ctx context.Context, ip string, since time.Time) (*models.GeoInfo, error)
	// Remember records that ip resolved to geo at time at.
	Remember(ctx context.Context, ip string, geo models.GeoInfo, at time.Time) error
}

// GeoStore is the visit table query backing StoreCache.
type GeoStore interface {
	LatestGeo(ctx context.Context, ip string, since time.Time) (*models.GeoInfo, error)
}

// StoreCache treats the newest geolocated visit from an IP as the cache entry.
// Every stored visit is an entry, so Remember has nothing to do.
type StoreCache struct {
	store GeoStore
}

func NewStoreCache(store GeoStore) *StoreCache {
	return &StoreCache{store: store}
}

func (c *StoreCache) Lookup(ctx context.Context, ip string, since time.Time) (*models.GeoInfo, error) {
	return c.store.LatestGeo(ctx, ip, since)
}

func (c *StoreCache) Remember(context.Context, string, models.GeoInfo, time.Time) error {
	return nil
}

type geoEntry struct {
	Geo models.GeoInfo `json:"geo"`
	At  time.Time      `json:"at"`
}

func (e geoEntry) freshSince(since time.Time) *models.GeoInfo {
	if e.At.Before(since) {
		return nil
	}
	geo := e.Geo
	return &geo
}

// MemoryCache keeps entries in process memory for the freshness window.
type MemoryCache struct {
	cache  *cache.Manager
	window time.Duration
}

func NewMemoryCache(window time.Duration) *MemoryCache {
	return &MemoryCache{cache: cache.NewManager(window), window: window}
}

func (c *MemoryCache) Lookup(_ context.Context, ip string, since time.Time) (*models.GeoInfo, error) {
	v, ok := c.cache.Get(geoKey(ip))
	if !ok {
		return nil, nil
	}
	entry, ok := v.(geoEntry)
	if !ok {
		return nil, nil
	}
	return entry.freshSince(since), nil
}

func (c *MemoryCache) Remember(_ context.Context, ip string, geo models.GeoInfo, at time.Time) error {
	c.cache.Set(geoKey(ip), geoEntry{Geo: geo, At: at}, c.window)
	return nil
}

// RedisCache shares entries between instances through redis.
type RedisCache struct {
	client redis.UniversalClient
	window time.Duration
}

func NewRedisCache(client redis.UniversalClient, window time.Duration) *RedisCache {
	return &RedisCache{client: client, window: window}
}

func (c *RedisCache) Lookup(ctx context.Context, ip string, since time.Time) (*models.GeoInfo, error) {
	raw, err := c.client.Get(ctx, geoKey(ip)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var entry geoEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode geo entry: %w", err)
	}
	return entry.freshSince(since), nil
}

func (c *RedisCache) Remember(ctx context.Context, ip string, geo models.GeoInfo, at time.Time) error {
	raw, err := json.Marshal(geoEntry{Geo: geo, At: at.UTC()})
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, geoKey(ip), raw, c.window).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func geoKey(ip string) string {
	return "geo:" + ip
}
