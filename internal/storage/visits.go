package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chasopis/internal/models"
)

type visitRow struct {
	ID        int64           `db:"id"`
	IP        string          `db:"ip"`
	SessionID string          `db:"session_id"`
	Path      string          `db:"path"`
	Country   sql.NullString  `db:"country"`
	City      sql.NullString  `db:"city"`
	Latitude  sql.NullFloat64 `db:"latitude"`
	Longitude sql.NullFloat64 `db:"longitude"`
	CreatedAt time.Time       `db:"created_at"`
}

func (r visitRow) geo() *models.GeoInfo {
	if !r.Country.Valid || !r.City.Valid || !r.Latitude.Valid || !r.Longitude.Valid {
		return nil
	}
	return &models.GeoInfo{
		Country:   r.Country.String,
		City:      r.City.String,
		Latitude:  r.Latitude.Float64,
		Longitude: r.Longitude.Float64,
	}
}

// LatestGeo returns the geo tuple of the newest geolocated visit from ip at or
// after since, or nil when there is none.
func (s *SQLStorage) LatestGeo(ctx context.Context, ip string, since time.Time) (*models.GeoInfo, error) {
	var row visitRow
	err := s.db.GetContext(ctx, &row, s.rebind(`
		SELECT id, ip, session_id, path, country, city, latitude, longitude, created_at
		FROM visits
		WHERE ip = ? AND created_at >= ? AND country IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1`), ip, since.UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up cached geo: %w", err)
	}
	return row.geo(), nil
}

// InsertVisit appends v and sets its id. The geo columns are written all
// together or not at all.
func (s *SQLStorage) InsertVisit(ctx context.Context, v *models.VisitRecord) error {
	var (
		country, city sql.NullString
		lat, lng      sql.NullFloat64
	)
	if v.Geo != nil {
		country = sql.NullString{String: v.Geo.Country, Valid: true}
		city = sql.NullString{String: v.Geo.City, Valid: true}
		lat = sql.NullFloat64{Float64: v.Geo.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: v.Geo.Longitude, Valid: true}
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
	}
	v.CreatedAt = v.CreatedAt.UTC()

	err := s.db.GetContext(ctx, &v.ID, s.rebind(`
		INSERT INTO visits (ip, session_id, path, country, city, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		v.IP, v.SessionID, v.Path, country, city, lat, lng, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert visit: %w", err)
	}
	return nil
}

// VisitsSince returns visits at or after since, oldest first.
func (s *SQLStorage) VisitsSince(ctx context.Context, since time.Time) ([]models.VisitRecord, error) {
	var rows []visitRow
	err := s.db.SelectContext(ctx, &rows, s.rebind(`
		SELECT id, ip, session_id, path, country, city, latitude, longitude, created_at
		FROM visits
		WHERE created_at >= ?
		ORDER BY created_at ASC, id ASC`), since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to load visits: %w", err)
	}

	visits := make([]models.VisitRecord, 0, len(rows))
	for _, r := range rows {
		visits = append(visits, models.VisitRecord{
			ID:        r.ID,
			IP:        r.IP,
			SessionID: r.SessionID,
			Path:      r.Path,
			Geo:       r.geo(),
			CreatedAt: r.CreatedAt.UTC(),
		})
	}
	return visits, nil
}
