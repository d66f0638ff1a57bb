package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

const locationColumns = "id, name, latitude, longitude, address, category, rating, notes, created_date"

func scanLocation(s scanner) (*models.Location, error) {
	var (
		l          models.Location
		lat, lon   sql.NullFloat64
		address    sql.NullString
		category   sql.NullString
		notes      sql.NullString
		createdRaw string
	)
	if err := s.Scan(&l.ID, &l.Name, &lat, &lon, &address, &category, &l.Rating, &notes, &createdRaw); err != nil {
		return nil, err
	}
	if lat.Valid && lon.Valid {
		l.Latitude = floatPtr(lat)
		l.Longitude = floatPtr(lon)
	}
	l.Address = address.String
	l.Category = models.LocationCategory(category.String)
	l.Notes = notes.String
	l.CreatedDate = parseTime(createdRaw)
	return &l, nil
}

func validateLocation(op string, l *models.Location) error {
	if l == nil {
		return common.NewValidationError(op, "location is required")
	}
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return common.NewValidationError(op, "location name is required")
	}
	cat, ok := models.ParseLocationCategory(string(l.Category))
	if !ok {
		return common.NewValidationError(op, fmt.Sprintf("unknown category %q", l.Category))
	}
	l.Category = cat
	if err := validateRating(op, l.Rating); err != nil {
		return err
	}
	return validatePair(op, l.Latitude, l.Longitude)
}

// CreateLocation saves a new location.
func (s *Store) CreateLocation(ctx context.Context, l *models.Location) (*models.Location, error) {
	const op = "store.CreateLocation"
	if err := validateLocation(op, l); err != nil {
		return nil, err
	}
	return s.insertLocation(ctx, s.db, op, l)
}

func (s *Store) insertLocation(ctx context.Context, q execer, op string, l *models.Location) (*models.Location, error) {
	res, err := q.ExecContext(
		ctx,
		`INSERT INTO locations (name, latitude, longitude, address, category, rating, notes, created_date)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Name,
		nullablePtr(l.Latitude),
		nullablePtr(l.Longitude),
		nullableString(l.Address),
		nullableString(string(l.Category)),
		l.Rating,
		nullableString(l.Notes),
		now(),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%s: last insert id: %w", op, err)
	}
	return s.GetLocation(ctx, id)
}

// GetLocation fetches a location by id.
func (s *Store) GetLocation(ctx context.Context, id int64) (*models.Location, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = ?`, id)
	l, err := scanLocation(row)
	if err != nil {
		return nil, notFoundOr(err, "store.GetLocation", fmt.Sprintf("location %d", id))
	}
	return l, nil
}

// ListLocations returns all saved locations ordered by name.
func (s *Store) ListLocations(ctx context.Context) ([]*models.Location, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var out []*models.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("list locations: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return out, nil
}

// UpdateLocation replaces every editable column of l.ID.
func (s *Store) UpdateLocation(ctx context.Context, l *models.Location) (*models.Location, error) {
	const op = "store.UpdateLocation"
	if err := validateLocation(op, l); err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE locations
         SET name = ?, latitude = ?, longitude = ?, address = ?, category = ?, rating = ?, notes = ?
         WHERE id = ?`,
		l.Name,
		nullablePtr(l.Latitude),
		nullablePtr(l.Longitude),
		nullableString(l.Address),
		nullableString(string(l.Category)),
		l.Rating,
		nullableString(l.Notes),
		l.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := requireRows(res, op, fmt.Sprintf("location %d", l.ID)); err != nil {
		return nil, err
	}
	return s.GetLocation(ctx, l.ID)
}

// DeleteLocation removes a saved location.
func (s *Store) DeleteLocation(ctx context.Context, id int64) error {
	const op = "store.DeleteLocation"
	res, err := s.db.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireRows(res, op, fmt.Sprintf("location %d", id))
}

// CreateLocationFromPhoto saves the coordinates of a photo as a location. An
// empty name falls back to the photo's location name, then its file name.
func (s *Store) CreateLocationFromPhoto(ctx context.Context, photoID int64, name string, category models.LocationCategory) (*models.Location, error) {
	const op = "store.CreateLocationFromPhoto"
	p, err := s.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if !p.HasCoordinates() {
		return nil, common.NewValidationError(op, fmt.Sprintf("photo %d has no coordinates", photoID))
	}

	name = strings.TrimSpace(name)
	if name == "" && p.LocationName != nil {
		name = *p.LocationName
	}
	if name == "" {
		name = p.FileName
	}
	lat, lon := *p.Latitude, *p.Longitude
	l := &models.Location{
		Name:      name,
		Latitude:  &lat,
		Longitude: &lon,
		Category:  category,
	}
	if err := validateLocation(op, l); err != nil {
		return nil, err
	}
	return s.insertLocation(ctx, s.db, op, l)
}
