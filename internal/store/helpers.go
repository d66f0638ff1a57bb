package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bstardust/memorable/internal/exif"
	"github.com/bstardust/memorable/internal/geo"
	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

type scanner interface{ Scan(dest ...any) error }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func now() string {
	return formatTime(time.Now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullablePtr[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// dedupe drops repeated ids, keeping first occurrence order.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// requireRows maps a zero-row result to NotFound.
func requireRows(res sql.Result, op, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return common.NewNotFoundError(op, what)
	}
	return nil
}

func notFoundOr(err error, op, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.NewNotFoundError(op, what)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// missingIDs returns the ids with no row in table.
func missingIDs(ctx context.Context, q execer, table string, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		var one int
		err := q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return missing, nil
}

func validateRating(op string, rating int) error {
	if rating < 0 || rating > 5 {
		return common.NewValidationError(op, fmt.Sprintf("rating %d outside 0-5", rating))
	}
	return nil
}

// validatePair accepts both-nil or both-set in-range coordinates.
func validatePair(op string, lat, lon *float64) error {
	if (lat == nil) != (lon == nil) {
		return common.NewValidationError(op, "latitude and longitude must be set together")
	}
	if lat != nil && !geo.ValidCoordinates(*lat, *lon) {
		return common.NewValidationError(op, fmt.Sprintf("coordinates out of range: %v, %v", *lat, *lon))
	}
	return nil
}

// normalizeDate stores capture dates as UTC RFC 3339 so ORDER BY date_taken
// sorts chronologically. Blank means no date.
func normalizeDate(op string, raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := exif.ParseTimestamp(*raw)
	if err != nil {
		return nil, common.NewValidationError(op, fmt.Sprintf("capture date %q is not an ISO 8601 timestamp", *raw))
	}
	out := t.UTC().Format(time.RFC3339)
	return &out, nil
}

const photoColumns = "id, file_path, file_name, file_size, import_date, date_taken, latitude, longitude, location_name, camera_make, camera_model, lens_model, focal_length, aperture, shutter_speed, iso, width, height, orientation, rating, notes"

func scanPhoto(s scanner) (*models.Photo, error) {
	var (
		p            models.Photo
		fileSize     sql.NullInt64
		importRaw    string
		dateTaken    sql.NullString
		lat, lon     sql.NullFloat64
		locationName sql.NullString
		cameraMake   sql.NullString
		cameraModel  sql.NullString
		lensModel    sql.NullString
		focal        sql.NullFloat64
		aperture     sql.NullFloat64
		shutter      sql.NullString
		iso          sql.NullInt64
		width        sql.NullInt64
		height       sql.NullInt64
		orientation  sql.NullInt64
		notes        sql.NullString
	)
	if err := s.Scan(
		&p.ID,
		&p.FilePath,
		&p.FileName,
		&fileSize,
		&importRaw,
		&dateTaken,
		&lat,
		&lon,
		&locationName,
		&cameraMake,
		&cameraModel,
		&lensModel,
		&focal,
		&aperture,
		&shutter,
		&iso,
		&width,
		&height,
		&orientation,
		&p.Rating,
		&notes,
	); err != nil {
		return nil, err
	}

	p.FileSize = fileSize.Int64
	p.ImportDate = parseTime(importRaw)
	p.DateTaken = strPtr(dateTaken)
	if lat.Valid && lon.Valid {
		p.Latitude = floatPtr(lat)
		p.Longitude = floatPtr(lon)
	}
	p.LocationName = strPtr(locationName)
	p.CameraMake = strPtr(cameraMake)
	p.CameraModel = strPtr(cameraModel)
	p.LensModel = strPtr(lensModel)
	p.FocalLength = floatPtr(focal)
	p.Aperture = floatPtr(aperture)
	p.ShutterSpeed = strPtr(shutter)
	p.ISO = intPtr(iso)
	p.Width = intPtr(width)
	p.Height = intPtr(height)
	p.Orientation = intPtr(orientation)
	p.Notes = strPtr(notes)
	return &p, nil
}

func scanPhotos(rows *sql.Rows) ([]*models.Photo, error) {
	defer rows.Close()
	var photos []*models.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}
