package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bstardust/memorable/internal/geo"
	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

// UpsertPhoto inserts p or, when a row with the same file path exists,
// refreshes its file and camera columns in place. The id, rating, notes and
// location name of an existing row survive a re-import, and so do its
// coordinates when the file carries none.
func (s *Store) UpsertPhoto(ctx context.Context, p *models.Photo) (*models.Photo, error) {
	const op = "store.UpsertPhoto"
	if p == nil || strings.TrimSpace(p.FilePath) == "" {
		return nil, common.NewValidationError(op, "file path is required")
	}
	if err := validateRating(op, p.Rating); err != nil {
		return nil, err
	}
	if err := validatePair(op, p.Latitude, p.Longitude); err != nil {
		return nil, err
	}
	dateTaken, err := normalizeDate(op, p.DateTaken)
	if err != nil {
		return nil, err
	}

	importDate := now()
	if !p.ImportDate.IsZero() {
		importDate = formatTime(p.ImportDate)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO photos (
            file_path, file_name, file_size, import_date, date_taken, latitude, longitude,
            location_name, camera_make, camera_model, lens_model, focal_length, aperture,
            shutter_speed, iso, width, height, orientation, rating, notes
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(file_path) DO UPDATE SET
            file_name = excluded.file_name,
            file_size = excluded.file_size,
            import_date = excluded.import_date,
            date_taken = excluded.date_taken,
            latitude = COALESCE(excluded.latitude, photos.latitude),
            longitude = COALESCE(excluded.longitude, photos.longitude),
            camera_make = excluded.camera_make,
            camera_model = excluded.camera_model,
            lens_model = excluded.lens_model,
            focal_length = excluded.focal_length,
            aperture = excluded.aperture,
            shutter_speed = excluded.shutter_speed,
            iso = excluded.iso,
            width = excluded.width,
            height = excluded.height,
            orientation = excluded.orientation`,
		p.FilePath,
		p.FileName,
		p.FileSize,
		importDate,
		nullablePtr(dateTaken),
		nullablePtr(p.Latitude),
		nullablePtr(p.Longitude),
		nullablePtr(p.LocationName),
		nullablePtr(p.CameraMake),
		nullablePtr(p.CameraModel),
		nullablePtr(p.LensModel),
		nullablePtr(p.FocalLength),
		nullablePtr(p.Aperture),
		nullablePtr(p.ShutterSpeed),
		nullablePtr(p.ISO),
		nullablePtr(p.Width),
		nullablePtr(p.Height),
		nullablePtr(p.Orientation),
		p.Rating,
		nullablePtr(p.Notes),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetPhotoByPath(ctx, p.FilePath)
}

// GetPhoto fetches a photo by id.
func (s *Store) GetPhoto(ctx context.Context, id int64) (*models.Photo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = ?`, id)
	p, err := scanPhoto(row)
	if err != nil {
		return nil, notFoundOr(err, "store.GetPhoto", fmt.Sprintf("photo %d", id))
	}
	return p, nil
}

// GetPhotoByPath fetches a photo by its file path.
func (s *Store) GetPhotoByPath(ctx context.Context, path string) (*models.Photo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE file_path = ?`, path)
	p, err := scanPhoto(row)
	if err != nil {
		return nil, notFoundOr(err, "store.GetPhotoByPath", path)
	}
	return p, nil
}

// ListPhotos returns every photo, newest capture first. Photos without a
// capture date come last; ties break on import date, newest first.
func (s *Store) ListPhotos(ctx context.Context) ([]*models.Photo, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+photoColumns+` FROM photos
         ORDER BY date_taken IS NULL, date_taken DESC, import_date DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	photos, err := scanPhotos(rows)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return photos, nil
}

// UpdatePhoto applies the non-nil fields of u to photo id and returns the
// updated row.
func (s *Store) UpdatePhoto(ctx context.Context, id int64, u models.PhotoUpdate) (*models.Photo, error) {
	const op = "store.UpdatePhoto"

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	switch {
	case u.ClearDateTaken:
		set("date_taken", nil)
	case u.DateTaken != nil:
		d, err := normalizeDate(op, u.DateTaken)
		if err != nil {
			return nil, err
		}
		set("date_taken", nullablePtr(d))
	}

	switch {
	case u.ClearLocation:
		set("latitude", nil)
		set("longitude", nil)
	case u.Latitude != nil || u.Longitude != nil:
		if err := validatePair(op, u.Latitude, u.Longitude); err != nil {
			return nil, err
		}
		set("latitude", *u.Latitude)
		set("longitude", *u.Longitude)
	}

	if u.LocationName != nil {
		set("location_name", nullableString(strings.TrimSpace(*u.LocationName)))
	}
	if u.Rating != nil {
		if err := validateRating(op, *u.Rating); err != nil {
			return nil, err
		}
		set("rating", *u.Rating)
	}
	if u.Notes != nil {
		set("notes", nullableString(*u.Notes))
	}
	if u.CameraMake != nil {
		set("camera_make", nullableString(*u.CameraMake))
	}
	if u.CameraModel != nil {
		set("camera_model", nullableString(*u.CameraModel))
	}
	if u.LensModel != nil {
		set("lens_model", nullableString(*u.LensModel))
	}
	if u.FocalLength != nil {
		set("focal_length", *u.FocalLength)
	}
	if u.Aperture != nil {
		set("aperture", *u.Aperture)
	}
	if u.ShutterSpeed != nil {
		set("shutter_speed", nullableString(*u.ShutterSpeed))
	}
	if u.ISO != nil {
		set("iso", *u.ISO)
	}

	if len(sets) == 0 {
		return s.GetPhoto(ctx, id)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE photos SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := requireRows(res, op, fmt.Sprintf("photo %d", id)); err != nil {
		return nil, err
	}
	return s.GetPhoto(ctx, id)
}

// SetRating sets the 0-5 star rating of a photo.
func (s *Store) SetRating(ctx context.Context, id int64, rating int) error {
	const op = "store.SetRating"
	if err := validateRating(op, rating); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE photos SET rating = ? WHERE id = ?`, rating, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireRows(res, op, fmt.Sprintf("photo %d", id))
}

// DeletePhoto removes a photo with its memberships and custom metadata.
func (s *Store) DeletePhoto(ctx context.Context, id int64) error {
	const op = "store.DeletePhoto"
	res, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireRows(res, op, fmt.Sprintf("photo %d", id))
}

// DeletePhotos removes several photos in one transaction. If any id is
// unknown nothing is deleted.
func (s *Store) DeletePhotos(ctx context.Context, ids []int64) error {
	const op = "store.DeletePhotos"
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkPhotos(ctx, tx, op, ids); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE id IN (`+placeholders(len(ids))+`)`, int64Args(ids)...)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}

// BulkSetLocation assigns one coordinate pair to every listed photo in a
// single transaction. A non-nil name also replaces the location name.
func (s *Store) BulkSetLocation(ctx context.Context, ids []int64, lat, lon float64, name *string) error {
	const op = "store.BulkSetLocation"
	if !geo.ValidCoordinates(lat, lon) {
		return common.NewValidationError(op, fmt.Sprintf("coordinates out of range: %v, %v", lat, lon))
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return common.NewValidationError(op, "no photos given")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkPhotos(ctx, tx, op, ids); err != nil {
			return err
		}
		query := `UPDATE photos SET latitude = ?, longitude = ? WHERE id = ?`
		for _, id := range ids {
			args := []any{lat, lon, id}
			if name != nil {
				query = `UPDATE photos SET latitude = ?, longitude = ?, location_name = ? WHERE id = ?`
				args = []any{lat, lon, nullableString(strings.TrimSpace(*name)), id}
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("%s: photo %d: %w", op, id, err)
			}
		}
		return nil
	})
}

// NearbyPhoto is a photo with its distance from a query point.
type NearbyPhoto struct {
	Photo    *models.Photo
	Distance float64
}

// PhotosNear returns photos within radius meters of (lat, lon), closest
// first. A bounding box on the location index narrows the candidates before
// the exact distance check.
func (s *Store) PhotosNear(ctx context.Context, lat, lon, radius float64) ([]NearbyPhoto, error) {
	const op = "store.PhotosNear"
	if !geo.ValidCoordinates(lat, lon) {
		return nil, common.NewValidationError(op, fmt.Sprintf("coordinates out of range: %v, %v", lat, lon))
	}
	if radius <= 0 {
		return nil, common.NewValidationError(op, "radius must be positive")
	}

	dLat := radius / geo.EarthRadius * 180 / math.Pi
	dLon := 180.0
	if c := math.Cos(lat * math.Pi / 180); c > 1e-9 {
		dLon = math.Min(180, dLat/c)
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+photoColumns+` FROM photos
         WHERE latitude BETWEEN ? AND ? AND longitude IS NOT NULL`,
		lat-dLat, lat+dLat,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	photos, err := scanPhotos(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out []NearbyPhoto
	for _, p := range photos {
		if !p.HasCoordinates() {
			continue
		}
		if dLon < 180 && math.Abs(*p.Longitude-lon) > dLon && 360-math.Abs(*p.Longitude-lon) > dLon {
			continue
		}
		d := geo.Haversine(lat, lon, *p.Latitude, *p.Longitude)
		if d <= radius {
			out = append(out, NearbyPhoto{Photo: p, Distance: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

func checkPhotos(ctx context.Context, q execer, op string, ids []int64) error {
	missing, err := missingIDs(ctx, q, "photos", ids)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(missing) > 0 {
		return common.NewNotFoundError(op, fmt.Sprintf("photos %v", missing))
	}
	return nil
}
