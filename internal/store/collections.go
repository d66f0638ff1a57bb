package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

const collectionColumns = "id, name, description, created_date"

func scanCollection(s scanner) (*models.Collection, error) {
	var (
		c           models.Collection
		description sql.NullString
		createdRaw  string
	)
	if err := s.Scan(&c.ID, &c.Name, &description, &createdRaw); err != nil {
		return nil, err
	}
	c.Description = description.String
	c.CreatedDate = parseTime(createdRaw)
	return &c, nil
}

func scanCollections(rows *sql.Rows) ([]*models.Collection, error) {
	defer rows.Close()
	var out []*models.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCollection adds a named collection.
func (s *Store) CreateCollection(ctx context.Context, name, description string) (*models.Collection, error) {
	const op = "store.CreateCollection"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.NewValidationError(op, "collection name is required")
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO collections (name, description, created_date) VALUES (?, ?, ?)`,
		name, nullableString(description), now(),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%s: last insert id: %w", op, err)
	}
	return s.GetCollection(ctx, id)
}

// GetCollection fetches a collection by id.
func (s *Store) GetCollection(ctx context.Context, id int64) (*models.Collection, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)
	c, err := scanCollection(row)
	if err != nil {
		return nil, notFoundOr(err, "store.GetCollection", fmt.Sprintf("collection %d", id))
	}
	return c, nil
}

// ListCollections returns all collections ordered by name.
func (s *Store) ListCollections(ctx context.Context) ([]*models.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+collectionColumns+` FROM collections ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out, err := scanCollections(rows)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return out, nil
}

// UpdateCollection renames a collection and replaces its description.
func (s *Store) UpdateCollection(ctx context.Context, id int64, name, description string) (*models.Collection, error) {
	const op = "store.UpdateCollection"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.NewValidationError(op, "collection name is required")
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE collections SET name = ?, description = ? WHERE id = ?`,
		name, nullableString(description), id,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := requireRows(res, op, fmt.Sprintf("collection %d", id)); err != nil {
		return nil, err
	}
	return s.GetCollection(ctx, id)
}

// DeleteCollection removes a collection and its memberships. Photos stay.
func (s *Store) DeleteCollection(ctx context.Context, id int64) error {
	const op = "store.DeleteCollection"
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireRows(res, op, fmt.Sprintf("collection %d", id))
}

// AddToCollection adds one photo to a collection. Adding a member twice is a
// no-op.
func (s *Store) AddToCollection(ctx context.Context, photoID, collectionID int64) error {
	return s.AddPhotosToCollection(ctx, collectionID, []int64{photoID})
}

// AddPhotosToCollection adds photos to a collection in one transaction. If the
// collection or any photo is unknown nothing is added.
func (s *Store) AddPhotosToCollection(ctx context.Context, collectionID int64, photoIDs []int64) error {
	const op = "store.AddPhotosToCollection"
	photoIDs = dedupe(photoIDs)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkCollection(ctx, tx, op, collectionID); err != nil {
			return err
		}
		if err := checkPhotos(ctx, tx, op, photoIDs); err != nil {
			return err
		}
		added := now()
		for _, id := range photoIDs {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT OR IGNORE INTO photo_collections (photo_id, collection_id, added_date) VALUES (?, ?, ?)`,
				id, collectionID, added,
			); err != nil {
				return fmt.Errorf("%s: photo %d: %w", op, id, err)
			}
		}
		return nil
	})
}

// RemoveFromCollection drops one photo from a collection.
func (s *Store) RemoveFromCollection(ctx context.Context, photoID, collectionID int64) error {
	return s.RemovePhotosFromCollection(ctx, collectionID, []int64{photoID})
}

// RemovePhotosFromCollection drops photos from a collection in one
// transaction. Photos that are not members are ignored.
func (s *Store) RemovePhotosFromCollection(ctx context.Context, collectionID int64, photoIDs []int64) error {
	const op = "store.RemovePhotosFromCollection"
	photoIDs = dedupe(photoIDs)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkCollection(ctx, tx, op, collectionID); err != nil {
			return err
		}
		if len(photoIDs) == 0 {
			return nil
		}
		args := append(int64Args(photoIDs), collectionID)
		_, err := tx.ExecContext(
			ctx,
			`DELETE FROM photo_collections WHERE photo_id IN (`+placeholders(len(photoIDs))+`) AND collection_id = ?`,
			args...,
		)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}

// CollectionPhotos returns the members of a collection, most recently added
// first.
func (s *Store) CollectionPhotos(ctx context.Context, collectionID int64) ([]*models.Photo, error) {
	const op = "store.CollectionPhotos"
	if err := checkCollection(ctx, s.db, op, collectionID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+prefixed("p", photoColumns)+` FROM photos p
         JOIN photo_collections pc ON p.id = pc.photo_id
         WHERE pc.collection_id = ?
         ORDER BY pc.added_date DESC, pc.rowid DESC`,
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	photos, err := scanPhotos(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return photos, nil
}

// PhotoCollections returns the collections a photo belongs to, by name.
func (s *Store) PhotoCollections(ctx context.Context, photoID int64) ([]*models.Collection, error) {
	const op = "store.PhotoCollections"
	if err := checkPhotos(ctx, s.db, op, []int64{photoID}); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+prefixed("c", collectionColumns)+` FROM collections c
         JOIN photo_collections pc ON c.id = pc.collection_id
         WHERE pc.photo_id = ?
         ORDER BY c.name, c.id`,
		photoID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := scanCollections(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func checkCollection(ctx context.Context, q execer, op string, id int64) error {
	missing, err := missingIDs(ctx, q, "collections", []int64{id})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(missing) > 0 {
		return common.NewNotFoundError(op, fmt.Sprintf("collection %d", id))
	}
	return nil
}

// prefixed qualifies a column list with a table alias.
func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}
