package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

// SetCustomMetadata stores value under key for a photo, replacing any earlier
// value.
func (s *Store) SetCustomMetadata(ctx context.Context, photoID int64, key, value string) error {
	const op = "store.SetCustomMetadata"
	key = strings.TrimSpace(key)
	if key == "" {
		return common.NewValidationError(op, "metadata key is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkPhotos(ctx, tx, op, []int64{photoID}); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM custom_metadata WHERE photo_id = ? AND key = ?`, photoID, key); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO custom_metadata (photo_id, key, value) VALUES (?, ?, ?)`,
			photoID, key, value,
		); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}

// CustomMetadata returns every key/value of a photo ordered by key.
func (s *Store) CustomMetadata(ctx context.Context, photoID int64) ([]models.CustomMetadata, error) {
	const op = "store.CustomMetadata"
	if err := checkPhotos(ctx, s.db, op, []int64{photoID}); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM custom_metadata WHERE photo_id = ? ORDER BY key`, photoID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.CustomMetadata
	for rows.Next() {
		var (
			key   string
			value sql.NullString
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, models.CustomMetadata{PhotoID: photoID, Key: key, Value: value.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// DeleteCustomMetadata removes one key from a photo.
func (s *Store) DeleteCustomMetadata(ctx context.Context, photoID int64, key string) error {
	const op = "store.DeleteCustomMetadata"
	res, err := s.db.ExecContext(ctx, `DELETE FROM custom_metadata WHERE photo_id = ? AND key = ?`, photoID, strings.TrimSpace(key))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireRows(res, op, fmt.Sprintf("key %q on photo %d", key, photoID))
}
