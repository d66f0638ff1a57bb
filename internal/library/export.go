package library

import (
	"context"

	"github.com/bstardust/memorable/internal/exif"
	"github.com/bstardust/memorable/internal/logger"
	"github.com/bstardust/memorable/pkg/common"
)

// ExportOutcome is the result of writing one photo's metadata to its file.
type ExportOutcome struct {
	PhotoID    int64
	Path       string
	Success    bool
	Message    string
	BackupPath string
	Err        error
}

// Kind names the error kind of a failed outcome.
func (o ExportOutcome) Kind() string {
	return common.KindOf(o.Err)
}

func exportOutcome(id int64, path string, res exif.Result, err error) ExportOutcome {
	out := ExportOutcome{
		PhotoID:    id,
		Path:       path,
		Success:    res.Success && err == nil,
		Message:    res.Message,
		BackupPath: res.BackupPath,
		Err:        err,
	}
	if err != nil && out.Message == "" {
		out.Message = err.Error()
	}
	return out
}

// WriteExif writes the stored metadata of a photo into its image file. The
// store is not modified.
func (s *Service) WriteExif(ctx context.Context, photoID int64) ExportOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeExif(ctx, photoID)
}

func (s *Service) writeExif(ctx context.Context, photoID int64) ExportOutcome {
	if err := ctx.Err(); err != nil {
		return exportOutcome(photoID, "", exif.Result{}, err)
	}
	p, err := s.store.GetPhoto(ctx, photoID)
	if err != nil {
		return exportOutcome(photoID, "", exif.Result{}, err)
	}
	res, err := s.encoder.Write(p.FilePath, exif.FieldsFromPhoto(p))
	if err != nil {
		logger.Warn("Failed to write EXIF for photo %d (%s): %v", photoID, p.FilePath, err)
	} else {
		logger.Info("Wrote EXIF for photo %d to %s", photoID, p.FilePath)
	}
	return exportOutcome(photoID, p.FilePath, res, err)
}

// WriteExifBatch writes several photos in order. Each photo succeeds or
// fails on its own.
func (s *Service) WriteExifBatch(ctx context.Context, ids []int64) []ExportOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcomes := make([]ExportOutcome, 0, len(ids))
	for _, id := range ids {
		outcomes = append(outcomes, s.writeExif(ctx, id))
	}
	return outcomes
}

// RestoreBackup puts back the file saved by the last EXIF write of a photo.
func (s *Service) RestoreBackup(ctx context.Context, photoID int64) ExportOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.store.GetPhoto(ctx, photoID)
	if err != nil {
		return exportOutcome(photoID, "", exif.Result{}, err)
	}
	res, err := s.encoder.RestoreBackup(p.FilePath)
	return exportOutcome(photoID, p.FilePath, res, err)
}
