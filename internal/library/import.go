package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bstardust/memorable/internal/exif"
	"github.com/bstardust/memorable/internal/fileinfo"
	"github.com/bstardust/memorable/internal/fshelper"
	"github.com/bstardust/memorable/internal/geo"
	"github.com/bstardust/memorable/internal/logger"
	"github.com/bstardust/memorable/internal/progress"
	"github.com/bstardust/memorable/internal/sidecar"
	"github.com/bstardust/memorable/internal/worker"
	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

// ImportOutcome is the result of importing one file. Photo is set on
// success, Err otherwise.
type ImportOutcome struct {
	Path  string
	Photo *models.Photo
	Err   error
}

// OK reports whether the file was imported.
func (o ImportOutcome) OK() bool {
	return o.Err == nil
}

// Kind names the error kind of a failed outcome.
func (o ImportOutcome) Kind() string {
	return common.KindOf(o.Err)
}

// ImportReport collects the outcomes of one Import call, in input order.
type ImportReport struct {
	BatchID  string
	Outcomes []ImportOutcome
}

// Imported counts successful outcomes.
func (r ImportReport) Imported() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed counts failed outcomes.
func (r ImportReport) Failed() int {
	return len(r.Outcomes) - r.Imported()
}

type decoded struct {
	size    int64
	record  exif.Record
	sidecar *sidecar.Metadata
	err     error
}

// Import adds the image files named by paths to the library. Directories
// are expanded to the image files they contain. Files are decoded
// concurrently and persisted one at a time in input order; a failing file
// is reported in its outcome and does not stop the batch.
func (s *Service) Import(ctx context.Context, paths []string) ImportReport {
	report := ImportReport{BatchID: uuid.NewString()}
	logger.Debug("import %s: %d arguments", report.BatchID, len(paths))

	files := s.expand(paths, &report)
	outcomeAt := make(map[string]int, len(files))
	var candidates []string
	for _, f := range files {
		if f.err != nil {
			report.Outcomes = append(report.Outcomes, ImportOutcome{Path: f.path, Err: f.err})
			continue
		}
		outcomeAt[f.path] = len(report.Outcomes)
		report.Outcomes = append(report.Outcomes, ImportOutcome{Path: f.path})
		candidates = append(candidates, f.path)
	}

	reporter := progress.New("import")
	reporter.Start(len(report.Outcomes))
	for _, o := range report.Outcomes {
		if o.Err != nil {
			reporter.Error(o.Path, o.Err)
		}
	}

	results := worker.Map(s.cfg.Concurrency, candidates, func(_ int, path string) decoded {
		return s.decodeFile(ctx, path)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, path := range candidates {
		out := &report.Outcomes[outcomeAt[path]]
		res := results[i]
		if res.err == nil {
			res.err = ctx.Err()
		}
		if res.err != nil {
			out.Err = res.err
			reporter.Error(path, res.err)
			continue
		}

		photo, err := s.store.UpsertPhoto(ctx, assemblePhoto(path, res))
		if err != nil {
			out.Err = err
			reporter.Error(path, err)
			continue
		}
		out.Photo = photo
		reporter.Complete(path)
	}

	counts := reporter.Finish()
	logger.Info("import %s: %d imported, %d failed", report.BatchID, counts.Completed, counts.Errors)
	return report
}

type expanded struct {
	path string
	err  error
}

// expand turns the arguments into a de-duplicated file list. Arguments
// that cannot be read, and explicit files that are not images, carry their
// error so they surface as outcomes.
func (s *Service) expand(paths []string, report *ImportReport) []expanded {
	const op = "library.Import"
	seen := make(map[string]struct{})
	var out []expanded
	for _, arg := range paths {
		files, err := fshelper.ExpandPaths([]string{arg}, s.cfg.Recursive, fileinfo.IsImageFile)
		if err != nil {
			if _, statErr := os.Stat(arg); os.IsNotExist(statErr) {
				err = common.NewNotFoundError(op, arg)
			} else {
				err = common.NewIOError(op, err)
			}
			out = append(out, expanded{path: arg, err: err})
			continue
		}
		for _, f := range files {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			e := expanded{path: f}
			if !fileinfo.IsImageFile(f) {
				e.err = common.NewUnsupportedFormatError(op, "not an image file: "+f)
			}
			out = append(out, e)
		}
	}
	logger.Debug("import %s: %d files after expansion", report.BatchID, len(out))
	return out
}

func (s *Service) decodeFile(ctx context.Context, path string) decoded {
	if err := ctx.Err(); err != nil {
		return decoded{err: err}
	}
	info, err := os.Stat(path)
	if err != nil {
		return decoded{err: common.NewIOError("library.Import", err)}
	}
	if info.IsDir() {
		return decoded{err: common.NewValidationError("library.Import", path+" is a directory")}
	}
	rec, err := s.decode(path)
	if err != nil {
		return decoded{err: err}
	}
	out := decoded{size: info.Size(), record: rec}
	if s.cfg.Sidecars {
		out.sidecar = s.loadSidecar(path, &out.record)
	}
	return out
}

// loadSidecar fills gaps in rec from a Takeout sidecar. A broken sidecar
// does not fail the import.
func (s *Service) loadSidecar(path string, rec *exif.Record) *sidecar.Metadata {
	sc, err := sidecar.Load(path)
	if err != nil {
		logger.Warn("import: ignoring sidecar of %s: %v", path, err)
		return nil
	}
	if sc == nil {
		return nil
	}
	if filled := sc.Fill(rec); len(filled) > 0 {
		logger.Debug("import: %s took %s from its sidecar", path, strings.Join(filled, " and "))
	}
	return sc
}

func assemblePhoto(path string, res decoded) *models.Photo {
	rec := res.record
	p := &models.Photo{
		FilePath:     path,
		FileName:     filepath.Base(path),
		FileSize:     res.size,
		ImportDate:   time.Now().UTC(),
		DateTaken:    rec.DateTaken,
		CameraMake:   rec.CameraMake,
		CameraModel:  rec.CameraModel,
		LensModel:    rec.LensModel,
		FocalLength:  rec.FocalLength,
		Aperture:     rec.Aperture,
		ShutterSpeed: rec.ShutterSpeed,
		ISO:          rec.ISO,
		Width:        rec.Width,
		Height:       rec.Height,
		Orientation:  rec.Orientation,
	}
	if rec.Latitude != nil && rec.Longitude != nil {
		if geo.ValidCoordinates(*rec.Latitude, *rec.Longitude) {
			p.Latitude, p.Longitude = rec.Latitude, rec.Longitude
		} else {
			logger.Warn("import: ignoring out-of-range coordinates in %s: %v, %v", path, *rec.Latitude, *rec.Longitude)
		}
	}
	// Notes are kept on re-import, so the description only seeds new rows.
	if res.sidecar != nil && strings.TrimSpace(res.sidecar.Description) != "" {
		desc := strings.TrimSpace(res.sidecar.Description)
		p.Notes = &desc
	}
	return p
}

// String summarizes the report for logs.
func (r ImportReport) String() string {
	return fmt.Sprintf("batch %s: %d imported, %d failed", r.BatchID, r.Imported(), r.Failed())
}
