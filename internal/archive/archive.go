// Package archive mirrors library originals to S3-compatible storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bstardust/memorable/internal/fileinfo"
	"github.com/bstardust/memorable/internal/journal"
	"github.com/bstardust/memorable/internal/logger"
	"github.com/bstardust/memorable/internal/progress"
	"github.com/bstardust/memorable/internal/retry"
	"github.com/bstardust/memorable/internal/worker"
	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
	"github.com/bstardust/memorable/pkg/s3client"
)

// Bucket is the part of the S3 client the archiver needs.
type Bucket interface {
	UploadFile(ctx context.Context, reader io.Reader, objectKey string, size int64, metadata map[string]string, contentType string) error
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
}

var _ Bucket = (*s3client.Client)(nil)

// Options control an archive run.
type Options struct {
	Concurrency  int
	DryRun       bool
	Resume       bool
	SkipExisting bool
	Retry        retry.Config
}

// Result summarizes an archive run.
type Result struct {
	BatchID string
	Counts  progress.Counts
}

// Archiver uploads photos to a bucket.
type Archiver struct {
	bucket  Bucket
	journal *journal.Journal
	opts    Options
}

// New creates an Archiver. jnl may be nil, which disables resume.
func New(bucket Bucket, jnl *journal.Journal, opts Options) *Archiver {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Archiver{bucket: bucket, journal: jnl, opts: opts}
}

// Run uploads every photo not yet archived. Failures are counted per photo;
// if any photo failed the returned error joins their causes.
func (a *Archiver) Run(ctx context.Context, photos []*models.Photo) (Result, error) {
	res := Result{BatchID: uuid.NewString()}
	logger.Info("Archive batch %s: %d photos", res.BatchID, len(photos))

	reporter := progress.New("archive")
	reporter.Start(len(photos))
	pool := worker.NewPool(a.opts.Concurrency)

	var (
		mu       sync.Mutex
		failures []error
	)
	fail := func(p *models.Photo, err error) {
		reporter.Error(p.FilePath, err)
		mu.Lock()
		failures = append(failures, fmt.Errorf("%s: %w", p.FilePath, err))
		mu.Unlock()
	}

	for _, p := range photos {
		if ctx.Err() != nil {
			break
		}
		key := ObjectKey(p)

		if a.opts.Resume && a.journal != nil && a.journal.IsUploaded(p.FilePath) {
			reporter.Skip(p.FilePath)
			continue
		}

		// Check if the file already exists in S3
		if a.opts.SkipExisting {
			exists, err := a.bucket.ObjectExists(ctx, key)
			if err != nil {
				logger.Warn("Failed to check if %s exists: %v", key, err)
			} else if exists {
				reporter.Skip(p.FilePath)
				if a.journal != nil && !a.opts.DryRun {
					a.journal.MarkUploaded(p.FilePath, key, res.BatchID)
				}
				continue
			}
		}

		pool.Submit(func() {
			err := retry.Do(ctx, "upload "+key, a.opts.Retry, func(ctx context.Context) error {
				return a.uploadFile(ctx, p, key)
			})
			if err != nil {
				fail(p, err)
				return
			}
			reporter.Complete(p.FilePath)
			if a.journal != nil && !a.opts.DryRun {
				a.journal.MarkUploaded(p.FilePath, key, res.BatchID)
			}
		})
	}

	pool.Wait()
	res.Counts = reporter.Finish()

	if a.journal != nil && !a.opts.DryRun {
		if err := a.journal.Save(); err != nil {
			logger.Error("Failed to save journal: %v", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("archive canceled: %w", err)
	}
	if len(failures) > 0 {
		return res, fmt.Errorf("archive: %d of %d photos failed: %w", len(failures), len(photos), errors.Join(failures...))
	}
	return res, nil
}

// uploadFile uploads a single photo
func (a *Archiver) uploadFile(ctx context.Context, p *models.Photo, key string) error {
	const op = "archive.upload"
	f, err := os.Open(p.FilePath)
	if err != nil {
		return retry.Permanent(common.NewIOError(op, err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return retry.Permanent(common.NewIOError(op, err))
	}

	metadata := Metadata(p)
	contentType := fileinfo.ContentType(p.FilePath)

	// Perform the upload (or simulate in dry-run mode)
	if a.opts.DryRun {
		logger.Info("DRY RUN: Would upload %s to %s (%d bytes, %s) with %d metadata fields",
			p.FilePath, key, info.Size(), contentType, len(metadata))
		return nil
	}

	err = a.bucket.UploadFile(ctx, f, key, info.Size(), metadata, contentType)
	if err != nil && s3client.IsAuthError(err) {
		return retry.Permanent(err)
	}
	return err
}

// ObjectKey places a photo under its capture year and month, or under
// "undated" when the capture date is unknown. The client adds the bucket
// prefix.
func ObjectKey(p *models.Photo) string {
	name := path.Base(p.FileName)
	if p.FileName == "" {
		name = path.Base(p.FilePath)
	}
	if p.DateTaken != nil {
		if t, ok := parseDate(*p.DateTaken); ok {
			return path.Join(t.Format("2006"), t.Format("01"), name)
		}
	}
	return path.Join("undated", name)
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Metadata returns the S3 user metadata stored with a photo's object.
// Non-ASCII values are RFC 2047 encoded.
func Metadata(p *models.Photo) map[string]string {
	m := map[string]string{
		"original-filename": p.FileName,
		"rating":            strconv.Itoa(p.Rating),
	}
	set := func(k string, v *string) {
		if v != nil && *v != "" {
			m[k] = *v
		}
	}
	set("date-taken", p.DateTaken)
	set("camera-make", p.CameraMake)
	set("camera-model", p.CameraModel)
	set("location-name", p.LocationName)
	if p.HasCoordinates() {
		m["latitude"] = strconv.FormatFloat(*p.Latitude, 'f', -1, 64)
		m["longitude"] = strconv.FormatFloat(*p.Longitude, 'f', -1, 64)
	}
	for k, v := range m {
		if !isASCII(v) {
			m[k] = mime.QEncoding.Encode("utf-8", v)
		}
	}
	return m
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
