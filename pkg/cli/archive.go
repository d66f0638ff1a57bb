package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bstardust/memorable/internal/archive"
	"github.com/bstardust/memorable/internal/config"
	"github.com/bstardust/memorable/internal/journal"
	"github.com/bstardust/memorable/internal/logger"
	"github.com/bstardust/memorable/internal/retry"
	"github.com/bstardust/memorable/internal/store"
	"github.com/bstardust/memorable/pkg/models"
	"github.com/bstardust/memorable/pkg/s3client"
)

// archiveFlags mirror the s3 and archive config sections. They override
// the configuration only when given.
type archiveFlags struct {
	s3         config.S3Config
	archive    config.ArchiveConfig
	collection int64
	reset      bool
}

func newArchiveCommand(a *app) *cobra.Command {
	var f archiveFlags

	cmd := &cobra.Command{
		Use:   "archive [flags] [photo-id...]",
		Short: "Upload library originals to S3-compatible storage",
		Long: `Archive uploads the image files of the library (or of the listed photos, or
of one collection) to an S3-compatible bucket such as AWS S3, Backblaze B2 or
MinIO. Objects are keyed by capture year and month and carry the library
metadata as user metadata. A journal records finished uploads so an
interrupted run can resume.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.applyTo(cmd, a.cfg)
			return runArchive(cmd, a, f, args)
		},
	}

	// S3 connection flags
	cmd.Flags().StringVar(&f.s3.Endpoint, "endpoint", "", "S3 endpoint URL")
	cmd.Flags().StringVar(&f.s3.Region, "region", "us-east-1", "S3 region")
	cmd.Flags().StringVar(&f.s3.Bucket, "bucket", "", "S3 bucket name")
	cmd.Flags().StringVar(&f.s3.AccessKey, "access-key", "", "S3 access key")
	cmd.Flags().StringVar(&f.s3.SecretKey, "secret-key", "", "S3 secret key")
	cmd.Flags().BoolVar(&f.s3.UseSSL, "use-ssl", true, "Use SSL for S3 connection")
	cmd.Flags().StringVar(&f.s3.Prefix, "prefix", "", "Prefix for S3 object keys")

	// Archive options
	cmd.Flags().IntVar(&f.archive.Concurrency, "concurrency", 4, "Number of concurrent uploads")
	cmd.Flags().BoolVar(&f.archive.DryRun, "dry-run", false, "Simulate upload without actually uploading")
	cmd.Flags().BoolVar(&f.archive.Resume, "resume", true, "Skip photos the journal records as uploaded")
	cmd.Flags().StringVar(&f.archive.JournalPath, "journal", "", "Path to journal file for resumable uploads")
	cmd.Flags().BoolVar(&f.archive.SkipExisting, "skip-existing", true, "Skip files that already exist in the bucket")
	cmd.Flags().DurationVar(&f.archive.Timeout, "timeout", 30*time.Minute, "Give up on the whole run after this long")
	cmd.Flags().Int64Var(&f.collection, "collection", 0, "Only archive photos in this collection")
	cmd.Flags().BoolVar(&f.reset, "reset-journal", false, "Forget earlier uploads before starting")

	return cmd
}

func (f archiveFlags) applyTo(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("endpoint", func() { cfg.S3.Endpoint = f.s3.Endpoint })
	set("region", func() { cfg.S3.Region = f.s3.Region })
	set("bucket", func() { cfg.S3.Bucket = f.s3.Bucket })
	set("access-key", func() { cfg.S3.AccessKey = f.s3.AccessKey })
	set("secret-key", func() { cfg.S3.SecretKey = f.s3.SecretKey })
	set("use-ssl", func() { cfg.S3.UseSSL = f.s3.UseSSL })
	set("prefix", func() { cfg.S3.Prefix = f.s3.Prefix })
	set("concurrency", func() { cfg.Archive.Concurrency = f.archive.Concurrency })
	set("dry-run", func() { cfg.Archive.DryRun = f.archive.DryRun })
	set("resume", func() { cfg.Archive.Resume = f.archive.Resume })
	set("journal", func() { cfg.Archive.JournalPath = f.archive.JournalPath })
	set("skip-existing", func() { cfg.Archive.SkipExisting = f.archive.SkipExisting })
	set("timeout", func() { cfg.Archive.Timeout = f.archive.Timeout })
}

func runArchive(cmd *cobra.Command, a *app, f archiveFlags, args []string) error {
	cfg := a.cfg
	if err := cfg.ValidateArchive(); err != nil {
		return fmt.Errorf("invalid archive configuration: %w", err)
	}
	ids, err := parseIDs("photo", args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if cfg.Archive.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Archive.Timeout)
		defer cancel()
	}

	photos, err := selectPhotos(ctx, a, f.collection, ids)
	if err != nil {
		return err
	}
	if len(photos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No photos to archive.")
		return nil
	}

	// Initialize S3 client
	client, err := s3client.New(ctx, s3client.Config{
		Endpoint:  cfg.S3.Endpoint,
		Region:    cfg.S3.Region,
		Bucket:    cfg.S3.Bucket,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
		Prefix:    cfg.S3.Prefix,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Initialize journal for resumable uploads
	jnl := journal.New(cfg.Archive.JournalPath)
	if f.reset {
		if err := jnl.Clear(); err != nil {
			return err
		}
	} else if cfg.Archive.Resume {
		if err := jnl.Load(); err != nil {
			logger.Warn("Could not load journal: %v", err)
		}
	}
	if !cfg.Archive.DryRun {
		jnl.StartPeriodicSave(ctx, 30*time.Second)
		defer jnl.StopPeriodicSave()
	}

	archiver := archive.New(client, jnl, archive.Options{
		Concurrency:  cfg.Archive.Concurrency,
		DryRun:       cfg.Archive.DryRun,
		Resume:       cfg.Archive.Resume,
		SkipExisting: cfg.Archive.SkipExisting,
		Retry:        retry.Default(),
	})
	res, runErr := archiver.Run(ctx, photos)

	c := res.Counts
	fmt.Fprintf(cmd.OutOrStdout(), "Archived %d, skipped %d, failed %d of %d photos to s3://%s/%s (batch %s)\n",
		c.Completed, c.Skipped, c.Errors, c.Total, client.GetBucketName(), client.GetPrefix(), res.BatchID)
	if runErr != nil {
		return fmt.Errorf("archive failed: %w", runErr)
	}
	return nil
}

func selectPhotos(ctx context.Context, a *app, collection int64, ids []int64) ([]*models.Photo, error) {
	var photos []*models.Photo
	err := a.withStore(func(st *store.Store) error {
		switch {
		case len(ids) > 0:
			for _, id := range ids {
				p, err := st.GetPhoto(ctx, id)
				if err != nil {
					return err
				}
				photos = append(photos, p)
			}
			return nil
		case collection > 0:
			var err error
			photos, err = st.CollectionPhotos(ctx, collection)
			return err
		default:
			var err error
			photos, err = st.ListPhotos(ctx)
			return err
		}
	})
	return photos, err
}
