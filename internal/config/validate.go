package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Library.DBPath) == "" {
		errs = append(errs, errors.New("library.db_path must be set"))
	}
	if c.Import.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("import.concurrency must be at least 1, got %d", c.Import.Concurrency))
	}
	if c.Geo.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("geo.timeout must be positive, got %s", c.Geo.Timeout))
	}
	if c.Geo.DefaultRadius <= 0 {
		errs = append(errs, fmt.Errorf("geo.default_radius must be positive, got %g", c.Geo.DefaultRadius))
	}
	if c.Geo.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("geo.max_retries must not be negative, got %d", c.Geo.MaxRetries))
	}
	if c.Archive.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("archive.concurrency must be at least 1, got %d", c.Archive.Concurrency))
	}
	return errors.Join(errs...)
}

// ValidateArchive checks the settings needed to reach object storage.
func (c *Config) ValidateArchive() error {
	var errs []error
	if c.S3.Endpoint == "" {
		errs = append(errs, errors.New("s3.endpoint is required"))
	}
	if err := ValidateS3BucketName(c.S3.Bucket); err != nil {
		errs = append(errs, fmt.Errorf("s3.bucket: %w", err))
	}
	if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
		errs = append(errs, errors.New("s3.access_key and s3.secret_key are required"))
	}
	return errors.Join(errs...)
}

// ValidateS3BucketName checks if the provided S3 bucket name is valid according to AWS naming conventions.
func ValidateS3BucketName(bucketName string) error {
	if len(bucketName) < 3 || len(bucketName) > 63 {
		return errors.New("bucket name must be between 3 and 63 characters")
	}
	if strings.Contains(bucketName, " ") {
		return errors.New("bucket name cannot contain spaces")
	}
	if !isDNSCompatible(bucketName) {
		return errors.New("bucket name must be DNS compliant")
	}
	return nil
}

// isDNSCompatible checks if the bucket name is DNS compliant.
func isDNSCompatible(name string) bool {
	// Bucket names must be lowercase and can contain only letters, numbers, dots and hyphens.
	for _, char := range name {
		if !(char >= 'a' && char <= 'z') && !(char >= '0' && char <= '9') && char != '-' && char != '.' {
			return false
		}
	}
	first, last := name[0], name[len(name)-1]
	return first != '-' && first != '.' && last != '-' && last != '.'
}
