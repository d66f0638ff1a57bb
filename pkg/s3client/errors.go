package s3client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/bstardust/memorable/pkg/common"
)

// IsNotFoundError checks if an error is a "not found" error
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, common.ErrNotFound) {
		return true
	}

	// Check MinIO error
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch minioErr.Code {
		case "NoSuchBucket", "NoSuchKey", "NotFound":
			return true
		}
	}

	// Check error string
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "not found") || strings.Contains(errStr, "no such")
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	// Check MinIO error
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch minioErr.Code {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "AuthorizationHeaderMalformed":
			return true
		}
	}

	// Check error string
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "invalid credential") ||
		strings.Contains(errStr, "permission denied")
}

// Classify wraps an S3 error in the shared error taxonomy: missing buckets
// and keys are NotFound, everything else is a network failure (or Timeout
// when a deadline expired).
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *common.Error
	if errors.As(err, &typed) {
		return err
	}
	if IsNotFoundError(err) {
		return &common.Error{Kind: common.ErrNotFound, Op: op, Err: err}
	}
	return common.NewNetworkError(op, err)
}

// FormatError formats an error for display
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	// Check if it's a MinIO error
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		return fmt.Sprintf("S3 error: %s (code: %s)", minioErr.Message, minioErr.Code)
	}

	return err.Error()
}
