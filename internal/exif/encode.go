package exif

import (
	"fmt"
	"os"

	"github.com/bstardust/memorable/internal/fileinfo"
	"github.com/bstardust/memorable/internal/fshelper"
	"github.com/bstardust/memorable/internal/logger"
	"github.com/bstardust/memorable/pkg/common"
)

// BackupSuffix is appended to a file name for the pre-write copy.
const BackupSuffix = ".backup"

// Result reports the outcome of a write.
type Result struct {
	Success    bool
	Message    string
	BackupPath string
}

// Encoder writes Fields into JPEG files on disk.
type Encoder struct {
	copyFile  func(src, dst string) error
	writeFile func(path string, data []byte, perm os.FileMode) error
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithFileOps overrides the copy and write primitives.
func WithFileOps(copyFile func(src, dst string) error, writeFile func(string, []byte, os.FileMode) error) EncoderOption {
	return func(e *Encoder) {
		if copyFile != nil {
			e.copyFile = copyFile
		}
		if writeFile != nil {
			e.writeFile = writeFile
		}
	}
}

// NewEncoder returns an Encoder using atomic file operations.
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{
		copyFile:  fshelper.CopyFile,
		writeFile: fshelper.WriteFileAtomic,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode returns jpeg with f merged into its EXIF block.
func Encode(jpeg []byte, f Fields) ([]byte, error) {
	const op = "exif.Encode"
	if !IsJPEG(jpeg) {
		return nil, common.NewUnsupportedFormatError(op, "not a jpeg stream")
	}
	d := Load(jpeg)
	if err := Apply(d, f); err != nil {
		return nil, err
	}
	payload, err := Dump(d)
	if err != nil {
		// Usually an oversized thumbnail; drop it and try once more.
		if len(d.Thumbnail) == 0 {
			return nil, common.NewValidationError(op, err.Error())
		}
		logger.Debug("exif: dropping thumbnail: %v", err)
		d.Thumbnail = nil
		d.Groups[GroupFirst] = IFD{}
		if payload, err = Dump(d); err != nil {
			return nil, common.NewValidationError(op, err.Error())
		}
	}
	return Splice(jpeg, payload)
}

// Write merges f into the JPEG at path. The original is first copied to
// path+BackupSuffix; the new bytes then replace the original through a
// temporary file and rename. Any failure leaves the original untouched.
func (e *Encoder) Write(path string, f Fields) (Result, error) {
	const op = "exif.Write"
	if !fileinfo.IsJPEGFile(path) {
		err := common.NewUnsupportedFormatError(op, fmt.Sprintf("%s: only .jpg and .jpeg files can be written", path))
		return Result{Message: err.Error()}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return e.fail(common.NewIOError(op, err))
	}
	original, err := os.ReadFile(path)
	if err != nil {
		return e.fail(common.NewIOError(op, err))
	}

	updated, err := Encode(original, f)
	if err != nil {
		return e.fail(err)
	}

	backup := path + BackupSuffix
	if err := e.copyFile(path, backup); err != nil {
		return e.fail(common.NewIOError(op, fmt.Errorf("backup %s: %w", backup, err)))
	}
	if err := e.writeFile(path, updated, info.Mode().Perm()); err != nil {
		return e.fail(common.NewIOError(op, fmt.Errorf("write %s: %w", path, err)))
	}

	logger.Debug("exif: wrote %d bytes to %s (backup %s)", len(updated), path, backup)
	return Result{
		Success:    true,
		Message:    "EXIF data written successfully",
		BackupPath: backup,
	}, nil
}

// RestoreBackup copies path+BackupSuffix back over path.
func (e *Encoder) RestoreBackup(path string) (Result, error) {
	const op = "exif.RestoreBackup"
	backup := path + BackupSuffix
	if _, err := os.Stat(backup); err != nil {
		if os.IsNotExist(err) {
			return e.fail(common.NewNotFoundError(op, "no backup for "+path))
		}
		return e.fail(common.NewIOError(op, err))
	}
	if err := e.copyFile(backup, path); err != nil {
		return e.fail(common.NewIOError(op, err))
	}
	return Result{Success: true, Message: "restored from backup", BackupPath: backup}, nil
}

func (e *Encoder) fail(err error) (Result, error) {
	return Result{Message: err.Error()}, err
}
