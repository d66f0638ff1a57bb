// internal/journal/journal.go
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bstardust/memorable/internal/fshelper"
	"github.com/bstardust/memorable/internal/logger"
)

// flushEvery is the number of new entries that triggers a save.
const flushEvery = 100

// Journal records which library files have been archived so an interrupted
// run can resume. Entries are keyed by the file's absolute path.
type Journal struct {
	mu         sync.Mutex
	path       string
	Uploads    map[string]UploadEntry `json:"uploads"`
	pending    int
	cancelSave context.CancelFunc
}

// UploadEntry represents a journal entry for an archived file
type UploadEntry struct {
	Path      string    `json:"path"`
	ObjectKey string    `json:"object_key"`
	Uploaded  bool      `json:"uploaded"`
	Timestamp time.Time `json:"timestamp"`
	Batch     string    `json:"batch,omitempty"`
}

// New creates an empty journal backed by path. Call Load to read existing
// entries.
func New(path string) *Journal {
	return &Journal{
		path:    path,
		Uploads: make(map[string]UploadEntry),
	}
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Load loads the journal from disk. A missing file is an empty journal.
func (j *Journal) Load() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		logger.Debug("No journal file found at %s, starting fresh", j.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	var stored struct {
		Uploads map[string]UploadEntry `json:"uploads"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parse journal %s: %w", j.path, err)
	}
	if stored.Uploads != nil {
		j.Uploads = stored.Uploads
	}
	logger.Info("Loaded journal with %d entries from %s", len(j.Uploads), j.path)
	return nil
}

// StartPeriodicSave saves the journal every interval until ctx ends or
// StopPeriodicSave is called.
func (j *Journal) StartPeriodicSave(ctx context.Context, interval time.Duration) {
	saveCtx, cancel := context.WithCancel(ctx)
	j.mu.Lock()
	j.cancelSave = cancel
	j.mu.Unlock()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := j.Save(); err != nil {
					logger.Error("Failed to perform periodic journal save: %v", err)
				}
			case <-saveCtx.Done():
				logger.Debug("Stopping periodic journal save")
				return
			}
		}
	}()
}

// StopPeriodicSave stops the goroutine started by StartPeriodicSave.
func (j *Journal) StopPeriodicSave() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancelSave != nil {
		j.cancelSave()
		j.cancelSave = nil
	}
}

// Save writes the journal to disk atomically.
func (j *Journal) Save() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.saveLocked()
}

func (j *Journal) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal journal: %w", err)
	}
	if err := fshelper.WriteFileAtomic(j.path, data, 0o644); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	j.pending = 0
	logger.Debug("Saved journal with %d entries to %s", len(j.Uploads), j.path)
	return nil
}

// MarkUploaded records path as archived under objectKey. The journal is
// flushed to disk every flushEvery entries.
func (j *Journal) MarkUploaded(path, objectKey, batch string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.Uploads[path] = UploadEntry{
		Path:      path,
		ObjectKey: objectKey,
		Uploaded:  true,
		Timestamp: time.Now().UTC(),
		Batch:     batch,
	}

	j.pending++
	if j.pending >= flushEvery {
		if err := j.saveLocked(); err != nil {
			logger.Error("Failed to save journal: %v", err)
		}
	}
}

// IsUploaded checks if a file has been archived
func (j *Journal) IsUploaded(path string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry, exists := j.Uploads[path]
	return exists && entry.Uploaded
}

// Clear drops every entry and saves the empty journal.
func (j *Journal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.Uploads = make(map[string]UploadEntry)
	return j.saveLocked()
}

// Stats returns statistics about the journal
func (j *Journal) Stats() (total int, uploaded int) {
	j.mu.Lock()
	defer j.mu.Unlock()

	total = len(j.Uploads)
	for _, entry := range j.Uploads {
		if entry.Uploaded {
			uploaded++
		}
	}

	return total, uploaded
}

// ListCompleted returns the archived paths in sorted order.
func (j *Journal) ListCompleted() []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	var completed []string
	for path, entry := range j.Uploads {
		if entry.Uploaded {
			completed = append(completed, path)
		}
	}
	sort.Strings(completed)
	return completed
}
