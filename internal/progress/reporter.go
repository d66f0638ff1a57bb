// internal/progress/reporter.go
package progress

import (
	"sync"
	"time"

	"github.com/bstardust/memorable/internal/logger"
)

// Counts is a snapshot of a run's progress.
type Counts struct {
	Total     int
	Completed int
	Skipped   int
	Errors    int
}

// Processed is the number of items that reached a final state.
func (c Counts) Processed() int {
	return c.Completed + c.Skipped + c.Errors
}

// Reporter tracks and logs progress of a batch operation such as an import
// or an archive run.
type Reporter struct {
	mu             sync.Mutex
	action         string
	counts         Counts
	startTime      time.Time
	lastUpdateTime time.Time
	updateInterval time.Duration
}

// New creates a progress reporter. action names the operation in log lines,
// e.g. "import".
func New(action string) *Reporter {
	if action == "" {
		action = "batch"
	}
	return &Reporter{
		action:         action,
		updateInterval: 2 * time.Second,
	}
}

// Start initializes the progress reporter with the total number of files
func (r *Reporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts = Counts{Total: total}
	r.startTime = time.Now()
	r.lastUpdateTime = r.startTime

	logger.Info("Starting %s of %d files", r.action, total)
}

// Complete marks a file as done
func (r *Reporter) Complete(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts.Completed++
	logger.Debug("%s: done %s", r.action, path)
	r.updateProgress()
}

// Skip marks a file as skipped
func (r *Reporter) Skip(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts.Skipped++
	logger.Debug("%s: skipped %s", r.action, path)
	r.updateProgress()
}

// Error marks a file as failed
func (r *Reporter) Error(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts.Errors++
	logger.Warn("%s: %s: %v", r.action, path, err)
	r.updateProgress()
}

// Counts returns the current counters.
func (r *Reporter) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts
}

// Finish completes the progress reporting and returns the final counters.
func (r *Reporter) Finish() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()

	duration := time.Since(r.startTime)
	c := r.counts
	logger.Info("Finished %s: %d/%d files done, %d skipped, %d errors in %s",
		r.action, c.Completed, c.Total, c.Skipped, c.Errors, duration.Round(time.Millisecond))
	return c
}

// updateProgress logs a progress line at most once per update interval
func (r *Reporter) updateProgress() {
	now := time.Now()
	if now.Sub(r.lastUpdateTime) < r.updateInterval {
		return
	}

	r.lastUpdateTime = now
	duration := now.Sub(r.startTime)
	c := r.counts
	processed := c.Processed()

	if processed == 0 || c.Total == 0 {
		return
	}

	percentage := float64(processed) / float64(c.Total) * 100

	// Calculate estimated time remaining
	var eta string
	if c.Completed > 0 {
		timePerFile := duration / time.Duration(processed)
		remaining := timePerFile * time.Duration(c.Total-processed)
		eta = remaining.Round(time.Second).String()
	} else {
		eta = "unknown"
	}

	logger.Info("%s progress: %.1f%% (%d/%d, %d done, %d skipped, %d errors) ETA: %s",
		r.action, percentage, processed, c.Total, c.Completed, c.Skipped, c.Errors, eta)
}
