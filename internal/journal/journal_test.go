package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalPersistsAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "journal.json")

	j := New(path)
	require.NoError(t, j.Load(), "missing file is an empty journal")
	j.MarkUploaded("/photos/b.jpg", "lib/2023/01/b.jpg", "batch-1")
	j.MarkUploaded("/photos/a.jpg", "lib/undated/a.jpg", "batch-1")
	require.NoError(t, j.Save())

	again := New(path)
	require.NoError(t, again.Load())
	assert.True(t, again.IsUploaded("/photos/a.jpg"))
	assert.False(t, again.IsUploaded("/photos/c.jpg"))
	assert.Equal(t, []string{"/photos/a.jpg", "/photos/b.jpg"}, again.ListCompleted())
	assert.Equal(t, "lib/undated/a.jpg", again.Uploads["/photos/a.jpg"].ObjectKey)

	total, uploaded := again.Stats()
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, uploaded)

	require.NoError(t, again.Clear())
	cleared := New(path)
	require.NoError(t, cleared.Load())
	assert.Empty(t, cleared.ListCompleted())
}

func TestJournalFlushesInBatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")
	j := New(path)
	for i := 0; i < flushEvery-1; i++ {
		j.MarkUploaded(fmt.Sprintf("/p/%d.jpg", i), "k", "")
	}
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	j.MarkUploaded("/p/last.jpg", "k", "")
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestJournalRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	assert.Error(t, New(path).Load())
}

func TestJournalPeriodicSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")
	j := New(path)
	j.MarkUploaded("/a.jpg", "k", "")

	j.StartPeriodicSave(context.Background(), 5*time.Millisecond)
	defer j.StopPeriodicSave()
	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 5*time.Millisecond)
}
