package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bstardust/memorable/internal/store"
	"github.com/bstardust/memorable/pkg/models"
)

// MustOpenStore opens a store.Store in a temporary directory for tests and
// registers cleanup.
func MustOpenStore(t testing.TB) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// AddPhoto upserts a photo at path for tests, applying optional mutators
// first.
func AddPhoto(t testing.TB, st *store.Store, path string, mutate ...func(*models.Photo)) *models.Photo {
	t.Helper()

	p := &models.Photo{
		FilePath: path,
		FileName: filepath.Base(path),
		FileSize: 1024,
	}
	for _, m := range mutate {
		m(p)
	}
	out, err := st.UpsertPhoto(context.Background(), p)
	if err != nil {
		t.Fatalf("store.UpsertPhoto: %v", err)
	}
	return out
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
