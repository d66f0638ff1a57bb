package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bstardust/memorable/internal/store"
	"github.com/bstardust/memorable/internal/testsupport"
	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

var ptr = testsupport.Ptr[string]

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "library.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	testsupport.AddPhoto(t, st, "/photos/a.jpg")
	require.NoError(t, st.Close())

	st, err = store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	photos, err := st.ListPhotos(context.Background())
	require.NoError(t, err)
	assert.Len(t, photos, 1)
	assert.Equal(t, path, st.Path())
}

func TestReimportKeepsOneRowAndUserFields(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t)

	first := testsupport.AddPhoto(t, st, "/photos/a.jpg", func(p *models.Photo) {
		p.CameraMake = ptr("Canon")
	})
	require.NoError(t, st.SetRating(ctx, first.ID, 4))
	_, err := st.UpdatePhoto(ctx, first.ID, models.PhotoUpdate{
		Notes:        ptr("keep me"),
		LocationName: ptr("Home"),
	})
	require.NoError(t, err)

	second := testsupport.AddPhoto(t, st, "/photos/a.jpg", func(p *models.Photo) {
		p.CameraMake = ptr("Nikon")
		p.FileSize = 2048
	})

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Nikon", *second.CameraMake)
	assert.Equal(t, int64(2048), second.FileSize)
	assert.Equal(t, 4, second.Rating)
	assert.Equal(t, "keep me", *second.Notes)
	assert.Equal(t, "Home", *second.LocationName)

	photos, err := st.ListPhotos(ctx)
	require.NoError(t, err)
	assert.Len(t, photos, 1)
}

func TestReimportWithoutGPSKeepsLocation(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t)
	p := testsupport.AddPhoto(t, st, "/photos/a.jpg")
	require.NoError(t, st.BulkSetLocation(ctx, []int64{p.ID}, 48.8584, 2.2945, ptr("Paris")))

	again := testsupport.AddPhoto(t, st, "/photos/a.jpg")
	require.True(t, again.HasCoordinates())
	assert.Equal(t, 48.8584, *again.Latitude)
	assert.Equal(t, 2.2945, *again.Longitude)
	assert.Equal(t, "Paris", *again.LocationName)

	// Coordinates found in the file replace the stored pair.
	moved := testsupport.AddPhoto(t, st, "/photos/a.jpg", func(p *models.Photo) {
		p.Latitude, p.Longitude = testsupport.Ptr(41.9029), testsupport.Ptr(12.4534)
	})
	assert.Equal(t, 41.9029, *moved.Latitude)
	assert.Equal(t, 12.4534, *moved.Longitude)
}

func TestCaptureDatesAreStoredInUTC(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t)

	p := testsupport.AddPhoto(t, st, "/a.jpg", func(p *models.Photo) {
		p.DateTaken = ptr("2023-06-15T16:30:00+02:00")
	})
	assert.Equal(t, "2023-06-15T14:30:00Z", *p.DateTaken)

	got, err := st.UpdatePhoto(ctx, p.ID, models.PhotoUpdate{DateTaken: ptr("2021-12-31 23:59:59")})
	require.NoError(t, err)
	assert.Equal(t, "2021-12-31T23:59:59Z", *got.DateTaken)

	got, err = st.UpdatePhoto(ctx, p.ID, models.PhotoUpdate{DateTaken: ptr("2022-01-01T08:00:00.250+09:00")})
	require.NoError(t, err)
	assert.Equal(t, "2021-12-31T23:00:00Z", *got.DateTaken)

	_, err = st.UpdatePhoto(ctx, p.ID, models.PhotoUpdate{DateTaken: ptr("last summer")})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = st.UpsertPhoto(ctx, &models.Photo{FilePath: "/b.jpg", DateTaken: ptr("15/06/2023")})
	assert.ErrorIs(t, err, common.ErrValidation)

	unchanged, err := st.GetPhoto(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "2021-12-31T23:00:00Z", *unchanged.DateTaken)

	// An offset date sorts by its UTC instant.
	testsupport.AddPhoto(t, st, "/c.jpg", func(p *models.Photo) {
		p.DateTaken = ptr("2022-01-01T05:00:00+08:00")
	})
	photos, err := st.ListPhotos(ctx)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, "/a.jpg", photos[0].FilePath)
	assert.Equal(t, "2021-12-31T21:00:00Z", *photos[1].DateTaken)
}

func TestUpsertValidation(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t)

	_, err := st.UpsertPhoto(ctx, &models.Photo{FilePath: "/a.jpg", Rating: 6})
	assert.ErrorIs(t, err, common.ErrValidation)

	lat := 10.0
	_, err = st.UpsertPhoto(ctx, &models.Photo{FilePath: "/a.jpg", Latitude: &lat})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = st.UpsertPhoto(ctx, &models.Photo{FilePath: "  "})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestListPhotosOrdering(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	add := func(path string, taken *string, imported time.Time) {
		testsupport.AddPhoto(t, st, path, func(p *models.Photo) {
			p.DateTaken = taken
			p.ImportDate = imported
		})
	}
	add("/undated-old", nil, base)
	add("/2020", ptr("2020-05-01T10:00:00Z"), base)
	add("/2023", ptr("2023-05-01T10:00:00Z"), base)
	add("/undated-new", nil, base.Add(time.Hour))
	add("/2023-later-import", ptr("2023-05-01T10:00:00Z"), base.Add(time.Hour))

	photos, err := st.ListPhotos(ctx)
	require.NoError(t, err)
	var paths []string
	for _, p := range photos {
		paths = append(paths, p.FilePath)
	}
	assert.Equal(t, []string{"/2023-later-import", "/2023", "/2020", "/undated-new", "/undated-old"}, paths)
	assert.Equal(t, base, photos[1].ImportDate)
}

func TestUpdatePhoto(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t)
	p := testsupport.AddPhoto(t, st, "/a.jpg", func(p *models.Photo) {
		p.DateTaken = ptr("2023-01-01T00:00:00Z")
	})

	lat, lon := 48.8584, 2.2945
	got, err := st.UpdatePhoto(ctx, p.ID, models.PhotoUpdate{Latitude: &lat, Longitude: &lon, ClearDateTaken: true})
	require.NoError(t, err)
	assert.Equal(t, lat, *got.Latitude)
	assert.Nil(t, got.DateTaken)

	_, err = st.UpdatePhoto(ctx, p.ID, models.PhotoUpdate{Latitude: &lat})
	assert.ErrorIs(t, err, common.ErrValidation)

	bad := 200.0
	_, err = st.UpdatePhoto(ctx, p.ID, models.PhotoUpdate{Latitude: &lat, Longitude: &bad})
	assert.ErrorIs(t, err, common.ErrValidation)

	rating := -1
	_, err = st.UpdatePhoto(ctx, p.ID, models.PhotoUpdate{Rating: &rating})
	assert.ErrorIs(t, err, common.ErrValidation)

	got, err = st.UpdatePhoto(ctx, p.ID, models.PhotoUpdate{ClearLocation: true})
	require.NoError(t, err)
	assert.False(t, got.HasCoordinates())

	_, err = st.UpdatePhoto(ctx, 999, models.PhotoUpdate{Notes: ptr("x")})
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = st.UpdatePhoto(ctx, 999, models.PhotoUpdate{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRatingBounds(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t)
	p := testsupport.AddPhoto(t, st, "/a.jpg")

	for _, r := range []int{0, 5} {
		assert.NoError(t, st.SetRating(ctx, p.ID, r))
	}
	for _, r := range []int{-1, 6} {
		assert.ErrorIs(t, st.SetRating(ctx, p.ID, r), common.ErrValidation)
	}
	assert.ErrorIs(t, st.SetRating(ctx, 42, 3), common.ErrNotFound)
}

func TestDeletePhotoCascades(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t)
	p := testsupport.AddPhoto(t, st, "/a.jpg")
	keep := testsupport.AddPhoto(t, st, "/b.jpg")

	c, err := st.CreateCollection(ctx, "Trip", "")
	require.NoError(t, err)
	require.NoError(t, st.AddPhotosToCollection(ctx, c.ID, []int64{p.ID, keep.ID}))
	require.NoError(t, st.SetCustomMetadata(ctx, p.ID, "k", "v"))

	require.NoError(t, st.DeletePhoto(ctx, p.ID))

	members, err := st.CollectionPhotos(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, keep.ID, members[0].ID)

	_, err = st.CustomMetadata(ctx, p.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, st.DeletePhoto(ctx, p.ID), common.ErrNotFound)
}

func TestDeletePhotosIsAtomic(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t)
	a := testsupport.AddPhoto(t, st, "/a.jpg")
	b := testsupport.AddPhoto(t, st, "/b.jpg")

	err := st.DeletePhotos(ctx, []int64{a.ID, 999})
	assert.ErrorIs(t, err, common.ErrNotFound)
	photos, err := st.ListPhotos(ctx)
	require.NoError(t, err)
	assert.Len(t, photos, 2)

	require.NoError(t, st.DeletePhotos(ctx, []int64{a.ID, b.ID, a.ID}))
	photos, err = st.ListPhotos(ctx)
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestBulkSetLocation(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t)
	a := testsupport.AddPhoto(t, st, "/a.jpg")
	b := testsupport.AddPhoto(t, st, "/b.jpg", func(p *models.Photo) { p.LocationName = ptr("Old") })

	err := st.BulkSetLocation(ctx, []int64{a.ID, 999}, 1, 2, nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
	got, err := st.GetPhoto(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.HasCoordinates(), "failed batch rolls back")

	assert.ErrorIs(t, st.BulkSetLocation(ctx, []int64{a.ID}, 95, 0, nil), common.ErrValidation)
	assert.ErrorIs(t, st.BulkSetLocation(ctx, nil, 1, 2, nil), common.ErrValidation)

	require.NoError(t, st.BulkSetLocation(ctx, []int64{a.ID, b.ID}, 35.6586, 139.7454, nil))
	got, err = st.GetPhoto(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 35.6586, *got.Latitude)
	assert.Equal(t, "Old", *got.LocationName)

	require.NoError(t, st.BulkSetLocation(ctx, []int64{b.ID}, 35.6586, 139.7454, ptr("Tokyo Tower")))
	got, err = st.GetPhoto(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tokyo Tower", *got.LocationName)
}

func TestPhotosNear(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t)
	at := func(lat, lon float64) func(*models.Photo) {
		return func(p *models.Photo) { p.Latitude, p.Longitude = &lat, &lon }
	}
	testsupport.AddPhoto(t, st, "/far.jpg", at(48.8738, 2.2950))  // ~1.7 km
	testsupport.AddPhoto(t, st, "/near.jpg", at(48.8590, 2.2950)) // ~80 m
	testsupport.AddPhoto(t, st, "/here.jpg", at(48.8584, 2.2945))
	testsupport.AddPhoto(t, st, "/none.jpg")

	near, err := st.PhotosNear(ctx, 48.8584, 2.2945, 500)
	require.NoError(t, err)
	require.Len(t, near, 2)
	assert.Equal(t, "/here.jpg", near[0].Photo.FilePath)
	assert.Equal(t, "/near.jpg", near[1].Photo.FilePath)
	assert.Less(t, near[1].Distance, 500.0)

	_, err = st.PhotosNear(ctx, 48.8584, 2.2945, 0)
	assert.ErrorIs(t, err, common.ErrValidation)
}
