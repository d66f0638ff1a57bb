package library_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bstardust/memorable/internal/exif"
	"github.com/bstardust/memorable/internal/library"
	"github.com/bstardust/memorable/internal/testsupport"
	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

var ptr = testsupport.Ptr[string]

type mockPlaces struct {
	mock.Mock
}

func (m *mockPlaces) Nearby(ctx context.Context, lat, lon, radius float64) ([]models.Place, error) {
	args := m.Called(ctx, lat, lon, radius)
	found, _ := args.Get(0).([]models.Place)
	return found, args.Error(1)
}

type stubGeocoder struct {
	addr models.Address
	err  error
}

func (g stubGeocoder) Reverse(context.Context, float64, float64) (models.Address, error) {
	return g.addr, g.err
}

func canonFields() exif.Fields {
	return exif.Fields{
		CameraMake:  ptr("Canon"),
		CameraModel: ptr("EOS R5"),
		DateTaken:   ptr("2022-08-01T09:15:00Z"),
		ISO:         testsupport.Ptr(200),
		Latitude:    testsupport.Ptr(51.5007),
		Longitude:   testsupport.Ptr(-0.1246),
	}
}

func newService(t *testing.T, opts ...library.Option) *library.Service {
	t.Helper()
	return library.New(testsupport.MustOpenStore(t), library.Config{Concurrency: 3, Recursive: true}, opts...)
}

func TestImportDecodesAndPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := testsupport.WriteJPEG(t, dir, "a.jpg", canonFields())
	testsupport.WriteFile(t, dir, "sub/b.jpeg", testsupport.MinimalJPEG())
	testsupport.WriteFile(t, dir, "notes.txt", []byte("not a photo"))

	svc := newService(t)
	report := svc.Import(ctx, []string{dir})
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, 2, report.Imported())
	assert.Zero(t, report.Failed())
	assert.NotEmpty(t, report.BatchID)

	first := report.Outcomes[0]
	require.True(t, first.OK(), "%v", first.Err)
	assert.Equal(t, a, first.Path)
	p := first.Photo
	assert.Equal(t, "a.jpg", p.FileName)
	assert.Positive(t, p.FileSize)
	assert.Equal(t, "Canon", *p.CameraMake)
	assert.Equal(t, "2022-08-01T09:15:00Z", *p.DateTaken)
	assert.Equal(t, 200, *p.ISO)
	assert.InDelta(t, 51.5007, *p.Latitude, 1.0/3600)
	assert.InDelta(t, -0.1246, *p.Longitude, 1.0/3600)

	bare := report.Outcomes[1].Photo
	require.NotNil(t, bare)
	assert.Nil(t, bare.DateTaken)
	assert.False(t, bare.HasCoordinates())

	// Importing again updates rows in place.
	again := svc.Import(ctx, []string{dir, a})
	require.Len(t, again.Outcomes, 2)
	assert.Equal(t, p.ID, again.Outcomes[0].Photo.ID)
	assert.NotEqual(t, report.BatchID, again.BatchID)

	photos, err := svc.Store().ListPhotos(ctx)
	require.NoError(t, err)
	assert.Len(t, photos, 2)
}

func TestImportIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	txt := testsupport.WriteFile(t, dir, "readme.txt", []byte("x"))
	bad := testsupport.WriteJPEG(t, dir, "bad.jpg", exif.Fields{})
	good := testsupport.WriteJPEG(t, dir, "good.jpg", canonFields())
	missing := filepath.Join(dir, "missing.jpg")

	svc := newService(t, library.WithDecoder(func(path string) (exif.Record, error) {
		if filepath.Base(path) == "bad.jpg" {
			return exif.Record{}, common.NewIOError("decode", errors.New("unreadable"))
		}
		return exif.DecodeFile(path)
	}))

	report := svc.Import(ctx, []string{missing, txt, bad, good})
	require.Len(t, report.Outcomes, 4)
	assert.Equal(t, "NotFound", report.Outcomes[0].Kind())
	assert.Equal(t, "UnsupportedFormat", report.Outcomes[1].Kind())
	assert.Equal(t, "IOFailure", report.Outcomes[2].Kind())
	assert.True(t, report.Outcomes[3].OK())
	assert.Equal(t, good, report.Outcomes[3].Path)
	assert.Equal(t, 1, report.Imported())
	assert.Equal(t, 3, report.Failed())

	photos, err := svc.Store().ListPhotos(ctx)
	require.NoError(t, err)
	assert.Len(t, photos, 1)
}

func TestImportFillsGapsFromSidecar(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	bare := testsupport.WriteFile(t, dir, "IMG_0042.jpg", testsupport.MinimalJPEG())
	testsupport.WriteFile(t, dir, "IMG_0042.jpg.json", []byte(`{
		"description": "Harbour at dusk",
		"photoTakenTime": {"timestamp": "1686839400"},
		"geoData": {"latitude": 43.2965, "longitude": 5.3698}
	}`))
	tagged := testsupport.WriteJPEG(t, dir, "tagged.jpg", canonFields())
	testsupport.WriteFile(t, dir, "tagged.jpg.json", []byte(`{
		"photoTakenTime": {"timestamp": "1"},
		"geoData": {"latitude": 1, "longitude": 1}
	}`))

	svc := library.New(testsupport.MustOpenStore(t), library.Config{Concurrency: 2, Sidecars: true})
	report := svc.Import(ctx, []string{bare, tagged})
	require.Equal(t, 2, report.Imported())

	p := report.Outcomes[0].Photo
	assert.Equal(t, "2023-06-15T14:30:00Z", *p.DateTaken)
	assert.Equal(t, 43.2965, *p.Latitude)
	assert.Equal(t, "Harbour at dusk", *p.Notes)

	q := report.Outcomes[1].Photo
	assert.Equal(t, "2022-08-01T09:15:00Z", *q.DateTaken)
	assert.InDelta(t, 51.5007, *q.Latitude, 1.0/3600)

	off := newService(t)
	report = off.Import(ctx, []string{bare})
	require.Equal(t, 1, report.Imported())
	assert.Nil(t, report.Outcomes[0].Photo.DateTaken)
}

func TestImportStopsWhenCanceled(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteJPEG(t, dir, "a.jpg", canonFields())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newService(t)
	report := svc.Import(ctx, []string{dir})
	require.Len(t, report.Outcomes, 1)
	assert.ErrorIs(t, report.Outcomes[0].Err, context.Canceled)

	photos, err := svc.Store().ListPhotos(context.Background())
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestWriteExifUsesStoredRow(t *testing.T) {
	ctx := context.Background()
	path := testsupport.WriteJPEG(t, t.TempDir(), "a.jpg", canonFields())
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	svc := newService(t)
	report := svc.Import(ctx, []string{path})
	require.Equal(t, 1, report.Imported())
	id := report.Outcomes[0].Photo.ID

	_, err = svc.Store().UpdatePhoto(ctx, id, models.PhotoUpdate{
		CameraMake: ptr("Nikon"),
		Rating:     testsupport.Ptr(3),
		Notes:      ptr("Big Ben"),
	})
	require.NoError(t, err)
	before, err := svc.Store().GetPhoto(ctx, id)
	require.NoError(t, err)

	out := svc.WriteExif(ctx, id)
	require.NoError(t, out.Err)
	assert.True(t, out.Success)
	assert.Equal(t, path+exif.BackupSuffix, out.BackupPath)

	backup, err := os.ReadFile(out.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, original, backup)

	rec, err := exif.DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Nikon", *rec.CameraMake)
	assert.Equal(t, "EOS R5", *rec.CameraModel)

	after, err := svc.Store().GetPhoto(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after, "export does not touch the store")
}

func TestWriteExifRejectsNonJPEG(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	png := testsupport.WriteFile(t, t.TempDir(), "a.png", []byte("\x89PNG\r\n\x1a\n"))
	p := testsupport.AddPhoto(t, svc.Store(), png)

	out := svc.WriteExif(ctx, p.ID)
	assert.False(t, out.Success)
	assert.Equal(t, "UnsupportedFormat", out.Kind())
	assert.NotEmpty(t, out.Message)

	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), data)
	_, err = os.Stat(png + exif.BackupSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteExifBatchIsolatesItems(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	path := testsupport.WriteJPEG(t, t.TempDir(), "a.jpg", canonFields())
	p := testsupport.AddPhoto(t, svc.Store(), path)

	outs := svc.WriteExifBatch(ctx, []int64{999, p.ID})
	require.Len(t, outs, 2)
	assert.ErrorIs(t, outs[0].Err, common.ErrNotFound)
	assert.True(t, outs[1].Success)
	assert.Equal(t, path, outs[1].Path)
}

func TestRestoreBackup(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	path := testsupport.WriteJPEG(t, t.TempDir(), "a.jpg", canonFields())
	original, err := os.ReadFile(path)
	require.NoError(t, err)
	p := testsupport.AddPhoto(t, svc.Store(), path, func(p *models.Photo) {
		p.CameraMake = ptr("Leica")
	})

	out := svc.RestoreBackup(ctx, p.ID)
	assert.ErrorIs(t, out.Err, common.ErrNotFound)

	require.True(t, svc.WriteExif(ctx, p.ID).Success)
	out = svc.RestoreBackup(ctx, p.ID)
	require.NoError(t, out.Err)
	restored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestBulkSetLocationValidates(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	a := testsupport.AddPhoto(t, svc.Store(), "/a.jpg")
	b := testsupport.AddPhoto(t, svc.Store(), "/b.jpg")

	assert.ErrorIs(t, svc.BulkSetLocation(ctx, nil, 1, 1, nil), common.ErrValidation)
	assert.ErrorIs(t, svc.BulkSetLocation(ctx, []int64{a.ID}, 0, 190, nil), common.ErrValidation)
	assert.ErrorIs(t, svc.BulkSetLocation(ctx, []int64{a.ID, 999}, 1, 1, nil), common.ErrNotFound)

	require.NoError(t, svc.BulkSetLocation(ctx, []int64{a.ID, b.ID}, 45.4642, 9.19, ptr("  ")))
	got, err := svc.Store().GetPhoto(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 45.4642, *got.Latitude)
	assert.Nil(t, got.LocationName, "blank name is ignored")
}

func TestApplyNearbyPlace(t *testing.T) {
	ctx := context.Background()
	finder := &mockPlaces{}
	svc := newService(t, library.WithPlaces(finder))
	lat, lon := 41.4036, 2.1744
	p := testsupport.AddPhoto(t, svc.Store(), "/sagrada.jpg", func(p *models.Photo) {
		p.Latitude, p.Longitude = &lat, &lon
	})
	bare := testsupport.AddPhoto(t, svc.Store(), "/bare.jpg")

	finder.On("Nearby", mock.Anything, lat, lon, 100.0).Return([]models.Place{
		{ID: "way/1", Name: "Sagrada Família", Category: models.PlaceTourism, Distance: 35},
		{ID: "node/2", Name: "Bar Sagrada", Category: models.PlaceFoodDrink, Distance: 80},
	}, nil).Once()

	place, err := svc.ApplyNearbyPlace(ctx, p.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, place)
	assert.Equal(t, "Sagrada Família", place.Name)
	got, err := svc.Store().GetPhoto(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sagrada Família", *got.LocationName)

	// Lookup failures degrade to no result and leave the photo alone.
	finder.On("Nearby", mock.Anything, lat, lon, 250.0).
		Return(nil, common.NewNetworkError("overpass.Search", errors.New("connection reset"))).Once()
	place, err = svc.ApplyNearbyPlace(ctx, p.ID, 250)
	require.NoError(t, err)
	assert.Nil(t, place)

	finder.On("Nearby", mock.Anything, lat, lon, 50.0).Return([]models.Place{
		{ID: "node/3", Name: "Somewhere", Distance: math.Inf(1)},
	}, nil).Once()
	place, err = svc.ApplyNearbyPlace(ctx, p.ID, 50)
	require.NoError(t, err)
	assert.Nil(t, place)

	got, err = svc.Store().GetPhoto(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sagrada Família", *got.LocationName)

	_, err = svc.ApplyNearbyPlace(ctx, bare.ID, 0)
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.ApplyNearbyPlace(ctx, 999, 0)
	assert.ErrorIs(t, err, common.ErrNotFound)
	finder.AssertExpectations(t)
}

func TestNearbyPlacesWithoutFinder(t *testing.T) {
	svc := newService(t)
	assert.Empty(t, svc.NearbyPlaces(context.Background(), 1, 1, 0))
	_, ok := svc.ReverseGeocode(context.Background(), 1, 1)
	assert.False(t, ok)
}

func TestSaveLocationFromPhoto(t *testing.T) {
	ctx := context.Background()
	lat, lon := 48.8606, 2.3376
	at := func(p *models.Photo) { p.Latitude, p.Longitude = &lat, &lon }

	svc := newService(t, library.WithGeocoder(stubGeocoder{
		addr: models.Address{Address: "Musée du Louvre, Paris, France"},
	}))
	p := testsupport.AddPhoto(t, svc.Store(), "/louvre.jpg", at)
	l, err := svc.SaveLocationFromPhoto(ctx, p.ID, "Louvre", models.CategoryMuseum)
	require.NoError(t, err)
	assert.Equal(t, "Louvre", l.Name)
	assert.Equal(t, "Musée du Louvre, Paris, France", l.Address)
	stored, err := svc.Store().GetLocation(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.Address, stored.Address)

	offline := newService(t, library.WithGeocoder(stubGeocoder{
		err: common.NewNetworkError("nominatim.Reverse", errors.New("no route to host")),
	}))
	q := testsupport.AddPhoto(t, offline.Store(), "/louvre.jpg", at)
	l, err = offline.SaveLocationFromPhoto(ctx, q.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, "louvre.jpg", l.Name)
	assert.Empty(t, l.Address)
}

func TestLockIsExclusive(t *testing.T) {
	db := filepath.Join(t.TempDir(), "library.db")
	first, err := library.AcquireLock(db)
	require.NoError(t, err)
	assert.Equal(t, db+".lock", first.Path())

	_, err = library.AcquireLock(db)
	assert.ErrorIs(t, err, library.ErrLocked)

	require.NoError(t, first.Release())
	second, err := library.AcquireLock(db)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}
