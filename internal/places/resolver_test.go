package places_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bstardust/memorable/internal/places"
	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Search(ctx context.Context, lat, lon, radius float64) ([]places.POI, error) {
	args := m.Called(ctx, lat, lon, radius)
	pois, _ := args.Get(0).([]places.POI)
	return pois, args.Error(1)
}

func at(lat, lon float64) (*float64, *float64) {
	return &lat, &lon
}

func poi(id, name string, tags map[string]string, lat, lon float64) places.POI {
	p := places.POI{ID: id, Name: name, Tags: tags}
	p.Latitude, p.Longitude = at(lat, lon)
	return p
}

func TestNearbyDefaultsRadius(t *testing.T) {
	src := &mockSource{}
	src.On("Search", mock.Anything, 1.0, 2.0, 100.0).Return(nil, nil).Once()
	src.On("Search", mock.Anything, 1.0, 2.0, 250.0).Return(nil, nil).Once()

	got, err := places.NewResolver(src, 0).Nearby(context.Background(), 1, 2, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = places.NewResolver(src, 250).Nearby(context.Background(), 1, 2, -5)
	require.NoError(t, err)
	src.AssertExpectations(t)
}

func TestNearbyRejectsBadCoordinates(t *testing.T) {
	src := &mockSource{}
	_, err := places.NewResolver(src, 0).Nearby(context.Background(), 91, 0, 100)
	assert.ErrorIs(t, err, common.ErrValidation)
	src.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNearbyPropagatesSourceErrors(t *testing.T) {
	src := &mockSource{}
	src.On("Search", mock.Anything, 0.0, 0.0, 100.0).
		Return(nil, common.NewNetworkError("overpass.Search", errors.New("connection refused")))

	_, err := places.NewResolver(src, 0).Nearby(context.Background(), 0, 0, 100)
	assert.ErrorIs(t, err, common.ErrNetworkFailure)
}

func TestRankDedupesAndSortsMissingCoordinatesLast(t *testing.T) {
	cafe := map[string]string{"amenity": "cafe"}
	bakery := map[string]string{"shop": "bakery"}
	pois := []places.POI{
		poi("node/1", "Corner Cafe", cafe, 0, 0.002),
		{ID: "node/2", Name: "Lost Museum", Tags: map[string]string{"tourism": "museum"}},
		poi("node/3", "Bakery", bakery, 0, 0.001),
		poi("node/1", "Corner Cafe", cafe, 0, 0.0005),
		poi("way/9", "Bakery", bakery, 0, 0.0015),
	}

	got := places.Rank(0, 0, pois)
	require.Len(t, got, 3)

	assert.Equal(t, "Corner Cafe", got[0].Name)
	assert.Equal(t, models.PlaceFoodDrink, got[0].Category)
	assert.Equal(t, "cafe", got[0].Type)
	assert.Equal(t, 56.0, got[0].Distance)

	assert.Equal(t, "node/3", got[1].ID)
	assert.Equal(t, 111.0, got[1].Distance)

	assert.Equal(t, "Lost Museum", got[2].Name)
	assert.True(t, math.IsInf(got[2].Distance, 1))
	assert.False(t, got[2].HasDistance())
}

func TestRankTruncates(t *testing.T) {
	var pois []places.POI
	for i := 30; i > 0; i-- {
		pois = append(pois, poi(fmt.Sprintf("node/%d", i), fmt.Sprintf("Place %d", i), nil, 0, float64(i)*0.001))
	}

	got := places.Rank(0, 0, pois)
	require.Len(t, got, places.MaxResults)
	assert.Equal(t, "Place 1", got[0].Name)
	assert.Equal(t, "Place 20", got[19].Name)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
	}
}

func TestRankIsStableForEqualDistances(t *testing.T) {
	pois := []places.POI{
		poi("node/1", "First", map[string]string{"shop": "a"}, 0, 0.001),
		poi("node/2", "Second", map[string]string{"shop": "b"}, 0, 0.001),
		{ID: "node/3", Name: "Third"},
		{ID: "node/4", Name: "Fourth"},
	}
	got := places.Rank(0, 0, pois)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"First", "Second", "Third", "Fourth"},
		[]string{got[0].Name, got[1].Name, got[2].Name, got[3].Name})
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		tags     map[string]string
		category models.PlaceCategory
		kind     string
	}{
		{map[string]string{"amenity": "restaurant", "tourism": "museum"}, models.PlaceFoodDrink, "restaurant"},
		{map[string]string{"amenity": "bank"}, models.PlaceAmenity, "bank"},
		{map[string]string{"tourism": "museum", "historic": "castle"}, models.PlaceTourism, "museum"},
		{map[string]string{"historic": "castle", "leisure": "park"}, models.PlaceHistoric, "castle"},
		{map[string]string{"leisure": "park", "shop": "kiosk"}, models.PlaceLeisure, "park"},
		{map[string]string{"shop": "bakery"}, models.PlaceShop, "bakery"},
		{map[string]string{"place": "square"}, models.PlacePlace, "square"},
		{nil, models.PlacePlace, ""},
	}
	for _, tt := range tests {
		category, kind := places.Categorize(tt.tags)
		assert.Equal(t, tt.category, category, "%v", tt.tags)
		assert.Equal(t, tt.kind, kind, "%v", tt.tags)
	}
}
