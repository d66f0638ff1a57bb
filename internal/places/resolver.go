package places

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/bstardust/memorable/internal/geo"
	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

const (
	// DefaultRadius is the search radius in meters used when none is given.
	DefaultRadius = 100.0
	// MaxResults caps the ranked result list.
	MaxResults = 20
)

// POI is a named point of interest as returned by a Source.
type POI struct {
	ID        string
	Name      string
	Tags      map[string]string
	Latitude  *float64
	Longitude *float64
}

// Source finds named points of interest around a coordinate.
type Source interface {
	Search(ctx context.Context, lat, lon, radius float64) ([]POI, error)
}

// Geocoder resolves a coordinate to an address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (models.Address, error)
}

// Resolver ranks the points of interest near a coordinate.
type Resolver struct {
	source        Source
	defaultRadius float64
}

// NewResolver creates a Resolver over source. A non-positive defaultRadius
// means DefaultRadius.
func NewResolver(source Source, defaultRadius float64) *Resolver {
	if defaultRadius <= 0 {
		defaultRadius = DefaultRadius
	}
	return &Resolver{source: source, defaultRadius: defaultRadius}
}

// Nearby returns up to MaxResults places within radius meters of lat, lon,
// closest first. A non-positive radius uses the resolver default.
func (r *Resolver) Nearby(ctx context.Context, lat, lon, radius float64) ([]models.Place, error) {
	if !geo.ValidCoordinates(lat, lon) {
		return nil, common.NewValidationError("places.Nearby", fmt.Sprintf("coordinates out of range: %v, %v", lat, lon))
	}
	if radius <= 0 {
		radius = r.defaultRadius
	}
	pois, err := r.source.Search(ctx, lat, lon, radius)
	if err != nil {
		return nil, err
	}
	return Rank(lat, lon, pois), nil
}

// Rank categorizes pois, measures them from lat, lon and returns the closest
// MaxResults. Duplicates by id, then by name within a category, keep the
// closer entry. Places without coordinates sort last.
func Rank(lat, lon float64, pois []POI) []models.Place {
	byID := make(map[string]int, len(pois))
	places := make([]models.Place, 0, len(pois))
	for _, poi := range pois {
		p := toPlace(lat, lon, poi)
		if i, ok := byID[p.ID]; ok && p.ID != "" {
			if p.Distance < places[i].Distance {
				places[i] = p
			}
			continue
		}
		byID[p.ID] = len(places)
		places = append(places, p)
	}

	type nameKey struct {
		name     string
		category models.PlaceCategory
	}
	byName := make(map[nameKey]int, len(places))
	unique := places[:0]
	for _, p := range places {
		key := nameKey{p.Name, p.Category}
		if i, ok := byName[key]; ok {
			if p.Distance < unique[i].Distance {
				unique[i] = p
			}
			continue
		}
		byName[key] = len(unique)
		unique = append(unique, p)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Distance < unique[j].Distance
	})
	if len(unique) > MaxResults {
		unique = unique[:MaxResults]
	}
	return unique
}

func toPlace(lat, lon float64, poi POI) models.Place {
	category, kind := Categorize(poi.Tags)
	p := models.Place{
		ID:        poi.ID,
		Name:      poi.Name,
		Category:  category,
		Type:      kind,
		Tags:      poi.Tags,
		Latitude:  poi.Latitude,
		Longitude: poi.Longitude,
		Distance:  math.Inf(1),
	}
	if poi.Latitude != nil && poi.Longitude != nil {
		p.Distance = math.Round(geo.Haversine(lat, lon, *poi.Latitude, *poi.Longitude))
	}
	return p
}

var foodAndDrink = map[string]bool{
	"bar":        true,
	"biergarten": true,
	"cafe":       true,
	"fast_food":  true,
	"food_court": true,
	"ice_cream":  true,
	"pub":        true,
	"restaurant": true,
}

// Categorize maps OSM tags to a place category plus the tag value that
// decided it. The first present tag wins in the order amenity, tourism,
// historic, leisure, shop.
func Categorize(tags map[string]string) (models.PlaceCategory, string) {
	if v := tags["amenity"]; v != "" {
		if foodAndDrink[v] {
			return models.PlaceFoodDrink, v
		}
		return models.PlaceAmenity, v
	}
	for _, c := range []struct {
		tag      string
		category models.PlaceCategory
	}{
		{"tourism", models.PlaceTourism},
		{"historic", models.PlaceHistoric},
		{"leisure", models.PlaceLeisure},
		{"shop", models.PlaceShop},
	} {
		if v := tags[c.tag]; v != "" {
			return c.category, v
		}
	}
	return models.PlacePlace, tags["place"]
}
