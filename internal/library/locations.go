package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/bstardust/memorable/internal/geo"
	"github.com/bstardust/memorable/internal/logger"
	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

// BulkSetLocation assigns one coordinate, and optionally a location name,
// to every photo in ids. Either all photos are updated or none.
func (s *Service) BulkSetLocation(ctx context.Context, ids []int64, lat, lon float64, name *string) error {
	const op = "library.BulkSetLocation"
	if len(ids) == 0 {
		return common.NewValidationError(op, "no photos selected")
	}
	if !geo.ValidCoordinates(lat, lon) {
		return common.NewValidationError(op, fmt.Sprintf("coordinates out of range: %v, %v", lat, lon))
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			name = nil
		} else {
			name = &trimmed
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.BulkSetLocation(ctx, ids, lat, lon, name); err != nil {
		return err
	}
	logger.Info("Set location %.6f, %.6f on %d photos", lat, lon, len(ids))
	return nil
}

// NearbyPlaces lists the places near a coordinate. Lookup failures are
// logged and yield no places.
func (s *Service) NearbyPlaces(ctx context.Context, lat, lon, radius float64) []models.Place {
	if s.places == nil {
		logger.Warn("Nearby place search is not configured")
		return nil
	}
	if radius <= 0 {
		radius = s.cfg.DefaultRadius
	}
	found, err := s.places.Nearby(ctx, lat, lon, radius)
	if err != nil {
		logger.Warn("Nearby place search at %.6f, %.6f failed (%s): %v", lat, lon, common.KindOf(err), err)
		return nil
	}
	return found
}

// ReverseGeocode returns the address of a coordinate. Lookup failures are
// logged and reported as ok=false.
func (s *Service) ReverseGeocode(ctx context.Context, lat, lon float64) (models.Address, bool) {
	if s.geocoder == nil {
		logger.Warn("Reverse geocoding is not configured")
		return models.Address{}, false
	}
	addr, err := s.geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		logger.Warn("Reverse geocoding %.6f, %.6f failed (%s): %v", lat, lon, common.KindOf(err), err)
		return models.Address{}, false
	}
	return addr, true
}

// ApplyNearbyPlace names a photo after the closest place around its
// coordinates. It returns the chosen place, or nil when nothing measurable
// was found; the photo is then left unchanged.
func (s *Service) ApplyNearbyPlace(ctx context.Context, photoID int64, radius float64) (*models.Place, error) {
	const op = "library.ApplyNearbyPlace"
	p, err := s.store.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if !p.HasCoordinates() {
		return nil, common.NewValidationError(op, fmt.Sprintf("photo %d has no coordinates", photoID))
	}

	found := s.NearbyPlaces(ctx, *p.Latitude, *p.Longitude, radius)
	if len(found) == 0 || !found[0].HasDistance() {
		logger.Info("No nearby place for photo %d", photoID)
		return nil, nil
	}
	closest := found[0]

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.store.UpdatePhoto(ctx, photoID, models.PhotoUpdate{LocationName: &closest.Name}); err != nil {
		return nil, err
	}
	logger.Info("Photo %d is at %s (%s, %.0f m)", photoID, closest.Name, closest.Category, closest.Distance)
	return &closest, nil
}

// SaveLocationFromPhoto saves a photo's coordinates as a new location. When
// a geocoder is configured the location also gets the postal address.
func (s *Service) SaveLocationFromPhoto(ctx context.Context, photoID int64, name string, category models.LocationCategory) (*models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.CreateLocationFromPhoto(ctx, photoID, name, category)
	if err != nil {
		return nil, err
	}
	if s.geocoder == nil || l.Address != "" {
		return l, nil
	}

	addr, ok := s.ReverseGeocode(ctx, *l.Latitude, *l.Longitude)
	if !ok {
		return l, nil
	}
	withAddress := *l
	withAddress.Address = addr.Address
	updated, err := s.store.UpdateLocation(ctx, &withAddress)
	if err != nil {
		logger.Warn("Failed to store address for location %d: %v", l.ID, err)
		return l, nil
	}
	return updated, nil
}
