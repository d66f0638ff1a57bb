// Package library coordinates the EXIF codec, the metadata store and the
// place services. It is the single writer for a library: every mutating
// operation is serialized.
package library

import (
	"context"
	"sync"

	"github.com/bstardust/memorable/internal/exif"
	"github.com/bstardust/memorable/internal/places"
	"github.com/bstardust/memorable/internal/store"
	"github.com/bstardust/memorable/pkg/models"
)

// ExifWriter writes metadata into image files.
type ExifWriter interface {
	Write(path string, f exif.Fields) (exif.Result, error)
	RestoreBackup(path string) (exif.Result, error)
}

// PlaceFinder lists the places near a coordinate, closest first.
type PlaceFinder interface {
	Nearby(ctx context.Context, lat, lon, radius float64) ([]models.Place, error)
}

// Config tunes a Service.
type Config struct {
	// Concurrency bounds the number of files decoded at once during import.
	Concurrency int
	// Recursive makes Import descend into subdirectories.
	Recursive bool
	// DefaultRadius is the nearby search radius in meters when callers pass
	// none.
	DefaultRadius float64
	// Sidecars fills a missing capture date or position from a Google
	// Takeout JSON file next to the image.
	Sidecars bool
}

// Option customizes a Service.
type Option func(*Service)

// WithDecoder overrides how image files are decoded.
func WithDecoder(decode func(path string) (exif.Record, error)) Option {
	return func(s *Service) {
		if decode != nil {
			s.decode = decode
		}
	}
}

// WithEncoder overrides the EXIF writer.
func WithEncoder(w ExifWriter) Option {
	return func(s *Service) {
		if w != nil {
			s.encoder = w
		}
	}
}

// WithPlaces sets the nearby place finder.
func WithPlaces(p PlaceFinder) Option {
	return func(s *Service) {
		s.places = p
	}
}

// WithGeocoder sets the reverse geocoder.
func WithGeocoder(g places.Geocoder) Option {
	return func(s *Service) {
		s.geocoder = g
	}
}

// Service drives imports, EXIF exports and location edits for one library.
type Service struct {
	mu       sync.Mutex
	store    *store.Store
	decode   func(path string) (exif.Record, error)
	encoder  ExifWriter
	places   PlaceFinder
	geocoder places.Geocoder
	cfg      Config
}

// New creates a Service over st.
func New(st *store.Store, cfg Config, opts ...Option) *Service {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.DefaultRadius <= 0 {
		cfg.DefaultRadius = places.DefaultRadius
	}
	s := &Service{
		store:   st,
		decode:  exif.DecodeFile,
		encoder: exif.NewEncoder(),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying metadata store for read access.
func (s *Service) Store() *store.Store {
	return s.store
}
