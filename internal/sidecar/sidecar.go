// Package sidecar reads the JSON metadata files Google Photos Takeout writes
// next to every exported image. Takeout often strips the capture date and GPS
// position from the image itself and keeps them only here.
package sidecar

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bstardust/memorable/internal/exif"
	"github.com/bstardust/memorable/internal/geo"
	"github.com/bstardust/memorable/pkg/common"
)

// Metadata is the part of a Takeout sidecar memorable uses.
type Metadata struct {
	Title          string    `json:"title,omitempty"`
	Description    string    `json:"description,omitempty"`
	CreationTime   *TimeInfo `json:"creationTime,omitempty"`
	PhotoTakenTime *TimeInfo `json:"photoTakenTime,omitempty"`
	GeoData        *GeoData  `json:"geoData,omitempty"`
	GeoDataExif    *GeoData  `json:"geoDataExif,omitempty"`
	People         []Person  `json:"people,omitempty"`
}

// TimeInfo represents timestamp information
type TimeInfo struct {
	Timestamp string `json:"timestamp"`
	Formatted string `json:"formatted"`
}

// GeoData represents geographical data
type GeoData struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude,omitempty"`
}

// Person represents a person tag
type Person struct {
	Name string `json:"name"`
}

// Candidates lists the sidecar names Takeout has used for imagePath, in
// lookup order.
func Candidates(imagePath string) []string {
	return []string{
		imagePath + ".supplemental-metadata.json",
		imagePath + ".json",
		strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".json",
	}
}

// Find returns the first existing sidecar of imagePath, or "".
func Find(imagePath string) string {
	for _, c := range Candidates(imagePath) {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c
		}
	}
	return ""
}

// Read decodes a sidecar.
func Read(r io.Reader) (*Metadata, error) {
	var m Metadata
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, common.NewCorruptMetadataError("sidecar.Read", fmt.Errorf("failed to decode JSON metadata: %w", err))
	}
	return &m, nil
}

// Load reads the sidecar of imagePath. It returns nil, nil when there is
// none.
func Load(imagePath string) (*Metadata, error) {
	path := Find(imagePath)
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewIOError("sidecar.Load", err)
	}
	defer f.Close()
	return Read(f)
}

// TakenAt returns the capture time, falling back to the upload time Takeout
// records as creationTime.
func (m *Metadata) TakenAt() (time.Time, bool) {
	for _, ti := range []*TimeInfo{m.PhotoTakenTime, m.CreationTime} {
		if ti == nil {
			continue
		}
		secs, err := strconv.ParseInt(strings.TrimSpace(ti.Timestamp), 10, 64)
		if err != nil || secs <= 0 {
			continue
		}
		return time.Unix(secs, 0).UTC(), true
	}
	return time.Time{}, false
}

// Coordinates returns the position, preferring the one Google Photos shows
// over the one read from the original EXIF. Takeout writes 0, 0 for
// unknown positions.
func (m *Metadata) Coordinates() (lat, lon float64, ok bool) {
	for _, g := range []*GeoData{m.GeoData, m.GeoDataExif} {
		if g == nil || (g.Latitude == 0 && g.Longitude == 0) {
			continue
		}
		if geo.ValidCoordinates(g.Latitude, g.Longitude) {
			return g.Latitude, g.Longitude, true
		}
	}
	return 0, 0, false
}

// Fill copies the capture date and position into rec where the image had
// none, and returns the names of the fields it set.
func (m *Metadata) Fill(rec *exif.Record) []string {
	var filled []string
	if rec.DateTaken == nil {
		if t, ok := m.TakenAt(); ok {
			s := t.Format(time.RFC3339)
			rec.DateTaken = &s
			filled = append(filled, "date")
		}
	}
	if rec.Latitude == nil || rec.Longitude == nil {
		if lat, lon, ok := m.Coordinates(); ok {
			rec.Latitude, rec.Longitude = &lat, &lon
			filled = append(filled, "coordinates")
		}
	}
	return filled
}
