package models

import (
	"math"
	"strings"
	"time"
)

// LocationCategory classifies a saved place.
type LocationCategory string

const (
	CategoryRestaurant LocationCategory = "restaurant"
	CategoryCafe       LocationCategory = "cafe"
	CategoryBar        LocationCategory = "bar"
	CategoryHotel      LocationCategory = "hotel"
	CategoryAttraction LocationCategory = "attraction"
	CategoryMuseum     LocationCategory = "museum"
	CategoryPark       LocationCategory = "park"
	CategoryShop       LocationCategory = "shop"
	CategoryOther      LocationCategory = "other"
)

var locationCategories = []LocationCategory{
	CategoryRestaurant, CategoryCafe, CategoryBar, CategoryHotel,
	CategoryAttraction, CategoryMuseum, CategoryPark, CategoryShop, CategoryOther,
}

// LocationCategories returns every valid category.
func LocationCategories() []LocationCategory {
	out := make([]LocationCategory, len(locationCategories))
	copy(out, locationCategories)
	return out
}

// ParseLocationCategory normalizes s. The empty string is valid and means
// "uncategorized".
func ParseLocationCategory(s string) (LocationCategory, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", true
	}
	for _, c := range locationCategories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Location is a saved place, independent of any photo.
type Location struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Latitude    *float64         `json:"latitude,omitempty"`
	Longitude   *float64         `json:"longitude,omitempty"`
	Address     string           `json:"address,omitempty"`
	Category    LocationCategory `json:"category,omitempty"`
	Rating      int              `json:"rating"`
	Notes       string           `json:"notes,omitempty"`
	CreatedDate time.Time        `json:"created_date"`
}

// PlaceCategory is the coarse taxonomy used for nearby search results.
type PlaceCategory string

const (
	PlaceFoodDrink PlaceCategory = "Food & Drink"
	PlaceTourism   PlaceCategory = "Tourism"
	PlaceHistoric  PlaceCategory = "Historic"
	PlaceLeisure   PlaceCategory = "Leisure"
	PlaceShop      PlaceCategory = "Shop"
	PlaceAmenity   PlaceCategory = "Amenity"
	PlacePlace     PlaceCategory = "Place"
)

// Place is a ranked point of interest near a query coordinate.
type Place struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Category  PlaceCategory     `json:"category"`
	Type      string            `json:"type,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Latitude  *float64          `json:"latitude,omitempty"`
	Longitude *float64          `json:"longitude,omitempty"`
	Distance  float64           `json:"distance"`
}

// HasDistance reports whether the place could be measured.
func (p Place) HasDistance() bool {
	return !math.IsInf(p.Distance, 1)
}

// Address is a reverse-geocoded postal address.
type Address struct {
	Address string            `json:"address"`
	Details map[string]string `json:"raw_details,omitempty"`
}
