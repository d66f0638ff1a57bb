package models

import "time"

// Photo is one library entry, keyed by its absolute file path.
type Photo struct {
	ID           int64     `json:"id"`
	FilePath     string    `json:"file_path"`
	FileName     string    `json:"file_name"`
	FileSize     int64     `json:"file_size"`
	ImportDate   time.Time `json:"import_date"`
	DateTaken    *string   `json:"date_taken,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	LocationName *string   `json:"location_name,omitempty"`
	CameraMake   *string   `json:"camera_make,omitempty"`
	CameraModel  *string   `json:"camera_model,omitempty"`
	LensModel    *string   `json:"lens_model,omitempty"`
	FocalLength  *float64  `json:"focal_length,omitempty"`
	Aperture     *float64  `json:"aperture,omitempty"`
	ShutterSpeed *string   `json:"shutter_speed,omitempty"`
	ISO          *int      `json:"iso,omitempty"`
	Width        *int      `json:"width,omitempty"`
	Height       *int      `json:"height,omitempty"`
	Orientation  *int      `json:"orientation,omitempty"`
	Rating       int       `json:"rating"`
	Notes        *string   `json:"notes,omitempty"`
}

// HasCoordinates reports whether both halves of the coordinate pair are set.
func (p *Photo) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// PhotoUpdate lists the editable photo fields. Nil fields are left alone;
// ClearLocation and ClearDateTaken null the respective columns.
type PhotoUpdate struct {
	DateTaken      *string
	ClearDateTaken bool
	Latitude       *float64
	Longitude      *float64
	ClearLocation  bool
	LocationName   *string
	Rating         *int
	Notes          *string
	CameraMake     *string
	CameraModel    *string
	LensModel      *string
	FocalLength    *float64
	Aperture       *float64
	ShutterSpeed   *string
	ISO            *int
}

// Empty reports whether the update would change nothing.
func (u PhotoUpdate) Empty() bool {
	return u == PhotoUpdate{}
}

// Collection groups photos by name.
type Collection struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedDate time.Time `json:"created_date"`
}

// Membership links a photo to a collection.
type Membership struct {
	PhotoID      int64     `json:"photo_id"`
	CollectionID int64     `json:"collection_id"`
	AddedDate    time.Time `json:"added_date"`
}

// CustomMetadata is a free-form key/value attached to a photo.
type CustomMetadata struct {
	PhotoID int64  `json:"photo_id"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}
