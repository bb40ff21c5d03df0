package domain

import (
	"time"
)

// Project is a survey project that owns a set of locations.
type Project struct {
	ID        string    `json:"id"`
	Code      string    `json:"project_code"`
	Name      string    `json:"name"`
	UTMZone   int       `json:"utm_zone"`
	UTMBand   string    `json:"utm_band"`
	CreatedAt time.Time `json:"created_at"`
}

// Active returns the read-only context used to scope reads and import validation.
func (p *Project) Active() ActiveProject {
	return ActiveProject{ID: p.ID, Code: p.Code}
}

// ActiveProject identifies the project a request operates on.
type ActiveProject struct {
	ID   string `json:"id"`
	Code string `json:"project_code"`
}

// Location is a persisted survey point. X is the UTM easting, Y the northing.
type Location struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"location_name"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Remarks   *string   `json:"remarks,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewLocation is a single row of a write request.
type NewLocation struct {
	ProjectID string  `json:"project_id"`
	Name      string  `json:"location_name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Remarks   *string `json:"remarks,omitempty"`
}

// ImportCandidate is an unvalidated row read from tabular input.
// Row is the 1-based row number in the source file (the header is row 1).
type ImportCandidate struct {
	Row          int    `json:"row"`
	ProjectCode  string `json:"project_code"`
	LocationName string `json:"location_name"`
	X            string `json:"x"`
	Y            string `json:"y"`
	Remarks      string `json:"remarks"`
}

// ImportResult reports a committed batch.
type ImportResult struct {
	ProjectID string    `json:"project_id"`
	Inserted  int       `json:"inserted"`
	At        time.Time `json:"at"`
}

// LocationExportRow mirrors the export file layout.
type LocationExportRow struct {
	LocationID   string  `json:"location_id"`
	LocationName string  `json:"location_name"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Remarks      string  `json:"remarks"`
}

// MapMarker is a converted location ready for display.
type MapMarker struct {
	LocationID string   `json:"location_id"`
	Name       string   `json:"name"`
	Position   GeoPoint `json:"position"`
}

// ConversionFailure records a location that could not be placed on the map.
type ConversionFailure struct {
	LocationID string `json:"location_id"`
	Name       string `json:"name"`
	Reason     string `json:"reason"`
}

// MapView is everything a map widget needs for one project.
type MapView struct {
	ProjectID string              `json:"project_id"`
	Markers   []MapMarker         `json:"markers"`
	Polygon   *BoundingPolygon    `json:"polygon,omitempty"`
	Bounds    *Bounds             `json:"bounds,omitempty"`
	Extent    *Extent             `json:"extent,omitempty"`
	Failures  []ConversionFailure `json:"failures,omitempty"`
}

// Extent is the size of a bounding box on the ground, in meters.
type Extent struct {
	WidthMeters  float64 `json:"width_m"`
	HeightMeters float64 `json:"height_m"`
}
