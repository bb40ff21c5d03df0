package domain

import "math"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// BoundingPolygon is a closed axis-aligned rectangle. Vertex order is always
// (min,min) → (min,max) → (max,max) → (max,min) → (min,min).
type BoundingPolygon [5]GeoPoint

// BoundsOf reduces points to their min/max latitude and longitude.
func BoundsOf(points []GeoPoint) (Bounds, error) {
	if len(points) == 0 {
		return Bounds{}, ErrEmptyPointSet
	}

	b := Bounds{
		MinLat: math.Inf(1),
		MinLon: math.Inf(1),
		MaxLat: math.Inf(-1),
		MaxLon: math.Inf(-1),
	}
	for _, p := range points {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return b, nil
}

// Polygon returns the closed rectangle for b.
func (b Bounds) Polygon() BoundingPolygon {
	return BoundingPolygon{
		{Lat: b.MinLat, Lon: b.MinLon},
		{Lat: b.MinLat, Lon: b.MaxLon},
		{Lat: b.MaxLat, Lon: b.MaxLon},
		{Lat: b.MaxLat, Lon: b.MinLon},
		{Lat: b.MinLat, Lon: b.MinLon},
	}
}

// NewBoundingPolygon derives the rectangle enclosing points.
// A single point yields a zero-area polygon with five identical vertices.
func NewBoundingPolygon(points []GeoPoint) (BoundingPolygon, error) {
	b, err := BoundsOf(points)
	if err != nil {
		return BoundingPolygon{}, err
	}
	return b.Polygon(), nil
}

// Coordinates returns the vertices as [lat, lon] pairs.
func (p BoundingPolygon) Coordinates() [][2]float64 {
	out := make([][2]float64, len(p))
	for i, v := range p {
		out[i] = [2]float64{v.Lat, v.Lon}
	}
	return out
}
