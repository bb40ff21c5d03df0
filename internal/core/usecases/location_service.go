package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/geosurvey/internal/core/domain"
	"github.com/samirrijal/geosurvey/internal/core/ports"
	"github.com/samirrijal/geosurvey/internal/pkg/geospatial"
	"github.com/samirrijal/geosurvey/internal/pkg/metrics"
	"github.com/samirrijal/geosurvey/internal/pkg/telemetry"
)

const defaultMapTTL = 300

func mapCacheKey(projectID string) string {
	return "locations:map:" + projectID
}

// LocationService handles listing, mapping, editing and exporting locations.
type LocationService struct {
	projects  ports.ProjectRepository
	locations ports.LocationRepository
	files     ports.TabularWriter
	cache     ports.CacheService
	publisher ports.EventPublisher
	mapTTL    int
}

// NewLocationService creates a new LocationService. cache and publisher may be nil.
func NewLocationService(
	projects ports.ProjectRepository,
	locations ports.LocationRepository,
	files ports.TabularWriter,
	cache ports.CacheService,
	publisher ports.EventPublisher,
) *LocationService {
	return &LocationService{
		projects:  projects,
		locations: locations,
		files:     files,
		cache:     cache,
		publisher: publisher,
		mapTTL:    defaultMapTTL,
	}
}

// WithMapTTL sets how long map views stay cached, in seconds.
func (s *LocationService) WithMapTTL(seconds int) *LocationService {
	s.mapTTL = seconds
	return s
}

// LocationInput is the payload for creating or editing one location.
// Either X and Y or Lat and Lon must be set; Lat/Lon are projected into the
// project's UTM zone.
type LocationInput struct {
	Name    string   `json:"location_name"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
	Remarks *string  `json:"remarks,omitempty"`
}

// List returns a page of a project's locations and the total count.
// An empty projectID yields no rows without touching the store.
func (s *LocationService) List(ctx context.Context, projectID string, offset, limit int) ([]domain.Location, int, error) {
	if projectID == "" {
		return nil, 0, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	locs, err := s.locations.ListByProject(ctx, projectID)
	if err != nil {
		return nil, 0, fmt.Errorf("list locations: %w", err)
	}

	total := len(locs)
	if offset >= total {
		return []domain.Location{}, total, nil
	}
	end := min(offset+limit, total)
	return locs[offset:end], total, nil
}

// MapView converts a project's locations to lat/lon and derives the bounding
// polygon. Points that fail conversion are reported, not fatal.
func (s *LocationService) MapView(ctx context.Context, projectID string) (*domain.MapView, error) {
	if projectID == "" {
		return &domain.MapView{Markers: []domain.MapMarker{}}, nil
	}

	cacheKey := mapCacheKey(projectID)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var view domain.MapView
			if err := json.Unmarshal(data, &view); err == nil {
				metrics.CacheHits.WithLabelValues("map").Inc()
				return &view, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("map").Inc()
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	locs, err := s.locations.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}

	view := BuildMapView(ctx, project, locs)

	if s.cache != nil {
		if data, err := json.Marshal(view); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.mapTTL)
		}
	}
	return view, nil
}

// BuildMapView is the uncached core of MapView.
func BuildMapView(ctx context.Context, project *domain.Project, locs []domain.Location) *domain.MapView {
	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanMapBuild, trace.WithAttributes(
		attribute.String(telemetry.AttrProjectID, project.ID),
		attribute.Int(telemetry.AttrRows, len(locs)),
	))
	defer span.End()

	view := &domain.MapView{ProjectID: project.ID, Markers: make([]domain.MapMarker, 0, len(locs))}
	grid := projectGrid(project)

	points := make([]domain.GeoPoint, 0, len(locs))
	for _, l := range locs {
		lat, lon, err := geospatial.ToLatLon(geospatial.UTM{
			Easting:  l.X,
			Northing: l.Y,
			Zone:     grid.Zone,
			Band:     grid.Band,
		})
		if err != nil {
			metrics.UTMConversions.WithLabelValues("error").Inc()
			view.Failures = append(view.Failures, domain.ConversionFailure{
				LocationID: l.ID, Name: l.Name, Reason: err.Error(),
			})
			continue
		}
		metrics.UTMConversions.WithLabelValues("ok").Inc()

		pt := domain.GeoPoint{Lat: lat, Lon: lon}
		points = append(points, pt)
		view.Markers = append(view.Markers, domain.MapMarker{LocationID: l.ID, Name: l.Name, Position: pt})
	}

	bounds, err := domain.BoundsOf(points)
	if err != nil {
		return view
	}
	poly := bounds.Polygon()
	w, h := geospatial.Extent(bounds.MinLat, bounds.MinLon, bounds.MaxLat, bounds.MaxLon)
	view.Bounds = &bounds
	view.Polygon = &poly
	view.Extent = &domain.Extent{WidthMeters: w, HeightMeters: h}
	return view
}

// Create adds a single location to a project.
func (s *LocationService) Create(ctx context.Context, projectID string, in LocationInput) (*domain.Location, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	loc := &domain.Location{ProjectID: project.ID}
	if err := applyInput(loc, project, in); err != nil {
		return nil, err
	}
	if err := s.locations.Create(ctx, loc); err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}

	s.changed(ctx, loc)
	return loc, nil
}

// Update edits an existing location. The owning project cannot change.
func (s *LocationService) Update(ctx context.Context, id string, in LocationInput) (*domain.Location, error) {
	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, loc.ProjectID)
	if err != nil {
		return nil, err
	}

	if err := applyInput(loc, project, in); err != nil {
		return nil, err
	}
	if err := s.locations.Update(ctx, loc); err != nil {
		return nil, fmt.Errorf("update location: %w", err)
	}

	s.changed(ctx, loc)
	return loc, nil
}

// Export renders every location of a project as csv or xlsx.
func (s *LocationService) Export(ctx context.Context, projectID, format string) ([]byte, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	locs, err := s.locations.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}

	rows := make([]domain.LocationExportRow, len(locs))
	for i, l := range locs {
		rows[i] = domain.LocationExportRow{LocationID: l.ID, LocationName: l.Name, X: l.X, Y: l.Y}
		if l.Remarks != nil {
			rows[i].Remarks = *l.Remarks
		}
	}
	return s.files.WriteExport(format, rows)
}

// Template renders an empty import sheet.
func (s *LocationService) Template(format string) ([]byte, error) {
	return s.files.WriteTemplate(format)
}

func (s *LocationService) changed(ctx context.Context, loc *domain.Location) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, mapCacheKey(loc.ProjectID))
	}
	if s.publisher != nil {
		if err := s.publisher.PublishLocationChanged(ctx, loc); err != nil {
			slog.Warn("publish location change failed", "location_id", loc.ID, "error", err)
		}
	}
}

func applyInput(loc *domain.Location, project *domain.Project, in LocationInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return &domain.ImportError{Field: FieldLocationName, Value: in.Name, Err: domain.ErrMissingOrMalformedField}
	}

	var x, y float64
	switch {
	case in.X != nil && in.Y != nil:
		x, y = *in.X, *in.Y
	case in.Lat != nil && in.Lon != nil:
		u, err := geospatial.FromLatLon(*in.Lat, *in.Lon, project.UTMZone)
		// Northings are stored against the project's band, so the fix must
		// fall in the same hemisphere.
		if err != nil || u.Southern() != projectGrid(project).Southern() {
			return &domain.ImportError{Field: "lat", Value: formatFloat(*in.Lat), Err: domain.ErrMissingOrMalformedField}
		}
		x, y = u.Easting, u.Northing
	case in.X == nil && in.Lat == nil:
		return &domain.ImportError{Field: FieldX, Err: domain.ErrMissingOrMalformedField}
	default:
		return &domain.ImportError{Field: FieldY, Err: domain.ErrMissingOrMalformedField}
	}
	if !isFinite(x) {
		return &domain.ImportError{Field: FieldX, Value: formatFloat(x), Err: domain.ErrMissingOrMalformedField}
	}
	if !isFinite(y) {
		return &domain.ImportError{Field: FieldY, Value: formatFloat(y), Err: domain.ErrMissingOrMalformedField}
	}

	loc.Name = name
	loc.X, loc.Y = x, y
	loc.Remarks = nil
	if in.Remarks != nil {
		if r := strings.TrimSpace(*in.Remarks); r != "" {
			loc.Remarks = &r
		}
	}
	return nil
}

// projectGrid is the zone and band a project's coordinates are recorded in.
func projectGrid(p *domain.Project) geospatial.UTM {
	u := geospatial.UTM{Zone: p.UTMZone}
	if p.UTMBand != "" {
		u.Band = p.UTMBand[0]
	}
	return u
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func itoa(i int) string { return strconv.Itoa(i) }
