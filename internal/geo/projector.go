package geo

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// DefaultProj4 is the projected CRS the service runs in: UTM zone 13N, WGS84.
// All DEM and road inputs must already be in this zone.
const DefaultProj4 = "+proj=utm +zone=13 +datum=WGS84 +units=m +no_defs"

const longlatProj4 = "+proj=longlat +datum=WGS84 +no_defs"

// Projector converts between geodetic WGS84 coordinates and a single projected
// metric CRS. Geodetic inputs enter and leave the engine only through it.
type Projector struct {
	forward proj.Transformer
	inverse proj.Transformer
}

// NewProjector parses the projected CRS from a Proj4 string and prepares the
// forward and inverse transforms.
func NewProjector(proj4 string) (*Projector, error) {
	if proj4 == "" {
		proj4 = DefaultProj4
	}
	geoSR, err := proj.Parse(longlatProj4)
	if err != nil {
		return nil, fmt.Errorf("geo: parsing longlat CRS: %w", err)
	}
	gridSR, err := proj.Parse(proj4)
	if err != nil {
		return nil, fmt.Errorf("geo: parsing projected CRS %q: %w", proj4, err)
	}
	forward, err := geoSR.NewTransform(gridSR)
	if err != nil {
		return nil, fmt.Errorf("geo: building forward transform: %w", err)
	}
	inverse, err := gridSR.NewTransform(geoSR)
	if err != nil {
		return nil, fmt.Errorf("geo: building inverse transform: %w", err)
	}
	return &Projector{forward: forward, inverse: inverse}, nil
}

// ToMetric projects a geodetic point into the grid CRS.
func (p *Projector) ToMetric(g GeoPoint) (MetricPoint, error) {
	pt, err := geom.Point{X: g.Lng, Y: g.Lat}.Transform(p.forward)
	if err != nil {
		return MetricPoint{}, fmt.Errorf("geo: forward projection of (%v, %v): %w", g.Lng, g.Lat, err)
	}
	m := pt.(geom.Point)
	return MetricPoint{X: m.X, Y: m.Y}, nil
}

// ToGeo unprojects a metric point back to geodetic coordinates.
func (p *Projector) ToGeo(m MetricPoint) (GeoPoint, error) {
	pt, err := geom.Point{X: m.X, Y: m.Y}.Transform(p.inverse)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("geo: inverse projection of (%v, %v): %w", m.X, m.Y, err)
	}
	g := pt.(geom.Point)
	return GeoPoint{Lat: g.Y, Lng: g.X}, nil
}

// TransformPolygon projects a metric-space polygon to geodetic space.
func (p *Projector) TransformPolygon(poly geom.Polygon) (geom.Polygon, error) {
	g, err := poly.Transform(p.inverse)
	if err != nil {
		return nil, fmt.Errorf("geo: inverse projection of polygon: %w", err)
	}
	return g.(geom.Polygon), nil
}
