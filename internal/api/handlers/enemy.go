package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	geojson "github.com/paulmach/go.geojson"
	"github.com/sirupsen/logrus"

	"github.com/asafarditi/Battlator/internal/api/response"
	"github.com/asafarditi/Battlator/internal/geo"
	"github.com/asafarditi/Battlator/internal/platform/observability"
	"github.com/asafarditi/Battlator/internal/threat"
)

// ThreatAreaView is the wire form of a threat polygon: a single GeoJSON-style
// ring of [lng, lat] positions.
type ThreatAreaView struct {
	ID          string         `json:"id"`
	Coordinates [][][2]float64 `json:"coordinates"`
	Level       string         `json:"level"`
	Description string         `json:"description"`
}

// AddEnemyResponse is the body of POST /api/add-enemy.
type AddEnemyResponse struct {
	Success     bool             `json:"success"`
	ThreatAreas []ThreatAreaView `json:"threatAreas"`
}

// EnemyHandler ingests enemy reports.
type EnemyHandler struct {
	engine *threat.Engine
	proj   *geo.Projector
	log    *logrus.Logger
}

// NewEnemyHandler creates an enemy handler.
func NewEnemyHandler(engine *threat.Engine, proj *geo.Projector, log *logrus.Logger) *EnemyHandler {
	return &EnemyHandler{engine: engine, proj: proj, log: log}
}

// AddEnemy handles POST /api/add-enemy: normalize, synthesize, merge,
// rasterize, and report the retained threat areas.
func (h *EnemyHandler) AddEnemy(w http.ResponseWriter, r *http.Request) {
	areas, ok := h.ingest(w, r)
	if !ok {
		return
	}
	views := make([]ThreatAreaView, 0, len(areas))
	for _, a := range areas {
		view, err := h.areaView(a)
		if err != nil {
			h.log.WithError(err).WithField("area", a.ID).Error("converting threat area")
			response.Error(w, http.StatusInternalServerError, "converting threat area")
			return
		}
		views = append(views, view)
	}
	response.JSON(w, http.StatusOK, AddEnemyResponse{Success: true, ThreatAreas: views})
}

// AddThreatArea handles POST /api/add-threat-area, the ingest-only alias.
func (h *EnemyHandler) AddThreatArea(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.ingest(w, r); !ok {
		return
	}
	response.Success(w)
}

// ThreatAreas handles GET /api/threat-areas, returning the retained polygons
// as a GeoJSON feature collection.
func (h *EnemyHandler) ThreatAreas(w http.ResponseWriter, r *http.Request) {
	fc := geojson.NewFeatureCollection()
	for _, a := range h.engine.Areas() {
		ring, err := h.geoRing(a)
		if err != nil {
			h.log.WithError(err).WithField("area", a.ID).Error("converting threat area")
			response.Error(w, http.StatusInternalServerError, "converting threat area")
			return
		}
		coords := make([][]float64, len(ring))
		for i, p := range ring {
			coords[i] = []float64{p[0], p[1]}
		}
		f := geojson.NewPolygonFeature([][][]float64{coords})
		f.ID = a.ID
		f.SetProperty("level", threat.WireLevel(a.Level))
		f.SetProperty("riskLevel", string(a.Level))
		f.SetProperty("description", a.Description)
		fc.AddFeature(f)
	}
	response.JSON(w, http.StatusOK, fc)
}

func (h *EnemyHandler) ingest(w http.ResponseWriter, r *http.Request) ([]*threat.Area, bool) {
	var req threat.Report
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	areas, err := h.engine.AddEnemy(req)
	if err != nil {
		switch {
		case errors.Is(err, threat.ErrNoLocation),
			errors.Is(err, threat.ErrUnknownType),
			errors.Is(err, threat.ErrUnknownWeapon):
			response.Error(w, http.StatusBadRequest, err.Error())
		default:
			h.log.WithError(err).Error("enemy ingest failed")
			response.Error(w, http.StatusInternalServerError, "enemy ingest failed")
		}
		return nil, false
	}
	m := observability.GetMetrics()
	m.EnemiesAdmitted.WithLabelValues(string(req.Type)).Inc()
	m.ThreatAreasActive.Set(float64(len(areas)))
	return areas, true
}

// areaView converts an area to its wire form.
func (h *EnemyHandler) areaView(a *threat.Area) (ThreatAreaView, error) {
	ring, err := h.geoRing(a)
	if err != nil {
		return ThreatAreaView{}, err
	}
	return ThreatAreaView{
		ID:          a.ID,
		Coordinates: [][][2]float64{ring},
		Level:       threat.WireLevel(a.Level),
		Description: a.Description,
	}, nil
}

// geoRing unprojects the area's outer ring to [lng, lat] pairs, closing it by
// repeating the first vertex.
func (h *EnemyHandler) geoRing(a *threat.Area) ([][2]float64, error) {
	geoPoly, err := h.proj.TransformPolygon(a.Polygon)
	if err != nil {
		return nil, err
	}
	if len(geoPoly) == 0 {
		return nil, nil
	}
	outer := geoPoly[0]
	ring := make([][2]float64, 0, len(outer)+1)
	for _, p := range outer {
		ring = append(ring, [2]float64{p.X, p.Y})
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring, nil
}
