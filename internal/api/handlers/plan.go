// Package handlers provides the HTTP handlers for the routing API.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/asafarditi/Battlator/internal/api/response"
	"github.com/asafarditi/Battlator/internal/geo"
	"github.com/asafarditi/Battlator/internal/planner"
	"github.com/asafarditi/Battlator/internal/platform/observability"
	"github.com/asafarditi/Battlator/internal/routes"
)

// PlanRequest is the body of POST /api/plan-route.
type PlanRequest struct {
	Start geo.GeoPoint `json:"start"`
	End   geo.GeoPoint `json:"end"`
}

// PlanResponse carries the planned routes, possibly empty.
type PlanResponse struct {
	Routes []planner.Route `json:"routes"`
}

// PlanHandler plans routes and remembers them in the registry.
type PlanHandler struct {
	planner  *planner.Planner
	registry *routes.Registry
	numPaths int
	log      *logrus.Logger
}

// NewPlanHandler creates a plan handler.
func NewPlanHandler(p *planner.Planner, reg *routes.Registry, numPaths int, log *logrus.Logger) *PlanHandler {
	return &PlanHandler{planner: p, registry: reg, numPaths: numPaths, log: log}
}

// PlanRoute handles POST /api/plan-route.
func (h *PlanHandler) PlanRoute(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validGeoPoint(req.Start) || !validGeoPoint(req.End) {
		response.Error(w, http.StatusBadRequest, "coordinates out of range")
		return
	}

	m := observability.GetMetrics()
	m.PlanRequests.Inc()
	started := time.Now()

	found, err := h.planner.FindPaths(req.Start, req.End, h.numPaths)
	if err != nil {
		h.log.WithError(err).Error("planning failed")
		response.Error(w, http.StatusInternalServerError, "planning failed")
		return
	}
	m.PlanDuration.Observe(time.Since(started).Seconds())
	m.PathsReturned.Observe(float64(len(found)))

	h.registry.Replace(found)
	if found == nil {
		found = []planner.Route{}
	}
	response.JSON(w, http.StatusOK, PlanResponse{Routes: found})
}

func validGeoPoint(p geo.GeoPoint) bool {
	return p.Lng >= -180 && p.Lng <= 180 && p.Lat >= -90 && p.Lat <= 90
}
