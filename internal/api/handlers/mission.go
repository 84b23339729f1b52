package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/asafarditi/Battlator/internal/api/response"
	"github.com/asafarditi/Battlator/internal/mission"
	"github.com/asafarditi/Battlator/internal/platform/observability"
	"github.com/asafarditi/Battlator/internal/routes"
)

// StartMissionRequest is the body of POST /api/start-mission.
type StartMissionRequest struct {
	RouteID string `json:"routeId"`
}

// MissionHandler drives the mission tracker.
type MissionHandler struct {
	tracker  *mission.Tracker
	registry *routes.Registry
	log      *logrus.Logger
}

// NewMissionHandler creates a mission handler.
func NewMissionHandler(t *mission.Tracker, reg *routes.Registry, log *logrus.Logger) *MissionHandler {
	return &MissionHandler{tracker: t, registry: reg, log: log}
}

// StartMission handles POST /api/start-mission.
func (h *MissionHandler) StartMission(w http.ResponseWriter, r *http.Request) {
	var req StartMissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	route, err := h.registry.Get(req.RouteID)
	if err != nil {
		response.Error(w, http.StatusNotFound, "Route not found")
		return
	}
	if err := h.tracker.Start(route); err != nil {
		if errors.Is(err, mission.ErrAlreadyMoving) {
			response.Error(w, http.StatusConflict, "already moving")
			return
		}
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	observability.GetMetrics().MissionsStarted.Inc()
	response.Success(w)
}

// StopMission handles POST /api/stop-mission. Stop is idempotent.
func (h *MissionHandler) StopMission(w http.ResponseWriter, r *http.Request) {
	h.tracker.Stop()
	observability.GetMetrics().MissionsStopped.Inc()
	response.Success(w)
}

// BlueForcePosition handles GET /api/blue-force-position.
func (h *MissionHandler) BlueForcePosition(w http.ResponseWriter, r *http.Request) {
	pos, ok := h.tracker.CurrentPosition()
	if !ok {
		response.Error(w, http.StatusNotFound, "No active mission")
		return
	}
	response.JSON(w, http.StatusOK, map[string]float64{"lat": pos.Lat, "lng": pos.Lng})
}
