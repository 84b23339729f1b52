// Package api provides HTTP routing for the Battlator API server.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/asafarditi/Battlator/internal/api/handlers"
	"github.com/asafarditi/Battlator/internal/api/realtime"
	"github.com/asafarditi/Battlator/internal/geo"
	"github.com/asafarditi/Battlator/internal/mission"
	"github.com/asafarditi/Battlator/internal/planner"
	"github.com/asafarditi/Battlator/internal/platform/observability"
	"github.com/asafarditi/Battlator/internal/routes"
	"github.com/asafarditi/Battlator/internal/threat"
)

// NewRouter sets up all API routes and handlers.
func NewRouter(
	p *planner.Planner,
	engine *threat.Engine,
	tracker *mission.Tracker,
	registry *routes.Registry,
	broadcaster *realtime.Broadcaster,
	proj *geo.Projector,
	numPaths int,
	log *logrus.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	planHandler := handlers.NewPlanHandler(p, registry, numPaths, log)
	missionHandler := handlers.NewMissionHandler(tracker, registry, log)
	enemyHandler := handlers.NewEnemyHandler(engine, proj, log)

	r.Get("/health", handlers.Health)
	r.Get("/metrics", observability.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Post("/plan-route", planHandler.PlanRoute)
		r.Post("/start-mission", missionHandler.StartMission)
		r.Post("/stop-mission", missionHandler.StopMission)
		r.Get("/blue-force-position", missionHandler.BlueForcePosition)
		r.Post("/add-enemy", enemyHandler.AddEnemy)
		r.Post("/add-threat-area", enemyHandler.AddThreatArea)
		r.Get("/threat-areas", enemyHandler.ThreatAreas)
	})

	r.Get("/ws/position", realtime.HandlePositionSocket(broadcaster, log))

	return r
}
