// Package main implements the Battlator route-planning service: a
// terrain-aware multi-path planner with live threat modeling and blue-force
// mission tracking.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/asafarditi/Battlator/internal/api"
	"github.com/asafarditi/Battlator/internal/api/realtime"
	"github.com/asafarditi/Battlator/internal/config"
	"github.com/asafarditi/Battlator/internal/costmap"
	"github.com/asafarditi/Battlator/internal/geo"
	"github.com/asafarditi/Battlator/internal/mission"
	"github.com/asafarditi/Battlator/internal/planner"
	"github.com/asafarditi/Battlator/internal/routes"
	"github.com/asafarditi/Battlator/internal/threat"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load(log)

	addr := flag.String("addr", cfg.Addr, "HTTP server address")
	demFile := flag.String("dem", cfg.DEMFile, "DEM CSV file")
	roadsFile := flag.String("roads", cfg.RoadsFile, "roads CSV file")
	flag.Parse()

	proj, err := geo.NewProjector(cfg.Proj4)
	if err != nil {
		log.WithError(err).Fatal("building projector")
	}

	grid, err := costmap.LoadDEM(*demFile, log)
	if err != nil {
		log.WithError(err).Fatal("loading DEM")
	}
	if err := grid.ApplyRoads(*roadsFile, cfg.RoadSpacing, cfg.RoadReduction, log); err != nil {
		log.WithError(err).Fatal("loading roads")
	}

	pl := planner.New(grid, proj, cfg.PathPenalty, cfg.PenaltyRadius, log)
	tracker := mission.NewTracker(cfg.SpeedKmh, cfg.UpdatePeriod, log)
	registry := routes.NewRegistry()

	engine := threat.New(grid, proj, cfg.CircleDivisor,
		threat.Weights{Count: cfg.CountWeight, Range: cfg.RangeWeight, Potential: cfg.PotentialWeight},
		threat.Thresholds{Moderate: cfg.ModerateThreshold, High: cfg.HighThreshold, Critical: cfg.CriticalThreshold},
		log)
	engine.OnAdmit(tracker.Stop)

	broadcaster := realtime.NewBroadcaster(tracker, cfg.BroadcastPeriod, log)
	go broadcaster.Start()
	defer broadcaster.Stop()

	router := api.NewRouter(pl, engine, tracker, registry, broadcaster, proj, cfg.NumPaths, log)

	server := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", *addr).Info("Battlator listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	tracker.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}
