// Package config loads service configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/asafarditi/Battlator/internal/geo"
)

// Config carries every recognized option with its default applied.
type Config struct {
	Addr      string
	DEMFile   string
	RoadsFile string

	// Projected CRS the DEM, roads, and all planning math live in.
	Proj4 string

	// Cost-map construction.
	RoadReduction float64 // subtracted from terrain cost on road cells
	RoadSpacing   float64 // arc-length step for road rasterization, meters

	// Planner.
	PathPenalty   float64 // additive cost stamped on already-used-path cells
	PenaltyRadius float64 // metric radius of the penalty stamp
	NumPaths      int     // max paths per plan-route call

	// Mission simulation.
	SpeedKmh        float64
	UpdatePeriod    time.Duration
	BroadcastPeriod time.Duration

	// Threat synthesis.
	CircleDivisor     float64
	CountWeight       float64
	RangeWeight       float64
	PotentialWeight   float64
	ModerateThreshold float64
	HighThreshold     float64
	CriticalThreshold float64
}

// Load reads configuration from the environment. A missing .env file is not an
// error.
func Load(log *logrus.Logger) Config {
	if err := godotenv.Load(); err != nil {
		log.WithError(err).Debug("no .env file loaded")
	}

	return Config{
		Addr:      envString("BATTLATOR_ADDR", ":8000"),
		DEMFile:   envString("BATTLATOR_DEM_FILE", "data/downscaled_dem_10m.csv"),
		RoadsFile: envString("BATTLATOR_ROADS_FILE", "data/clipped_roads_utm.csv"),
		Proj4:     envString("BATTLATOR_PROJ4", geo.DefaultProj4),

		RoadReduction: envFloat("BATTLATOR_ROAD_REDUCTION", 15),
		RoadSpacing:   envFloat("BATTLATOR_ROAD_SPACING_M", 10),

		PathPenalty:   envFloat("BATTLATOR_PATH_PENALTY", 1000),
		PenaltyRadius: envFloat("BATTLATOR_PENALTY_RADIUS_M", 200),
		NumPaths:      envInt("BATTLATOR_NUM_PATHS", 3),

		SpeedKmh:        envFloat("BATTLATOR_SPEED_KMH", 5),
		UpdatePeriod:    envDuration("BATTLATOR_UPDATE_PERIOD", time.Second),
		BroadcastPeriod: envDuration("BATTLATOR_BROADCAST_PERIOD", time.Second),

		CircleDivisor:     envFloat("BATTLATOR_CIRCLE_DIVISOR", 15),
		CountWeight:       envFloat("BATTLATOR_COUNT_WEIGHT", 6.0),
		RangeWeight:       envFloat("BATTLATOR_RANGE_WEIGHT", 0.4),
		PotentialWeight:   envFloat("BATTLATOR_POTENTIAL_WEIGHT", 0.8),
		ModerateThreshold: envFloat("BATTLATOR_THRESHOLD_MODERATE", 500),
		HighThreshold:     envFloat("BATTLATOR_THRESHOLD_HIGH", 1200),
		CriticalThreshold: envFloat("BATTLATOR_THRESHOLD_CRITICAL", 5000),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
