package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/asafarditi/Battlator/internal/api/realtime"
	"github.com/asafarditi/Battlator/internal/costmap"
	"github.com/asafarditi/Battlator/internal/geo"
	"github.com/asafarditi/Battlator/internal/mission"
	"github.com/asafarditi/Battlator/internal/planner"
	"github.com/asafarditi/Battlator/internal/routes"
	"github.com/asafarditi/Battlator/internal/threat"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	var xs, ys, zs []float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			xs = append(xs, 500000+float64(j)*10)
			ys = append(ys, 4400000+float64(i)*10)
			zs = append(zs, 0)
		}
	}
	grid, err := costmap.NewGridFromCells(xs, ys, zs)
	if err != nil {
		t.Fatalf("building grid: %v", err)
	}
	proj, err := geo.NewProjector(geo.DefaultProj4)
	if err != nil {
		t.Fatalf("building projector: %v", err)
	}

	pl := planner.New(grid, proj, 1000, 200, log)
	tracker := mission.NewTracker(5, time.Second, log)
	registry := routes.NewRegistry()
	engine := threat.New(grid, proj, 15,
		threat.Weights{Count: 6, Range: 0.4, Potential: 0.8},
		threat.Thresholds{Moderate: 500, High: 1200, Critical: 5000}, log)
	broadcaster := realtime.NewBroadcaster(tracker, time.Hour, log)

	return NewRouter(pl, engine, tracker, registry, broadcaster, proj, 3, log)
}

func TestRouterWiring(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/blue-force-position", http.StatusNotFound},
		{http.MethodGet, "/api/threat-areas", http.StatusOK},
		{http.MethodPost, "/api/stop-mission", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, c := range cases {
		req := httptest.NewRequest(c.method, c.path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != c.want {
			t.Errorf("%s %s = %d, want %d", c.method, c.path, rr.Code, c.want)
		}
	}
}
