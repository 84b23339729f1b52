// Package mission simulates movement of the blue force along a selected route
// at a fixed update cadence.
package mission

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/asafarditi/Battlator/internal/geo"
	"github.com/asafarditi/Battlator/internal/planner"
)

// ErrAlreadyMoving rejects Start while a mission is running. State is left
// untouched.
var ErrAlreadyMoving = errors.New("mission already moving")

// State is the tracker's lifecycle phase.
type State int

const (
	// Idle means no active route.
	Idle State = iota
	// Running means positions are being emitted every update period.
	Running
	// Paused holds the last position and progress for a later resume.
	Paused
)

// segment is the pre-computed movement between two consecutive waypoints:
// updates+1 interpolated positions, endpoints inclusive.
type segment struct {
	positions []geo.GeoPoint
}

// Tracker runs at most one mission. Its mutex is independent of the cost-grid
// mutex and is never held across an update-period sleep.
type Tracker struct {
	speedKmh float64
	period   time.Duration
	log      *logrus.Logger

	mu       sync.Mutex
	state    State
	routeID  string
	segments []segment
	segIdx   int
	posIdx   int
	pos      geo.GeoPoint
	hasPos   bool
	gen      int // increments on every Start, so a stale loop exits
}

// NewTracker builds a tracker with the configured ground speed (km/h) and
// update period.
func NewTracker(speedKmh float64, period time.Duration, log *logrus.Logger) *Tracker {
	return &Tracker{speedKmh: speedKmh, period: period, log: log}
}

// Start begins or resumes movement along a route. Starting the route that was
// paused resumes from the saved segment and position indices; starting a
// different route recomputes segments and resets progress. Start while
// already running returns ErrAlreadyMoving without side effects.
func (t *Tracker) Start(route *planner.Route) error {
	if route == nil || len(route.Path) < 2 {
		return errors.New("mission: route needs at least 2 waypoints")
	}

	t.mu.Lock()
	if t.state == Running {
		t.mu.Unlock()
		return ErrAlreadyMoving
	}
	if t.routeID != route.ID {
		t.segments = t.prepare(route)
		t.routeID = route.ID
		t.segIdx = 0
		t.posIdx = 0
	}
	t.state = Running
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{"route": route.ID, "segments": len(t.segments)}).Info("mission started")
	go t.run(gen)
	return nil
}

// Stop pauses the mission at the next update boundary. It is idempotent.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Running {
		t.state = Paused
	}
}

// CurrentPosition returns the last emitted position. ok is false if no
// mission ever emitted one.
func (t *Tracker) CurrentPosition() (geo.GeoPoint, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos, t.hasPos
}

// StateNow returns the tracker's current phase.
func (t *Tracker) StateNow() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Progress returns the saved segment and position indices.
func (t *Tracker) Progress() (seg, pos int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.segIdx, t.posIdx
}

// prepare pre-computes every segment of the route: haversine distance, travel
// time at the configured speed, and the interpolated positions one update
// period apart.
func (t *Tracker) prepare(route *planner.Route) []segment {
	waypoints := make([]geo.GeoPoint, len(route.Path))
	for i, p := range route.Path {
		waypoints[i] = p.Coordinates
	}

	segments := make([]segment, 0, len(waypoints)-1)
	for i := 0; i+1 < len(waypoints); i++ {
		start, end := waypoints[i], waypoints[i+1]
		distanceKm := geo.Haversine(start, end)
		travelSec := distanceKm / t.speedKmh * 3600
		updates := int(travelSec / t.period.Seconds())

		positions := make([]geo.GeoPoint, 0, updates+1)
		for step := 0; step <= updates; step++ {
			f := 1.0
			if updates > 0 {
				f = float64(step) / float64(updates)
			}
			positions = append(positions, geo.Interpolate(start, end, f))
		}
		segments = append(segments, segment{positions: positions})
	}
	return segments
}

// run is the movement loop. It emits the next pre-computed position, then
// sleeps one update period. The stop flag (state leaving Running) and the
// generation counter are checked before every emission; there is no forced
// preemption.
func (t *Tracker) run(gen int) {
	for {
		t.mu.Lock()
		if t.gen != gen || t.state != Running {
			t.mu.Unlock()
			return
		}
		if t.segIdx >= len(t.segments) {
			// Route complete: back to Idle, progress reset.
			t.state = Idle
			t.routeID = ""
			t.segIdx = 0
			t.posIdx = 0
			t.mu.Unlock()
			t.log.Info("mission completed")
			return
		}
		seg := t.segments[t.segIdx]
		t.pos = seg.positions[t.posIdx]
		t.hasPos = true
		t.posIdx++
		if t.posIdx >= len(seg.positions) {
			t.segIdx++
			t.posIdx = 0
		}
		t.mu.Unlock()

		time.Sleep(t.period)
	}
}
