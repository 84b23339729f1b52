// Package planner finds geographically distinct least-cost ground routes over
// the cost grid by iterative penalty re-planning.
package planner

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/asafarditi/Battlator/internal/costmap"
	"github.com/asafarditi/Battlator/internal/geo"
)

// PathPoint is one route waypoint with the threat-overlay value the planner
// saw at that cell.
type PathPoint struct {
	Coordinates geo.GeoPoint `json:"coordinates"`
	ThreatScore float64      `json:"threatScore"`
}

// Route is a planned path from start to end.
type Route struct {
	ID        string      `json:"id"`
	Path      []PathPoint `json:"path"`
	Distance  float64     `json:"distance"`  // meters along the grid path
	RiskScore float64     `json:"riskScore"` // mean per-point threat score
	RoadUsage float64     `json:"roadUsage"` // percent of path cells on a road
}

// Planner runs multi-path A* over a cost grid.
type Planner struct {
	grid *costmap.Grid
	proj *geo.Projector
	log  *logrus.Logger

	penalty       float64
	penaltyRadius float64
}

// New builds a planner. penalty and radius configure the re-planning overlay
// stamped around already-found paths.
func New(grid *costmap.Grid, proj *geo.Projector, penalty, radius float64, log *logrus.Logger) *Planner {
	return &Planner{grid: grid, proj: proj, log: log, penalty: penalty, penaltyRadius: radius}
}

// FindPaths plans up to k distinct routes between two geodetic points. An
// unreachable goal, an out-of-grid endpoint, or an endpoint on impassable
// terrain all yield an empty slice, not an error. The penalty overlay is
// restored to zero before returning, on every path out.
func (p *Planner) FindPaths(start, end geo.GeoPoint, k int) ([]Route, error) {
	if k <= 0 {
		return nil, nil
	}
	startM, err := p.proj.ToMetric(start)
	if err != nil {
		return nil, err
	}
	endM, err := p.proj.ToMetric(end)
	if err != nil {
		return nil, err
	}

	p.grid.Lock()
	defer p.grid.Unlock()
	defer p.grid.ResetPenalty()

	startIdx, startIn := p.grid.NearestIndex(startM)
	endIdx, endIn := p.grid.NearestIndex(endM)
	if !startIn || !endIn {
		p.log.WithFields(logrus.Fields{"startIn": startIn, "endIn": endIn}).Warn("plan endpoints outside grid")
		return nil, nil
	}
	if math.IsInf(p.grid.Effective(startIdx.Row, startIdx.Col), 1) ||
		math.IsInf(p.grid.Effective(endIdx.Row, endIdx.Col), 1) {
		return nil, nil
	}

	var routes []Route
	seen := map[string]struct{}{}
	for len(routes) < k {
		nodes, cost := aStar(p.grid, startIdx, endIdx)
		if nodes == nil {
			break
		}
		key := nodeKey(nodes)
		if _, dup := seen[key]; dup {
			break
		}
		seen[key] = struct{}{}

		route, err := p.buildRoute(nodes)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
		p.log.WithFields(logrus.Fields{
			"route": route.ID,
			"cells": len(nodes),
			"cost":  cost,
		}).Debug("path found")

		p.stampPathPenalty(nodes)
	}
	return routes, nil
}

// buildRoute converts a grid node sequence into a geodetic route, reading the
// threat score of each cell from the polygon overlay as it stands now.
func (p *Planner) buildRoute(nodes []geo.GridIndex) (Route, error) {
	points := make([]PathPoint, 0, len(nodes))
	distance := 0.0
	riskTotal := 0.0
	roadCells := 0

	var prev geo.MetricPoint
	for n, idx := range nodes {
		m := p.grid.CellCenter(idx)
		if n > 0 {
			distance += geo.Dist(prev, m)
		}
		prev = m

		g, err := p.proj.ToGeo(m)
		if err != nil {
			return Route{}, fmt.Errorf("planner: converting path point: %w", err)
		}
		threat := p.grid.PolygonCost(idx.Row, idx.Col)
		riskTotal += threat
		if p.grid.IsRoad(idx.Row, idx.Col) {
			roadCells++
		}
		points = append(points, PathPoint{Coordinates: g, ThreatScore: threat})
	}

	route := Route{
		ID:       uuid.New().String(),
		Path:     points,
		Distance: distance,
	}
	if len(points) > 0 {
		route.RiskScore = riskTotal / float64(len(points))
		route.RoadUsage = float64(roadCells) / float64(len(points)) * 100
	}
	return route, nil
}

// stampPathPenalty raises the penalty overlay within the configured radius of
// the path so the next round is pushed onto different ground.
func (p *Planner) stampPathPenalty(nodes []geo.GridIndex) {
	points := make([]geo.MetricPoint, len(nodes))
	for n, idx := range nodes {
		points[n] = p.grid.CellCenter(idx)
	}
	p.grid.StampPathPenalty(points, p.penaltyRadius, p.penalty)
}

func nodeKey(nodes []geo.GridIndex) string {
	var b strings.Builder
	for _, n := range nodes {
		fmt.Fprintf(&b, "%d,%d;", n.Row, n.Col)
	}
	return b.String()
}
