package planner

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asafarditi/Battlator/internal/costmap"
	"github.com/asafarditi/Battlator/internal/geo"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func buildGrid(t *testing.T, h, w int, spacing float64, elev func(i, j int) float64) *costmap.Grid {
	t.Helper()
	var xs, ys, zs []float64
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			xs = append(xs, 500000+float64(j)*spacing)
			ys = append(ys, 4400000+float64(i)*spacing)
			zs = append(zs, elev(i, j))
		}
	}
	g, err := costmap.NewGridFromCells(xs, ys, zs)
	require.NoError(t, err)
	return g
}

func flat(i, j int) float64 { return 0 }

func assertEightConnected(t *testing.T, nodes []geo.GridIndex) {
	t.Helper()
	for k := 1; k < len(nodes); k++ {
		di := nodes[k].Row - nodes[k-1].Row
		dj := nodes[k].Col - nodes[k-1].Col
		assert.LessOrEqual(t, abs(di), 1)
		assert.LessOrEqual(t, abs(dj), 1)
		assert.False(t, di == 0 && dj == 0, "path repeats a node")
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func TestAStarFlatDiagonal(t *testing.T) {
	g := buildGrid(t, 3, 3, 10, flat)
	nodes, cost := aStar(g, geo.GridIndex{Row: 0, Col: 0}, geo.GridIndex{Row: 2, Col: 2})

	require.Len(t, nodes, 3)
	assert.Equal(t, []geo.GridIndex{{Row: 0, Col: 0}, {Row: 1, Col: 1}, {Row: 2, Col: 2}}, nodes)
	assert.InDelta(t, 2*10*math.Sqrt2, cost, 0.01)
	assertEightConnected(t, nodes)
}

func TestAStarStartEqualsEnd(t *testing.T) {
	g := buildGrid(t, 3, 3, 10, flat)
	nodes, cost := aStar(g, geo.GridIndex{Row: 1, Col: 1}, geo.GridIndex{Row: 1, Col: 1})
	require.Len(t, nodes, 1)
	assert.Zero(t, cost)
}

func TestAStarRoutesAroundRidge(t *testing.T) {
	// Rows 0-2 of the middle columns form a steep wall; the only way across
	// is the low ground at the bottom rows.
	g := buildGrid(t, 5, 5, 10, func(i, j int) float64 {
		if i <= 2 && j == 2 {
			return 40
		}
		return 0
	})
	nodes, _ := aStar(g, geo.GridIndex{Row: 2, Col: 0}, geo.GridIndex{Row: 2, Col: 4})
	require.NotNil(t, nodes)
	for _, n := range nodes {
		if n.Row <= 2 {
			assert.NotContains(t, []int{1, 2, 3}, n.Col,
				"path crosses the ridge at (%d,%d)", n.Row, n.Col)
		}
	}
	assertEightConnected(t, nodes)
}

func TestAStarUnreachableGoal(t *testing.T) {
	// A full-height impassable wall separates start from goal.
	g := buildGrid(t, 5, 5, 10, func(i, j int) float64 {
		if j == 2 {
			return 40
		}
		return 0
	})
	nodes, cost := aStar(g, geo.GridIndex{Row: 2, Col: 0}, geo.GridIndex{Row: 2, Col: 4})
	assert.Nil(t, nodes)
	assert.True(t, math.IsInf(cost, 1))
}

func TestAStarPrefersRoad(t *testing.T) {
	g := buildGrid(t, 5, 5, 10, flat)
	row2 := []geo.MetricPoint{
		g.CellCenter(geo.GridIndex{Row: 2, Col: 0}),
		g.CellCenter(geo.GridIndex{Row: 2, Col: 4}),
	}
	g.ApplyRoadLines([][]geo.MetricPoint{row2}, 10, 15)

	nodes, _ := aStar(g, geo.GridIndex{Row: 0, Col: 0}, geo.GridIndex{Row: 4, Col: 4})
	require.NotNil(t, nodes)
	onRoad := false
	for _, n := range nodes {
		if n.Row == 2 {
			onRoad = true
		}
	}
	assert.True(t, onRoad, "path never touches the road row")
}

func TestAStarAvoidsThreatOverlay(t *testing.T) {
	g := buildGrid(t, 7, 7, 10, flat)
	for i := 2; i <= 4; i++ {
		for j := 2; j <= 4; j++ {
			g.RaisePolygonCost(i, j, math.Inf(1))
		}
	}
	nodes, _ := aStar(g, geo.GridIndex{Row: 3, Col: 0}, geo.GridIndex{Row: 3, Col: 6})
	require.NotNil(t, nodes)
	for _, n := range nodes {
		assert.False(t, math.IsInf(g.Effective(n.Row, n.Col), 1),
			"path enters impassable cell (%d,%d)", n.Row, n.Col)
	}
}

func newTestPlanner(t *testing.T, g *costmap.Grid, penalty, radius float64) (*Planner, *geo.Projector) {
	t.Helper()
	proj, err := geo.NewProjector(geo.DefaultProj4)
	require.NoError(t, err)
	return New(g, proj, penalty, radius, testLogger()), proj
}

func cellGeo(t *testing.T, proj *geo.Projector, g *costmap.Grid, i, j int) geo.GeoPoint {
	t.Helper()
	p, err := proj.ToGeo(g.CellCenter(geo.GridIndex{Row: i, Col: j}))
	require.NoError(t, err)
	return p
}

func TestFindPathsSingle(t *testing.T) {
	g := buildGrid(t, 3, 3, 10, flat)
	p, proj := newTestPlanner(t, g, 1000, 200)

	routes, err := p.FindPaths(cellGeo(t, proj, g, 0, 0), cellGeo(t, proj, g, 2, 2), 1)
	require.NoError(t, err)
	require.Len(t, routes, 1)

	r := routes[0]
	assert.Len(t, r.Path, 3)
	assert.InDelta(t, 2*10*math.Sqrt2, r.Distance, 0.05)
	assert.Zero(t, r.RiskScore)
	assert.NotEmpty(t, r.ID)
	assert.True(t, g.PenaltyIsZero(), "penalty overlay must be restored")
}

func TestFindPathsZeroK(t *testing.T) {
	g := buildGrid(t, 3, 3, 10, flat)
	p, proj := newTestPlanner(t, g, 1000, 200)
	routes, err := p.FindPaths(cellGeo(t, proj, g, 0, 0), cellGeo(t, proj, g, 2, 2), 0)
	require.NoError(t, err)
	assert.Empty(t, routes)
}

func TestFindPathsOutOfGrid(t *testing.T) {
	g := buildGrid(t, 3, 3, 10, flat)
	p, _ := newTestPlanner(t, g, 1000, 200)
	// A point far outside the grid extent.
	routes, err := p.FindPaths(geo.GeoPoint{Lat: 10, Lng: -105}, geo.GeoPoint{Lat: 39.7, Lng: -104.99}, 1)
	require.NoError(t, err)
	assert.Empty(t, routes)
	assert.True(t, g.PenaltyIsZero())
}

func TestFindPathsDiverse(t *testing.T) {
	// 20x20 at 100 m spacing so the 200 m penalty radius bends later rounds
	// onto different ground instead of blanketing the whole grid.
	g := buildGrid(t, 20, 20, 100, flat)
	p, proj := newTestPlanner(t, g, 1000, 200)

	routes, err := p.FindPaths(cellGeo(t, proj, g, 0, 0), cellGeo(t, proj, g, 19, 19), 3)
	require.NoError(t, err)
	require.Len(t, routes, 3)

	keys := map[string]bool{}
	for _, r := range routes {
		var b strings.Builder
		for _, pt := range r.Path {
			fmt.Fprintf(&b, "%.7f,%.7f;", pt.Coordinates.Lat, pt.Coordinates.Lng)
		}
		key := b.String()
		assert.False(t, keys[key], "duplicate path returned")
		keys[key] = true
	}
	assert.True(t, g.PenaltyIsZero(), "penalty overlay must be restored")
}

func TestFindPathsThreatScoresReported(t *testing.T) {
	g := buildGrid(t, 5, 5, 10, flat)
	for j := 0; j < 5; j++ {
		g.RaisePolygonCost(2, j, 50)
	}
	p, proj := newTestPlanner(t, g, 1000, 200)

	routes, err := p.FindPaths(cellGeo(t, proj, g, 0, 0), cellGeo(t, proj, g, 4, 4), 1)
	require.NoError(t, err)
	require.Len(t, routes, 1)

	// The direct diagonal crosses the medium-threat band exactly once.
	sawThreat := 0.0
	for _, pt := range routes[0].Path {
		sawThreat += pt.ThreatScore
	}
	assert.Greater(t, sawThreat, 0.0)
	assert.Greater(t, routes[0].RiskScore, 0.0)
}
