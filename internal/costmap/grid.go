// Package costmap builds and holds the traversal cost raster: a terrain layer
// derived from the DEM and road network, a polygon overlay written by the
// threat engine, and a transient penalty overlay written by the planner.
package costmap

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/asafarditi/Battlator/internal/geo"
)

// Grid is the cost raster in projected metric coordinates. The three layers
// share its shape; a cell's traversal cost is their sum.
//
// Grid methods do not take the mutex themselves. The planner and the threat
// engine bracket whole operations with Lock/Unlock so that planning is atomic
// with respect to threat updates.
type Grid struct {
	mu sync.Mutex

	xs []float64 // easting cell centers, strictly increasing
	ys []float64 // northing cell centers, strictly increasing
	dx float64
	dy float64

	elevation *mat.Dense
	terrain   *mat.Dense
	polygon   *mat.Dense
	penalty   *mat.Dense

	roadMask []bool
}

// Lock acquires the grid mutex.
func (g *Grid) Lock() { g.mu.Lock() }

// Unlock releases the grid mutex.
func (g *Grid) Unlock() { g.mu.Unlock() }

// Width returns the number of columns (easting axis).
func (g *Grid) Width() int { return len(g.xs) }

// Height returns the number of rows (northing axis).
func (g *Grid) Height() int { return len(g.ys) }

// CellSize returns the metric spacing of the two axes.
func (g *Grid) CellSize() (dx, dy float64) { return g.dx, g.dy }

// CellCenter returns the metric coordinates of a cell center.
func (g *Grid) CellCenter(idx geo.GridIndex) geo.MetricPoint {
	return geo.MetricPoint{X: g.xs[idx.Col], Y: g.ys[idx.Row]}
}

// NearestIndex finds the cell whose center is closest to m. Out-of-range
// coordinates clamp to the boundary; inBounds reports whether m fell inside
// the grid extent (within half a cell of the outermost centers).
func (g *Grid) NearestIndex(m geo.MetricPoint) (idx geo.GridIndex, inBounds bool) {
	col, xIn := nearestOnAxis(g.xs, g.dx, m.X)
	row, yIn := nearestOnAxis(g.ys, g.dy, m.Y)
	return geo.GridIndex{Row: row, Col: col}, xIn && yIn
}

func nearestOnAxis(axis []float64, step, v float64) (int, bool) {
	n := len(axis)
	i := sort.SearchFloat64s(axis, v)
	switch {
	case i == 0:
		return 0, v >= axis[0]-step/2
	case i == n:
		return n - 1, v <= axis[n-1]+step/2
	}
	if v-axis[i-1] <= axis[i]-v {
		return i - 1, true
	}
	return i, true
}

// Elevation returns the DEM elevation at a cell, for inspection. Void cells
// stay NaN; void filling applies to the terrain cost layer only.
func (g *Grid) Elevation(i, j int) float64 { return g.elevation.At(i, j) }

// Terrain returns the terrain cost at a cell.
func (g *Grid) Terrain(i, j int) float64 { return g.terrain.At(i, j) }

// PolygonCost returns the threat-polygon overlay value at a cell.
func (g *Grid) PolygonCost(i, j int) float64 { return g.polygon.At(i, j) }

// Penalty returns the transient path-penalty overlay value at a cell.
func (g *Grid) Penalty(i, j int) float64 { return g.penalty.At(i, j) }

// Effective returns the cell's full traversal cost: terrain + polygon + penalty.
func (g *Grid) Effective(i, j int) float64 {
	return g.terrain.At(i, j) + g.polygon.At(i, j) + g.penalty.At(i, j)
}

// IsRoad reports whether a road sample fell in the cell during construction.
func (g *Grid) IsRoad(i, j int) bool { return g.roadMask[i*len(g.xs)+j] }

// MinEffective returns the smallest finite effective cost on the grid. It is
// the heuristic scale for A*; math.Inf(1) when every cell is impassable.
func (g *Grid) MinEffective() float64 {
	min := math.Inf(1)
	for i := 0; i < len(g.ys); i++ {
		for j := 0; j < len(g.xs); j++ {
			if c := g.Effective(i, j); c < min {
				min = c
			}
		}
	}
	return min
}

// ResetPolygonLayer zeroes the threat overlay ahead of a rebuild.
func (g *Grid) ResetPolygonLayer() {
	g.polygon.Zero()
}

// RaisePolygonCost writes max(current, cost) at a cell, so re-rasterizing an
// unchanged polygon is idempotent.
func (g *Grid) RaisePolygonCost(i, j int, cost float64) {
	if cost > g.polygon.At(i, j) {
		g.polygon.Set(i, j, cost)
	}
}

// StampPathPenalty adds amount to the penalty overlay on every cell whose
// center lies within radius meters of any point on the path. Each cell is
// raised once per call no matter how many path points cover it.
func (g *Grid) StampPathPenalty(path []geo.MetricPoint, radius, amount float64) {
	w := len(g.xs)
	hit := make(map[int]struct{})
	for _, p := range path {
		i0, i1 := axisRange(g.ys, p.Y-radius, p.Y+radius)
		j0, j1 := axisRange(g.xs, p.X-radius, p.X+radius)
		for i := i0; i <= i1; i++ {
			for j := j0; j <= j1; j++ {
				if _, done := hit[i*w+j]; done {
					continue
				}
				c := geo.MetricPoint{X: g.xs[j], Y: g.ys[i]}
				if geo.Dist(c, p) < radius {
					hit[i*w+j] = struct{}{}
					g.penalty.Set(i, j, g.penalty.At(i, j)+amount)
				}
			}
		}
	}
}

// ResetPenalty zeroes the penalty overlay. The planner defers it so the
// overlay is clean after every find-paths call, error or not.
func (g *Grid) ResetPenalty() {
	g.penalty.Zero()
}

// PenaltyIsZero reports whether the whole penalty overlay is zero.
func (g *Grid) PenaltyIsZero() bool {
	for i := 0; i < len(g.ys); i++ {
		for j := 0; j < len(g.xs); j++ {
			if g.penalty.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// CellRange returns the index ranges of cells whose centers fall inside the
// metric bounding box [xmin,xmax]×[ymin,ymax].
func (g *Grid) CellRange(xmin, ymin, xmax, ymax float64) (i0, i1, j0, j1 int) {
	i0, i1 = axisRange(g.ys, ymin, ymax)
	j0, j1 = axisRange(g.xs, xmin, xmax)
	return
}

func axisRange(axis []float64, lo, hi float64) (int, int) {
	a := sort.SearchFloat64s(axis, lo)
	b := sort.SearchFloat64s(axis, hi)
	if b >= len(axis) || axis[b] > hi {
		b--
	}
	if a < 0 {
		a = 0
	}
	if b >= len(axis) {
		b = len(axis) - 1
	}
	return a, b
}
