package costmap

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Slope-band terrain costs, degrees. Bands are half-open [lo, hi).
var slopeBands = []struct {
	hi   float64
	cost float64
}{
	{3, 10},
	{6, 30},
	{15, 50},
	{30, 70},
	{45, 100},
}

const axisTolerance = 1e-6

type demRecord struct {
	x, y, elev float64
}

// LoadDEM reads the DEM CSV (columns x_center, y_center, elevation), derives
// the slope-based terrain cost layer, and fills data voids from their nearest
// defined neighbor. The rows must form a regular rectangular grid in the
// projected CRS.
func LoadDEM(path string, log *logrus.Logger) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("costmap: opening DEM file: %w", err)
	}
	defer f.Close()

	records, err := readDEMRecords(f)
	if err != nil {
		return nil, fmt.Errorf("costmap: reading %s: %w", path, err)
	}
	g, err := buildGrid(records)
	if err != nil {
		return nil, fmt.Errorf("costmap: building grid from %s: %w", path, err)
	}
	log.WithFields(logrus.Fields{
		"rows": g.Height(),
		"cols": g.Width(),
		"dx":   g.dx,
		"dy":   g.dy,
	}).Info("DEM loaded")
	return g, nil
}

func readDEMRecords(r io.Reader) ([]demRecord, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	xCol, yCol, eCol := -1, -1, -1
	for i, name := range header {
		switch name {
		case "x_center":
			xCol = i
		case "y_center":
			yCol = i
		case "elevation":
			eCol = i
		}
	}
	if xCol < 0 || yCol < 0 || eCol < 0 {
		return nil, fmt.Errorf("missing columns, need x_center, y_center, elevation, got %v", header)
	}

	var records []demRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		x, err := strconv.ParseFloat(row[xCol], 64)
		if err != nil {
			return nil, fmt.Errorf("bad x_center %q: %w", row[xCol], err)
		}
		y, err := strconv.ParseFloat(row[yCol], 64)
		if err != nil {
			return nil, fmt.Errorf("bad y_center %q: %w", row[yCol], err)
		}
		elev := math.NaN()
		if row[eCol] != "" {
			elev, err = strconv.ParseFloat(row[eCol], 64)
			if err != nil {
				return nil, fmt.Errorf("bad elevation %q: %w", row[eCol], err)
			}
		}
		records = append(records, demRecord{x: x, y: y, elev: elev})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	return records, nil
}

// NewGridFromCells builds a grid from parallel coordinate/elevation slices.
// It is the construction path behind LoadDEM and the one tests use.
func NewGridFromCells(xs, ys, elevs []float64) (*Grid, error) {
	if len(xs) != len(ys) || len(xs) != len(elevs) {
		return nil, fmt.Errorf("costmap: mismatched cell slices")
	}
	records := make([]demRecord, len(xs))
	for i := range xs {
		records[i] = demRecord{x: xs[i], y: ys[i], elev: elevs[i]}
	}
	return buildGrid(records)
}

func buildGrid(records []demRecord) (*Grid, error) {
	xs := uniqueSorted(records, func(r demRecord) float64 { return r.x })
	ys := uniqueSorted(records, func(r demRecord) float64 { return r.y })
	if len(xs) < 2 || len(ys) < 2 {
		return nil, fmt.Errorf("grid needs at least 2x2 cells, got %dx%d", len(ys), len(xs))
	}
	dx, err := uniformSpacing(xs)
	if err != nil {
		return nil, fmt.Errorf("easting axis: %w", err)
	}
	dy, err := uniformSpacing(ys)
	if err != nil {
		return nil, fmt.Errorf("northing axis: %w", err)
	}

	h, w := len(ys), len(xs)
	elev := mat.NewDense(h, w, nil)
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			elev.Set(i, j, math.NaN())
		}
	}
	for _, r := range records {
		i := sort.SearchFloat64s(ys, r.y)
		j := sort.SearchFloat64s(xs, r.x)
		elev.Set(i, j, r.elev)
	}

	g := &Grid{
		xs:        xs,
		ys:        ys,
		dx:        dx,
		dy:        dy,
		elevation: elev,
		terrain:   mat.NewDense(h, w, nil),
		polygon:   mat.NewDense(h, w, nil),
		penalty:   mat.NewDense(h, w, nil),
		roadMask:  make([]bool, h*w),
	}
	g.deriveTerrain()
	return g, nil
}

// deriveTerrain computes slope from elevation gradients against true metric
// spacing, maps slope to cost bands, and fills data voids from the nearest
// defined cell. Cells that are genuinely steep (slope >= 45 with valid data)
// stay impassable; only missing-data cells are filled.
func (g *Grid) deriveTerrain() {
	h, w := len(g.ys), len(g.xs)
	missing := make([]bool, h*w)

	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			s := g.slopeDeg(i, j)
			switch {
			case math.IsNaN(s):
				missing[i*w+j] = true
				g.terrain.Set(i, j, math.Inf(1))
			case s >= 45:
				g.terrain.Set(i, j, math.Inf(1))
			default:
				g.terrain.Set(i, j, bandCost(s))
			}
		}
	}
	g.fillVoids(missing)
}

func bandCost(slope float64) float64 {
	for _, b := range slopeBands {
		if slope < b.hi {
			return b.cost
		}
	}
	return math.Inf(1)
}

// slopeDeg is the slope at a cell in degrees, from central differences in the
// interior and one-sided differences at the edges.
func (g *Grid) slopeDeg(i, j int) float64 {
	dzdx := g.partialX(i, j)
	dzdy := g.partialY(i, j)
	if math.IsNaN(dzdx) || math.IsNaN(dzdy) {
		return math.NaN()
	}
	return math.Atan(math.Hypot(dzdx, dzdy)) * 180 / math.Pi
}

func (g *Grid) partialX(i, j int) float64 {
	switch {
	case j > 0 && j < len(g.xs)-1:
		return (g.elevation.At(i, j+1) - g.elevation.At(i, j-1)) / (g.xs[j+1] - g.xs[j-1])
	case j == 0:
		return (g.elevation.At(i, 1) - g.elevation.At(i, 0)) / (g.xs[1] - g.xs[0])
	default:
		return (g.elevation.At(i, j) - g.elevation.At(i, j-1)) / (g.xs[j] - g.xs[j-1])
	}
}

func (g *Grid) partialY(i, j int) float64 {
	switch {
	case i > 0 && i < len(g.ys)-1:
		return (g.elevation.At(i+1, j) - g.elevation.At(i-1, j)) / (g.ys[i+1] - g.ys[i-1])
	case i == 0:
		return (g.elevation.At(1, j) - g.elevation.At(0, j)) / (g.ys[1] - g.ys[0])
	default:
		return (g.elevation.At(i, j) - g.elevation.At(i-1, j)) / (g.ys[i] - g.ys[i-1])
	}
}

// fillVoids assigns each missing-data cell the terrain cost of its nearest
// finite cell, breadth-first over the 8-neighborhood, so small data voids do
// not fragment the search space. Cells that are impassable because the ground
// is genuinely steep keep their cost; the sweep passes through them without
// turning voids impassable.
func (g *Grid) fillVoids(missing []bool) {
	h, w := len(g.ys), len(g.xs)
	type cell struct {
		i, j int
		v    float64
	}
	queue := make([]cell, 0, h*w)
	seen := make([]bool, h*w)

	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			if v := g.terrain.At(i, j); !math.IsInf(v, 1) {
				queue = append(queue, cell{i, j, v})
				seen[i*w+j] = true
			}
		}
	}
	if len(queue) == 0 {
		return
	}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for di := -1; di <= 1; di++ {
			for dj := -1; dj <= 1; dj++ {
				ni, nj := c.i+di, c.j+dj
				if ni < 0 || ni >= h || nj < 0 || nj >= w || seen[ni*w+nj] {
					continue
				}
				seen[ni*w+nj] = true
				if missing[ni*w+nj] {
					g.terrain.Set(ni, nj, c.v)
				}
				queue = append(queue, cell{ni, nj, c.v})
			}
		}
	}
}

func uniqueSorted(records []demRecord, get func(demRecord) float64) []float64 {
	seen := make(map[float64]struct{}, len(records))
	var out []float64
	for _, r := range records {
		v := get(r)
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

func uniformSpacing(axis []float64) (float64, error) {
	step := axis[1] - axis[0]
	for k := 1; k < len(axis); k++ {
		d := axis[k] - axis[k-1]
		if math.Abs(d-step) > axisTolerance*math.Max(1, math.Abs(step)) {
			return 0, fmt.Errorf("non-uniform spacing: %v vs %v", d, step)
		}
	}
	if step <= 0 {
		return 0, fmt.Errorf("non-increasing axis")
	}
	return step, nil
}
