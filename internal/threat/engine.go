package threat

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
	"github.com/sirupsen/logrus"

	"github.com/asafarditi/Battlator/internal/costmap"
	gx "github.com/asafarditi/Battlator/internal/geo"
)

// RiskLevel is the discrete threat summary of an area.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

const (
	circleVertices = 32
	// mediumOverlayCost is the finite overlay contribution of a non-high
	// polygon; high polygons contribute +Inf.
	mediumOverlayCost = 50.0
)

// Area is a closed threat polygon in metric coordinates with the enemies that
// produced it. Areas are immutable after admission; merging supersedes them
// with a new Area.
type Area struct {
	ID          string
	Polygon     geom.Polygon
	Level       RiskLevel
	Score       float64
	Description string
	Enemies     []*Enemy
}

// Bounds implements the rtree item interface.
func (a *Area) Bounds() *geom.Bounds { return a.Polygon.Bounds() }

// Len, Points, Similar, and Transform delegate to the underlying Polygon so
// that Area satisfies geom.Geom for rtree indexing.
func (a *Area) Len() int                   { return a.Polygon.Len() }
func (a *Area) Points() func() geom.Point  { return a.Polygon.Points() }
func (a *Area) Similar(g geom.Geom, tolerance float64) bool {
	return a.Polygon.Similar(g, tolerance)
}
func (a *Area) Transform(t proj.Transformer) (geom.Geom, error) {
	return a.Polygon.Transform(t)
}

// Weights configure the area risk score.
type Weights struct {
	Count     float64
	Range     float64
	Potential float64
}

// Thresholds map a risk score to a level. Scores below Moderate are low,
// below High are medium, and High and above (Critical included) are high.
type Thresholds struct {
	Moderate float64
	High     float64
	Critical float64
}

// Engine owns the threat-polygon set and is the sole writer of the grid's
// polygon overlay.
type Engine struct {
	grid *costmap.Grid
	proj *gx.Projector
	log  *logrus.Logger

	divisor    float64
	weights    Weights
	thresholds Thresholds

	// onAdmit runs after a successful admission, outside the grid lock. The
	// service wires it to stop any running mission.
	onAdmit func()

	mu      sync.Mutex
	areas   []*Area
	enemies map[string]*Enemy
}

// New builds a threat engine over the grid.
func New(grid *costmap.Grid, proj *gx.Projector, divisor float64, w Weights, t Thresholds, log *logrus.Logger) *Engine {
	return &Engine{
		grid:       grid,
		proj:       proj,
		log:        log,
		divisor:    divisor,
		weights:    w,
		thresholds: t,
		enemies:    map[string]*Enemy{},
	}
}

// OnAdmit registers a callback fired after each admitted enemy.
func (e *Engine) OnAdmit(fn func()) { e.onAdmit = fn }

// AddEnemy normalizes a report, synthesizes its threat circles, merges the
// polygon set, and rebuilds the grid overlay. It returns the full set of
// areas retained after merging.
func (e *Engine) AddEnemy(r Report) ([]*Area, error) {
	enemy, err := Normalize(r, e.proj)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.enemies[enemy.ID] = enemy
	e.areas = append(e.areas, e.synthesize(enemy)...)
	e.areas = e.merge(e.areas)
	retained := make([]*Area, len(e.areas))
	copy(retained, e.areas)
	// Rebuild under the engine mutex so concurrent admissions cannot write
	// the overlay out of order.
	e.rasterize(retained)
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"enemy": enemy.ID,
		"type":  enemy.Type,
		"areas": len(retained),
	}).Info("enemy admitted")

	if e.onAdmit != nil {
		e.onAdmit()
	}
	return retained, nil
}

// Areas returns a snapshot of the retained threat areas.
func (e *Engine) Areas() []*Area {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Area, len(e.areas))
	copy(out, e.areas)
	return out
}

// synthesize emits one circle polygon per enemy location, radius
// effectiveRange/divisor, 32 vertices, metric coordinates.
func (e *Engine) synthesize(enemy *Enemy) []*Area {
	radius := enemy.EffectiveRange / e.divisor
	areas := make([]*Area, 0, len(enemy.Locations))
	for n, loc := range enemy.Locations {
		ring := make([]geom.Point, 0, circleVertices)
		for k := 0; k < circleVertices; k++ {
			angle := float64(k) / circleVertices * 2 * math.Pi
			ring = append(ring, geom.Point{
				X: loc.X + radius*math.Sin(angle),
				Y: loc.Y + radius*math.Cos(angle),
			})
		}
		poly := geom.Polygon{ring}
		score, level := e.scoreEnemies([]*Enemy{enemy})
		areas = append(areas, &Area{
			ID:          fmt.Sprintf("threat_%s_%d", enemy.ID, n),
			Polygon:     poly,
			Level:       level,
			Score:       score,
			Description: fmt.Sprintf("Threat area for %s unit", enemy.Type),
			Enemies:     []*Enemy{enemy},
		})
	}
	return areas
}

// scoreEnemies computes the weighted risk score of a set of enemies and maps
// it to a level.
func (e *Engine) scoreEnemies(enemies []*Enemy) (float64, RiskLevel) {
	if len(enemies) == 0 {
		return 0, RiskLow
	}
	maxRange := 0.0
	totalPotential := 0.0
	for _, en := range enemies {
		maxRange = math.Max(maxRange, en.EffectiveRange)
		totalPotential += en.RiskPotential
	}
	score := float64(len(enemies))*e.weights.Count +
		maxRange*e.weights.Range +
		totalPotential*e.weights.Potential

	switch {
	case score >= e.thresholds.High:
		return score, RiskHigh
	case score >= e.thresholds.Moderate:
		return score, RiskMedium
	default:
		return score, RiskLow
	}
}

// merge greedily unions intersecting areas until the set stabilizes. Each
// merged polygon is normalized through the clipper (repairing any
// self-intersection), collapsed to its largest component, and re-scored from
// the union of its contributing enemies.
func (e *Engine) merge(areas []*Area) []*Area {
	if len(areas) < 2 {
		return areas
	}

	index := rtree.NewTree(25, 50)
	for _, a := range areas {
		index.Insert(a)
	}

	processed := map[*Area]bool{}
	var merged []*Area
	for _, a := range areas {
		if processed[a] {
			continue
		}
		processed[a] = true
		poly := cleanPolygon(a.Polygon)
		enemies := append([]*Enemy{}, a.Enemies...)
		contributors := []string{a.ID}

		// Keep absorbing intersecting neighbors until this component stops
		// growing.
		grew := true
		for grew {
			grew = false
			for _, hit := range index.SearchIntersect(poly.Bounds()) {
				b := hit.(*Area)
				if processed[b] {
					continue
				}
				isect := poly.Intersection(b.Polygon)
				if isect == nil || isect.Area() == 0 {
					continue
				}
				poly = cleanPolygon(poly.Union(b.Polygon).(geom.Polygon))
				enemies = mergeEnemies(enemies, b.Enemies)
				contributors = append(contributors, b.ID)
				processed[b] = true
				grew = true
			}
		}

		if len(contributors) == 1 {
			merged = append(merged, a)
			continue
		}
		score, level := e.scoreEnemies(enemies)
		merged = append(merged, &Area{
			ID:          mergedID(enemies),
			Polygon:     poly,
			Level:       level,
			Score:       score,
			Description: mergedDescription(enemies),
			Enemies:     enemies,
		})
	}
	return merged
}

// cleanPolygon normalizes a polygon through the clipping library (a self-union
// repairs self-intersections the way buffer(0) does elsewhere) and collapses
// a multi-polygon result to its largest-area component.
func cleanPolygon(p geom.Polygon) geom.Polygon {
	normalized := p.Union(p)
	if normalized == nil {
		return p
	}
	parts := normalized.Polygons()
	if len(parts) <= 1 {
		return normalized.(geom.Polygon)
	}
	largest := parts[0]
	for _, part := range parts[1:] {
		if part.Area() > largest.Area() {
			largest = part
		}
	}
	return largest
}

func mergeEnemies(a, b []*Enemy) []*Enemy {
	seen := map[string]bool{}
	var out []*Enemy
	for _, e := range append(a, b...) {
		if !seen[e.ID] {
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	return out
}

func mergedID(enemies []*Enemy) string {
	ids := make([]string, len(enemies))
	for i, e := range enemies {
		ids[i] = e.ID
	}
	sort.Strings(ids)
	return "merged_" + strings.Join(ids, "_")
}

func mergedDescription(enemies []*Enemy) string {
	seen := map[EnemyType]bool{}
	var types []string
	for _, e := range enemies {
		if !seen[e.Type] {
			seen[e.Type] = true
			types = append(types, string(e.Type))
		}
	}
	sort.Strings(types)
	return "Merged threat area containing " + strings.Join(types, ", ") + " units"
}

// rasterize rebuilds the polygon overlay from the retained area set. The
// whole rebuild runs under the grid mutex so planning never sees a torn
// overlay. Writes take the max of contributions, so re-rasterizing an
// unchanged polygon is idempotent.
func (e *Engine) rasterize(areas []*Area) {
	e.grid.Lock()
	defer e.grid.Unlock()

	e.grid.ResetPolygonLayer()
	for _, a := range areas {
		contribution := mediumOverlayCost
		if a.Level == RiskHigh {
			contribution = math.Inf(1)
		}
		b := a.Polygon.Bounds()
		i0, i1, j0, j1 := e.grid.CellRange(b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
		for i := i0; i <= i1; i++ {
			for j := j0; j <= j1; j++ {
				c := e.grid.CellCenter(gx.GridIndex{Row: i, Col: j})
				if (geom.Point{X: c.X, Y: c.Y}).Within(a.Polygon) != geom.Outside {
					e.grid.RaisePolygonCost(i, j, contribution)
				}
			}
		}
	}
}

// WireLevel maps an internal risk level to the wire spelling.
func WireLevel(l RiskLevel) string {
	if l == RiskHigh {
		return "highThreat"
	}
	return "medThreat"
}
