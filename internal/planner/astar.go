package planner

import (
	"container/heap"
	"math"

	"github.com/asafarditi/Battlator/internal/costmap"
	"github.com/asafarditi/Battlator/internal/geo"
)

// frontierItem is an open-list entry. order is a monotonically increasing
// insertion counter so ties resolve deterministically, never by node identity.
type frontierItem struct {
	priority float64
	order    int
	node     geo.GridIndex
}

type frontier []frontierItem

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].priority != f[j].priority {
		return f[i].priority < f[j].priority
	}
	return f[i].order < f[j].order
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(frontierItem)) }

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

// moveCost is the cost of stepping into to from from: the destination's
// effective cost, times sqrt(2) for a diagonal step. Infinite destinations
// prune the edge.
func moveCost(g *costmap.Grid, from, to geo.GridIndex) float64 {
	c := g.Effective(to.Row, to.Col)
	if from.Row != to.Row && from.Col != to.Col {
		return c * math.Sqrt2
	}
	return c
}

// aStar runs 8-connected A* over the grid's effective cost and returns the
// node sequence from start to goal, or nil when goal is unreachable. The
// heuristic is Euclidean distance in cell units scaled by the minimum finite
// effective cell cost, which keeps it admissible. The closed set is implicit:
// a node is closed once costSoFar records a value no later pop can beat.
func aStar(g *costmap.Grid, start, goal geo.GridIndex) ([]geo.GridIndex, float64) {
	h := g.Height()
	w := g.Width()
	minCost := g.MinEffective()
	if math.IsInf(minCost, 1) {
		return nil, math.Inf(1)
	}
	heuristic := func(n geo.GridIndex) float64 {
		return math.Hypot(float64(goal.Row-n.Row), float64(goal.Col-n.Col)) * minCost
	}

	open := &frontier{}
	heap.Init(open)
	order := 0
	heap.Push(open, frontierItem{priority: heuristic(start), order: order, node: start})

	cameFrom := map[geo.GridIndex]geo.GridIndex{}
	costSoFar := map[geo.GridIndex]float64{start: 0}

	for open.Len() > 0 {
		current := heap.Pop(open).(frontierItem).node
		if current == goal {
			break
		}
		for di := -1; di <= 1; di++ {
			for dj := -1; dj <= 1; dj++ {
				if di == 0 && dj == 0 {
					continue
				}
				next := geo.GridIndex{Row: current.Row + di, Col: current.Col + dj}
				if next.Row < 0 || next.Row >= h || next.Col < 0 || next.Col >= w {
					continue
				}
				step := moveCost(g, current, next)
				if math.IsInf(step, 1) {
					continue
				}
				newCost := costSoFar[current] + step
				if prev, ok := costSoFar[next]; !ok || newCost < prev {
					costSoFar[next] = newCost
					cameFrom[next] = current
					order++
					heap.Push(open, frontierItem{priority: newCost + heuristic(next), order: order, node: next})
				}
			}
		}
	}
	path := []geo.GridIndex{goal}
	for cur := goal; cur != start; {
		prev, ok := cameFrom[cur]
		if !ok {
			return nil, math.Inf(1)
		}
		path = append(path, prev)
		cur = prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, costSoFar[goal]
}
