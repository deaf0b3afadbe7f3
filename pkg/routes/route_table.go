package routes

import (
	"fmt"

	"github.com/lintang-b-s/amodpower/pkg"
	da "github.com/lintang-b-s/amodpower/pkg/datastructure"
	"github.com/lintang-b-s/amodpower/pkg/util"
)

// UnreachableRouteError no path from From to To fits in the battery.
type UnreachableRouteError struct {
	From int
	To   int
}

func (e *UnreachableRouteError) Error() string {
	return fmt.Sprintf("no charge-feasible route from node %d to node %d", e.From, e.To)
}

func (e *UnreachableRouteError) Unwrap() error {
	return util.ErrUnreachableRoute
}

type Pair struct {
	From int
	To   int
}

// RouteTable holds the charge-feasible fastest route of every ordered node pair.
// node ids are 1-based, read-only after BuildRoutes.
type RouteTable struct {
	n     int
	graph *da.RoadGraph
	rows  [][]route // rows[origin-1][destination-1]
}

func (rt *RouteTable) NumNodes() int {
	return rt.n
}

func (rt *RouteTable) get(i, j int) (route, error) {
	if i < 1 || i > rt.n || j < 1 || j > rt.n {
		return route{}, util.WrapErrorf(nil, util.ErrIndexRange, "route table: pair (%d,%d) outside 1..%d", i, j, rt.n)
	}
	r := rt.rows[i-1][j-1]
	if !r.reachable {
		return r, &UnreachableRouteError{From: i, To: j}
	}
	return r, nil
}

// Time travel time in time steps of the route i -> j.
func (rt *RouteTable) Time(i, j int) (int, error) {
	r, err := rt.get(i, j)
	if err != nil {
		return pkg.UNREACHABLE, err
	}
	return r.time, nil
}

// Charge charge levels consumed on the route i -> j.
func (rt *RouteTable) Charge(i, j int) (int, error) {
	r, err := rt.get(i, j)
	if err != nil {
		return pkg.UNREACHABLE, err
	}
	return r.charge, nil
}

func (rt *RouteTable) Distance(i, j int) (float64, error) {
	r, err := rt.get(i, j)
	if err != nil {
		return 0, err
	}
	return r.dist, nil
}

// Path 1-based node sequence of the route, starting at i and ending at j.
func (rt *RouteTable) Path(i, j int) ([]int, error) {
	r, err := rt.get(i, j)
	if err != nil {
		return nil, err
	}
	path := make([]int, len(r.path))
	for p, v := range r.path {
		path[p] = int(v) + 1
	}
	return path, nil
}

func (rt *RouteTable) Reachable(i, j int) bool {
	_, err := rt.get(i, j)
	return err == nil
}

// Unreachable lists every ordered pair without a charge-feasible route.
func (rt *RouteTable) Unreachable() []Pair {
	pairs := make([]Pair, 0)
	for i, row := range rt.rows {
		for j, r := range row {
			if !r.reachable {
				pairs = append(pairs, Pair{From: i + 1, To: j + 1})
			}
		}
	}
	return pairs
}

// Suspicious lists reachable pairs i != j whose route crosses a zero-capacity road link.
// such routes exist in the table but no flow can use them.
func (rt *RouteTable) Suspicious() []Pair {
	pairs := make([]Pair, 0)
	for i, row := range rt.rows {
		for j, r := range row {
			if i == j || !r.reachable {
				continue
			}
			for _, e := range r.edges {
				if rt.graph.GetOutEdge(e).GetCapacity() == 0 {
					pairs = append(pairs, Pair{From: i + 1, To: j + 1})
					break
				}
			}
		}
	}
	return pairs
}
