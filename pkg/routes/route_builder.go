package routes

import (
	"runtime"

	"github.com/lintang-b-s/amodpower/pkg"
	"github.com/lintang-b-s/amodpower/pkg/concurrent"
	da "github.com/lintang-b-s/amodpower/pkg/datastructure"
	"github.com/lintang-b-s/amodpower/pkg/util"
)

// label is one (time, charge) state reached during the search from a single origin.
type label struct {
	node   da.Index
	time   int
	charge int // charge levels consumed so far
	dist   float64
	edge   da.Index // edge used to reach node, unused for the origin label
	parent int      // index into the label arena, -1 at the origin
}

type route struct {
	time      int
	charge    int
	dist      float64
	path      []da.Index
	edges     []da.Index
	reachable bool
}

// BuildRoutes computes, for every ordered pair of nodes, the fastest path whose cumulative
// charge cost stays within chargeLevels-1. origins are searched in parallel by workers
// goroutines (workers <= 0 uses GOMAXPROCS); every origin only fills its own row.
func BuildRoutes(graph *da.RoadGraph, chargeLevels int, workers int) (*RouteTable, error) {
	if graph == nil {
		return nil, util.WrapErrorf(nil, util.ErrSpec, "route builder: nil graph")
	}
	if chargeLevels < 1 {
		return nil, util.WrapErrorf(nil, util.ErrSpec, "route builder: charge levels must be at least 1, got %d", chargeLevels)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	n := graph.NumberOfVertices()
	origins := make([]da.Index, n)
	for i := range origins {
		origins[i] = da.Index(i)
	}

	budget := chargeLevels - 1
	rows := concurrent.Map(workers, origins, func(origin da.Index) []route {
		return newLabelSearch(graph, budget).run(origin)
	})

	return &RouteTable{n: n, graph: graph, rows: rows}, nil
}

type labelSearch struct {
	graph  *da.RoadGraph
	budget int

	labels    []label
	minCharge []int // smallest charge among settled labels per node
	pq        *da.MinHeap[int]
	// heap entry of the label per (node, charge), stale once extracted
	queued map[labelKey]*da.PriorityQueueNode[int]
}

type labelKey struct {
	node   da.Index
	charge int
}

func newLabelSearch(graph *da.RoadGraph, budget int) *labelSearch {
	n := graph.NumberOfVertices()
	minCharge := make([]int, n)
	for v := range minCharge {
		minCharge[v] = pkg.INF_WEIGHT_INT
	}
	pq := da.NewFourAryHeap[int]()
	pq.Preallocate(n)
	return &labelSearch{
		graph:     graph,
		budget:    budget,
		labels:    make([]label, 0, n),
		minCharge: minCharge,
		pq:        pq,
		queued:    make(map[labelKey]*da.PriorityQueueNode[int]),
	}
}

// rank orders labels lexicographically by (time, charge).
func (ls *labelSearch) rank(l label) float64 {
	return float64(l.time)*float64(ls.budget+1) + float64(l.charge)
}

// push queues l. a label still queued at the same node and charge keeps one heap entry: the
// earlier (then shorter) of the two wins and its key is decreased in place.
func (ls *labelSearch) push(l label) {
	key := labelKey{node: l.node, charge: l.charge}
	if entry, ok := ls.queued[key]; ok && entry.GetPos() >= 0 {
		id := entry.GetItem()
		old := ls.labels[id]
		if l.time > old.time || (l.time == old.time && l.dist >= old.dist) {
			return
		}
		// a queued label has not been expanded, nothing points at it as parent
		ls.labels[id] = l
		if err := ls.pq.DecreaseKey(entry, ls.rank(l)); err == nil {
			return
		}
	}

	ls.labels = append(ls.labels, l)
	id := len(ls.labels) - 1
	entry := da.NewPriorityQueueNode(ls.rank(l), id)
	ls.queued[key] = entry
	ls.pq.Insert(entry)
}

func (ls *labelSearch) run(origin da.Index) []route {
	n := ls.graph.NumberOfVertices()
	row := make([]route, n)
	// first settled label per node is the fastest one, ties broken by charge
	firstSettled := make([]int, n)
	for v := range firstSettled {
		firstSettled[v] = -1
	}

	ls.push(label{node: origin, parent: -1})

	for !ls.pq.IsEmpty() {
		item, err := ls.pq.ExtractMin()
		if err != nil {
			break
		}
		id := item.GetItem()
		cur := ls.labels[id]

		if cur.charge >= ls.minCharge[cur.node] {
			// dominated: a settled label arrived no later with no more charge used
			continue
		}
		ls.minCharge[cur.node] = cur.charge
		if firstSettled[cur.node] < 0 {
			firstSettled[cur.node] = id
		}

		ls.graph.ForOutEdgesOf(cur.node, func(e *da.OutEdge) {
			if e.IsSelfLoop() {
				return
			}
			charge := cur.charge + e.GetChargeCost()
			if charge > ls.budget || charge >= ls.minCharge[e.GetHead()] {
				return
			}
			ls.push(label{
				node:   e.GetHead(),
				time:   cur.time + e.GetTravelTime(),
				charge: charge,
				dist:   cur.dist + e.GetLength(),
				edge:   e.GetEdgeId(),
				parent: id,
			})
		})
	}

	for v := 0; v < n; v++ {
		id := firstSettled[v]
		if id < 0 {
			continue
		}
		l := ls.labels[id]
		path, edges := ls.unpack(id)
		row[v] = route{
			time:      l.time,
			charge:    l.charge,
			dist:      l.dist,
			path:      path,
			edges:     edges,
			reachable: true,
		}
	}
	return row
}

// unpack walks parent pointers back to the origin.
func (ls *labelSearch) unpack(id int) ([]da.Index, []da.Index) {
	path := make([]da.Index, 0)
	edges := make([]da.Index, 0)
	for cur := id; cur >= 0; cur = ls.labels[cur].parent {
		path = append(path, ls.labels[cur].node)
		if ls.labels[cur].parent >= 0 {
			edges = append(edges, ls.labels[cur].edge)
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return path, edges
}
