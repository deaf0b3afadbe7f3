package datastructure

import (
	"errors"
	"fmt"
	"sort"
)

type Index uint32

type Vertex struct {
	firstOut Index // index of the first outEdge of this vertex in the flattened graph.outEdges array
	firstIn  Index // index of the first inEdge of this vertex in the flattened graph.inEdges array
	id       Index
}

func (v *Vertex) GetID() Index {
	return v.id
}

func (v *Vertex) GetFirstOut() Index {
	return v.firstOut
}

func (v *Vertex) GetFirstIn() Index {
	return v.firstIn
}

// OutEdge is a road link tail -> head. travelTime in time steps, chargeCost in charge levels.
type OutEdge struct {
	travelTime int
	chargeCost int
	dist       float64
	capacity   float64
	edgeId     Index
	tail       Index
	head       Index
}

// InEdge mirrors an OutEdge for backward traversal, edgeId points back into graph.outEdges
type InEdge struct {
	edgeId Index
	tail   Index
}

func NewOutEdge(tail, head Index, travelTime, chargeCost int, dist, capacity float64) *OutEdge {
	return &OutEdge{
		tail:       tail,
		head:       head,
		travelTime: travelTime,
		chargeCost: chargeCost,
		dist:       dist,
		capacity:   capacity,
	}
}

func (e *OutEdge) GetTravelTime() int {
	return e.travelTime
}

func (e *OutEdge) GetChargeCost() int {
	return e.chargeCost
}

func (e *OutEdge) GetLength() float64 {
	return e.dist
}

func (e *OutEdge) GetCapacity() float64 {
	return e.capacity
}

func (e *OutEdge) GetHead() Index {
	return e.head
}

func (e *OutEdge) GetTail() Index {
	return e.tail
}

func (e *OutEdge) GetEdgeId() Index {
	return e.edgeId
}

func (e *OutEdge) IsSelfLoop() bool {
	return e.head == e.tail
}

func (e *InEdge) GetEdgeId() Index {
	return e.edgeId
}

func (e *InEdge) GetTail() Index {
	return e.tail
}

var (
	ErrDuplicateEdge = errors.New("duplicate road link")
	ErrVertexRange   = errors.New("vertex out of range")
)

// RoadGraph is a static directed graph in compressed sparse row form.
// outEdges are grouped by tail and sorted by head, so vertices[u].firstOut is the number of edges whose tail precedes u
// (the cumulative neighbour count). vertices has a sentinel at position n.
type RoadGraph struct {
	vertices []*Vertex
	outEdges []*OutEdge
	inEdges  []*InEdge
}

// NewRoadGraph builds the csr arrays. edges may come in any order; parallel edges are rejected.
func NewRoadGraph(numVertices int, edges []*OutEdge) (*RoadGraph, error) {
	sorted := make([]*OutEdge, len(edges))
	copy(sorted, edges)
	for _, e := range sorted {
		if int(e.tail) >= numVertices || int(e.head) >= numVertices {
			return nil, fmt.Errorf("%w: edge %d->%d with %d vertices", ErrVertexRange, e.tail, e.head, numVertices)
		}
	}

	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].tail != sorted[b].tail {
			return sorted[a].tail < sorted[b].tail
		}
		return sorted[a].head < sorted[b].head
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].tail == sorted[i-1].tail && sorted[i].head == sorted[i-1].head {
			return nil, fmt.Errorf("%w: %d->%d", ErrDuplicateEdge, sorted[i].tail, sorted[i].head)
		}
	}

	vertices := make([]*Vertex, numVertices+1)
	for v := range vertices {
		vertices[v] = &Vertex{id: Index(v)}
	}

	outDeg := make([]Index, numVertices+1)
	inDeg := make([]Index, numVertices+1)
	outEdges := make([]*OutEdge, len(sorted))
	for id, e := range sorted {
		ne := *e
		ne.edgeId = Index(id)
		outEdges[id] = &ne
		outDeg[e.tail]++
		inDeg[e.head]++
	}

	var firstOut, firstIn Index
	for v := 0; v <= numVertices; v++ {
		vertices[v].firstOut = firstOut
		vertices[v].firstIn = firstIn
		if v < numVertices {
			firstOut += outDeg[v]
			firstIn += inDeg[v]
		}
	}

	inEdges := make([]*InEdge, len(outEdges))
	fill := make([]Index, numVertices)
	// outEdges are sorted by tail, so every inEdge list is sorted by tail as well
	for _, e := range outEdges {
		pos := vertices[e.head].firstIn + fill[e.head]
		inEdges[pos] = &InEdge{edgeId: e.edgeId, tail: e.tail}
		fill[e.head]++
	}

	return &RoadGraph{vertices: vertices, outEdges: outEdges, inEdges: inEdges}, nil
}

func (g *RoadGraph) NumberOfVertices() int {
	return len(g.vertices) - 1
}

func (g *RoadGraph) NumberOfEdges() int {
	return len(g.outEdges)
}

func (g *RoadGraph) GetOutDegree(u Index) Index {
	return g.vertices[u+1].firstOut - g.vertices[u].firstOut
}

func (g *RoadGraph) GetInDegree(u Index) Index {
	return g.vertices[u+1].firstIn - g.vertices[u].firstIn
}

// GetExitOffset number of out edges of all vertices before u.
func (g *RoadGraph) GetExitOffset(u Index) Index {
	return g.vertices[u].firstOut
}

func (g *RoadGraph) GetOutEdge(e Index) *OutEdge {
	return g.outEdges[e]
}

func (g *RoadGraph) ForOutEdgesOf(u Index, handle func(e *OutEdge)) {
	for e := g.vertices[u].firstOut; e < g.vertices[u+1].firstOut; e++ {
		handle(g.outEdges[e])
	}
}

func (g *RoadGraph) ForInEdgesOf(v Index, handle func(e *OutEdge)) {
	for e := g.vertices[v].firstIn; e < g.vertices[v+1].firstIn; e++ {
		handle(g.outEdges[g.inEdges[e].edgeId])
	}
}

func (g *RoadGraph) ForOutEdges(handle func(e *OutEdge)) {
	for _, e := range g.outEdges {
		handle(e)
	}
}

// FindEdge binary search over the sorted out edges of u.
func (g *RoadGraph) FindEdge(u, v Index) (*OutEdge, bool) {
	if int(u) >= g.NumberOfVertices() || int(v) >= g.NumberOfVertices() {
		return nil, false
	}
	lo, hi := int(g.vertices[u].firstOut), int(g.vertices[u+1].firstOut)
	pos := lo + sort.Search(hi-lo, func(i int) bool {
		return g.outEdges[lo+i].head >= v
	})
	if pos < hi && g.outEdges[pos].head == v {
		return g.outEdges[pos], true
	}
	return nil, false
}

// GetTailOfEdge finds the tail of edge id e from the firstOut offsets. O(log V).
func (g *RoadGraph) GetTailOfEdge(e Index) Index {
	n := g.NumberOfVertices()
	u := sort.Search(n, func(v int) bool {
		return g.vertices[v+1].firstOut > e
	})
	return Index(u)
}

// CumulativeNeighbors returns a copy of the firstOut offsets, length n+1.
func (g *RoadGraph) CumulativeNeighbors() []int {
	cum := make([]int, len(g.vertices))
	for v, vert := range g.vertices {
		cum[v] = int(vert.firstOut)
	}
	return cum
}
