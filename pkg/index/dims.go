package index

import (
	"sort"

	da "github.com/lintang-b-s/amodpower/pkg/datastructure"
	"github.com/lintang-b-s/amodpower/pkg/problem"
)

// Dims is every dimension constant the index formulas need, computed once per problem.
// N nodes, E road links, Thor time steps, C charge levels, M passenger commodities, L chargers.
type Dims struct {
	N    int
	E    int
	Thor int
	C    int
	M    int
	L    int

	NumSinks             int
	NumSourcesPerSink    []int
	CumNumSourcesPerSink []int // len NumSinks+1, CumNumSourcesPerSink[0] = 0
	TotNumSources        int

	// CumNeighbors[i-1] is the number of road links whose tail precedes node i, len N+1.
	CumNeighbors []int
	Relaxation   bool

	edgeHeads []int // 1-based head of the link at position pos-1, grouped by tail and sorted
}

func NewDims(spec *problem.ProblemSpec) *Dims {
	g := spec.Graph()
	heads := make([]int, g.NumberOfEdges())
	for e := range heads {
		heads[e] = int(g.GetOutEdge(da.Index(e)).GetHead()) + 1
	}
	return &Dims{
		N:                    spec.NumNodes(),
		E:                    spec.NumEdges(),
		Thor:                 spec.Horizon(),
		C:                    spec.ChargeLevels(),
		M:                    spec.NumPassengerClasses(),
		L:                    spec.NumChargers(),
		NumSinks:             spec.NumSinks(),
		NumSourcesPerSink:    spec.NumSourcesPerSinkAll(),
		CumNumSourcesPerSink: spec.CumNumSourcesPerSink(),
		TotNumSources:        spec.TotNumSources(),
		CumNeighbors:         g.CumulativeNeighbors(),
		Relaxation:           spec.RelaxationEnabled(),
		edgeHeads:            heads,
	}
}

// EdgePos 1-based position of road link i -> j, equal to its edge id + 1.
func (d *Dims) EdgePos(i, j int) (int, bool) {
	if i < 1 || i > d.N || j < 1 || j > d.N {
		return 0, false
	}
	lo, hi := d.CumNeighbors[i-1], d.CumNeighbors[i]
	p := lo + sort.SearchInts(d.edgeHeads[lo:hi], j)
	if p < hi && d.edgeHeads[p] == j {
		return p + 1, true
	}
	return 0, false
}

// EdgeAt inverse of EdgePos.
func (d *Dims) EdgeAt(pos int) (int, int) {
	e := pos - 1
	// first tail whose cumulative count passes e
	i := sort.Search(d.N, func(v int) bool {
		return d.CumNeighbors[v+1] > e
	}) + 1
	return i, d.edgeHeads[e]
}

// sinkOfSource maps a 0-based flat source offset to (k, s).
func (d *Dims) sinkOfSource(r int) (int, int) {
	k := sort.Search(d.NumSinks, func(k int) bool {
		return d.CumNumSourcesPerSink[k+1] > r
	}) + 1
	return k, r - d.CumNumSourcesPerSink[k-1] + 1
}
