package datastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 0 -> 1, 0 -> 2, 1 -> 2, 2 -> 0, 2 -> 2 (self loop)
func buildTestRoadGraph(t *testing.T) *RoadGraph {
	t.Helper()
	edges := []*OutEdge{
		NewOutEdge(2, 2, 1, 0, 0, 10),
		NewOutEdge(0, 2, 3, 2, 300, 5),
		NewOutEdge(1, 2, 1, 1, 100, 5),
		NewOutEdge(0, 1, 1, 1, 100, 5),
		NewOutEdge(2, 0, 2, 1, 200, 0),
	}
	g, err := NewRoadGraph(3, edges)
	require.NoError(t, err)
	return g
}

func TestRoadGraphCSR(t *testing.T) {
	g := buildTestRoadGraph(t)

	assert.Equal(t, 3, g.NumberOfVertices())
	assert.Equal(t, 5, g.NumberOfEdges())
	assert.Equal(t, []int{0, 2, 3, 5}, g.CumulativeNeighbors())

	testCases := []struct {
		name     string
		u, v     Index
		found    bool
		edgeId   Index
		duration int
	}{
		{name: "first edge of 0", u: 0, v: 1, found: true, edgeId: 0, duration: 1},
		{name: "second edge of 0", u: 0, v: 2, found: true, edgeId: 1, duration: 3},
		{name: "edge of 1", u: 1, v: 2, found: true, edgeId: 2, duration: 1},
		{name: "2 -> 0", u: 2, v: 0, found: true, edgeId: 3, duration: 2},
		{name: "self loop", u: 2, v: 2, found: true, edgeId: 4, duration: 1},
		{name: "missing edge", u: 1, v: 0, found: false},
		{name: "vertex out of range", u: 7, v: 0, found: false},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := g.FindEdge(tt.u, tt.v)
			require.Equal(t, tt.found, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.edgeId, e.GetEdgeId())
			assert.Equal(t, tt.duration, e.GetTravelTime())
			assert.Equal(t, tt.u, g.GetTailOfEdge(e.GetEdgeId()))
		})
	}
}

func TestRoadGraphInEdges(t *testing.T) {
	g := buildTestRoadGraph(t)

	tails := []Index{}
	g.ForInEdgesOf(2, func(e *OutEdge) {
		tails = append(tails, e.GetTail())
	})
	assert.Equal(t, []Index{0, 1, 2}, tails)
	assert.Equal(t, Index(3), g.GetInDegree(2))
	assert.Equal(t, Index(2), g.GetOutDegree(0))
}

func TestNewRoadGraphErrors(t *testing.T) {
	_, err := NewRoadGraph(2, []*OutEdge{NewOutEdge(0, 1, 1, 0, 0, 1), NewOutEdge(0, 1, 2, 0, 0, 1)})
	assert.ErrorIs(t, err, ErrDuplicateEdge)

	_, err = NewRoadGraph(2, []*OutEdge{NewOutEdge(0, 2, 1, 0, 0, 1)})
	assert.ErrorIs(t, err, ErrVertexRange)
}

func TestRunKosaraju(t *testing.T) {
	// the only way back to 0 is closed
	g := buildTestRoadGraph(t)
	sccs, n := g.RunKosaraju()
	assert.Equal(t, 3, n)
	assert.NotEqual(t, sccs[0], sccs[1])
	assert.NotEqual(t, sccs[1], sccs[2])

	edges := []*OutEdge{
		NewOutEdge(0, 1, 1, 0, 0, 1),
		NewOutEdge(1, 2, 1, 0, 0, 1),
		NewOutEdge(2, 0, 1, 0, 0, 1),
		NewOutEdge(2, 3, 1, 0, 0, 1),
	}
	g, err := NewRoadGraph(4, edges)
	require.NoError(t, err)
	sccs, n = g.RunKosaraju()
	assert.Equal(t, 2, n)
	assert.Equal(t, sccs[0], sccs[1])
	assert.Equal(t, sccs[0], sccs[2])
	assert.NotEqual(t, sccs[0], sccs[3])
}
