package datastructure

import "github.com/lintang-b-s/amodpower/pkg/util"

// RunKosaraju runs kosaraju's algorithm over the road links with positive capacity.
// sccs[v] is the component id of vertex v, ids are assigned in the order components are found.
func (g *RoadGraph) RunKosaraju() (sccs []Index, numComponents int) {
	n := g.NumberOfVertices()

	order := make([]Index, 0, n)
	visited := make([]bool, n)
	for v := 0; v < n; v++ {
		if !visited[v] {
			g.dfs(Index(v), &order, visited, false)
		}
	}

	order = util.ReverseG[Index](order)

	// reset visited
	visited = make([]bool, n)
	sccs = make([]Index, n)
	for _, v := range order {
		if visited[v] {
			continue
		}
		component := make([]Index, 0, 10)
		g.dfs(v, &component, visited, true)
		for _, u := range component {
			sccs[u] = Index(numComponents)
		}
		numComponents++
	}
	return sccs, numComponents
}

func (g *RoadGraph) dfs(v Index, output *[]Index, visited []bool, reversed bool) {
	visited[v] = true

	if !reversed {
		g.ForOutEdgesOf(v, func(e *OutEdge) {
			if e.GetCapacity() <= 0 {
				return
			}
			if !visited[e.GetHead()] {
				g.dfs(e.GetHead(), output, visited, reversed)
			}
		})
	} else {
		g.ForInEdgesOf(v, func(e *OutEdge) {
			if e.GetCapacity() <= 0 {
				return
			}
			if !visited[e.GetTail()] {
				g.dfs(e.GetTail(), output, visited, reversed)
			}
		})
	}

	*output = append(*output, v)
}
