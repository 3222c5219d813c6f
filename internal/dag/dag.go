package dag

import (
	"fmt"
	"slices"
)

// New creates a graph with n nodes, indexed 0..n-1, and no edges.
func New(n int) *Graph {
	g := &Graph{nodes: make([]*node, 0, n)}
	for range n {
		g.AddNode()
	}
	return g
}

// AddNode appends a node and returns its index.
func (g *Graph) AddNode() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	id := len(g.nodes)
	g.nodes = append(g.nodes, &node{id: id})
	return id
}

func (g *Graph) lookup(id int) *node {
	if id < 0 || id >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. Adding an existing
// edge is a no-op. An error is returned if either node does not exist or if
// the edge would create a self-reference.
func (g *Graph) AddEdge(fromID, toID int) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %d -> %d", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode := g.lookup(fromID)
	if fromNode == nil {
		return fmt.Errorf("source node not found: %d", fromID)
	}
	toNode := g.lookup(toID)
	if toNode == nil {
		return fmt.Errorf("destination node not found: %d", toID)
	}

	toNode.deps = insertSorted(toNode.deps, fromID)
	fromNode.dependents = insertSorted(fromNode.dependents, toID)
	return nil
}

func insertSorted(s []int, v int) []int {
	i, found := slices.BinarySearch(s, v)
	if found {
		return s
	}
	return slices.Insert(s, i, v)
}

// Dependencies returns the nodes that id depends on, in index order.
func (g *Graph) Dependencies(id int) ([]int, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n := g.lookup(id)
	if n == nil {
		return nil, fmt.Errorf("node not found: %d", id)
	}
	return slices.Clone(n.deps), nil
}

// Dependents returns the nodes that depend on id, in index order.
func (g *Graph) Dependents(id int) ([]int, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n := g.lookup(id)
	if n == nil {
		return nil, fmt.Errorf("node not found: %d", id)
	}
	return slices.Clone(n.dependents), nil
}

// Subgraph returns a new graph over the same index space containing only the
// nodes for which keep returns true, and only edges between kept nodes.
func (g *Graph) Subgraph(keep func(id int) bool) *Graph {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	sub := &Graph{nodes: make([]*node, len(g.nodes))}
	for _, n := range g.nodes {
		if n != nil && keep(n.id) {
			sub.nodes[n.id] = &node{id: n.id}
		}
	}
	for _, n := range sub.nodes {
		if n == nil {
			continue
		}
		for _, d := range g.nodes[n.id].deps {
			if sub.nodes[d] != nil {
				n.deps = append(n.deps, d)
			}
		}
		for _, d := range g.nodes[n.id].dependents {
			if sub.nodes[d] != nil {
				n.dependents = append(n.dependents, d)
			}
		}
	}
	return sub
}

// Reachable returns, in index order, every node reachable from the start
// nodes by following dependent edges. The start nodes themselves are
// included only if reachable from another start node.
func (g *Graph) Reachable(start ...int) []int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	seen := make([]bool, len(g.nodes))
	queue := make([]int, 0, len(start))
	for _, id := range start {
		if n := g.lookup(id); n != nil {
			queue = append(queue, n.dependents...)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		queue = append(queue, g.nodes[id].dependents...)
	}

	var out []int
	for id, ok := range seen {
		if ok {
			out = append(out, id)
		}
	}
	return out
}

// DetectCycles checks the graph for any cycles. It returns a *CycleError
// describing the first cycle found, or nil.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Use classic depth-first search with three sets of nodes:
	// permanent: nodes that have been fully visited and are not part of a cycle.
	// temporary: nodes currently in the recursion stack for the current traversal.
	// unvisited: all other nodes.
	permanent := make([]bool, len(g.nodes))
	temporary := make([]bool, len(g.nodes))
	var stack []int

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			// We've hit a node that's already in our recursion stack.
			start := slices.Index(stack, n.id)
			return &CycleError{Nodes: rotateToMin(slices.Clone(stack[start:]))}
		}

		temporary[n.id] = true
		stack = append(stack, n.id)

		for _, d := range n.dependents {
			if err := visit(g.nodes[d]); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		temporary[n.id] = false
		permanent[n.id] = true
		return nil
	}

	for _, n := range g.nodes {
		if n != nil && !permanent[n.id] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

func rotateToMin(cycle []int) []int {
	if len(cycle) == 0 {
		return cycle
	}
	i := slices.Index(cycle, slices.Min(cycle))
	return slices.Concat(cycle[i:], cycle[:i])
}

// TopoSort returns the present nodes in dependency order: every node comes
// after all of its dependencies. Among nodes that are ready at the same time
// the lowest index goes first. A cyclic graph yields a *CycleError.
func (g *Graph) TopoSort() ([]int, error) {
	g.mutex.RLock()
	order, complete := g.kahn()
	g.mutex.RUnlock()

	if !complete {
		return nil, g.DetectCycles()
	}
	return order, nil
}

// kahn runs Kahn's algorithm. It must be called with the read lock held.
func (g *Graph) kahn() ([]int, bool) {
	indegree := make([]int, len(g.nodes))
	present := 0
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		present++
		indegree[n.id] = len(n.deps)
	}

	var ready []int
	for _, n := range g.nodes {
		if n != nil && indegree[n.id] == 0 {
			ready = append(ready, n.id)
		}
	}

	order := make([]int, 0, present)
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, d := range g.nodes[id].dependents {
			indegree[d]--
			if indegree[d] == 0 {
				ready = insertSorted(ready, d)
			}
		}
	}
	return order, len(order) == present
}
