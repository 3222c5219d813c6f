package dag

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Graph is a collection of indexed nodes and directed edges. All operations
// on the graph are concurrency-safe.
type Graph struct {
	// mutex protects nodes during concurrent access.
	mutex sync.RWMutex
	// nodes is indexed by node id. A nil entry is a node excluded from a
	// subgraph; it keeps its index but has no edges.
	nodes []*node
}

// node represents a single vertex. Edge lists are kept sorted so iteration
// order follows declaration order.
type node struct {
	// id is the index of the node.
	id int
	// deps holds the nodes this node depends on (predecessors).
	deps []int
	// dependents holds the nodes that depend on this node (successors).
	dependents []int
}

// CycleError reports a cycle. Nodes lists the cycle in edge order, starting
// from the lowest index on it.
type CycleError struct {
	Nodes []int
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Nodes))
	for i, n := range e.Nodes {
		parts[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("cycle detected involving nodes [%s]", strings.Join(parts, " -> "))
}
