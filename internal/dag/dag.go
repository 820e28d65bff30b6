// Package dag provides the directed acyclic graph over build targets.
// It rejects cycles at edge-insertion time, so closure computation never
// starts on a graph where a target transitively depends on itself, and
// produces a deterministic topological order for reporting.
package dag

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycle is returned when an edge would create a dependency cycle.
var ErrCycle = errors.New("cycle detected")

// ErrNodeNotFound is returned when an operation references a non-existent node.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when adding a node that already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrSelfEdge is returned when an edge would create a self-loop. A target
// depending on itself is the smallest cycle, so it wraps ErrCycle and
// matches errors.Is checks for either.
var ErrSelfEdge = fmt.Errorf("%w: self-referencing edge", ErrCycle)

// Node represents one build target in the graph.
type Node struct {
	ID   string // canonical target label
	Kind string // py_library, py_binary, py_test

	// order is the insertion index, used as the deterministic tiebreaker:
	// targets sort in declaration order, not alphabetically.
	order int
}

// DAG represents a directed acyclic graph of build targets.
// Edges point from a target to its dependencies: if A depends on B,
// there is an edge from A to B.
type DAG struct {
	nodes map[string]*Node
	// adjacency maps nodeID → set of dependency IDs (forward edges).
	adjacency map[string]map[string]bool
	// reverse maps nodeID → set of dependent IDs (backward edges).
	reverse map[string]map[string]bool
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		nodes:     make(map[string]*Node),
		adjacency: make(map[string]map[string]bool),
		reverse:   make(map[string]map[string]bool),
	}
}

// AddNode adds a target node. Returns ErrDuplicateNode if a node with that
// ID already exists.
func (d *DAG) AddNode(id, kind string) error {
	if _, exists := d.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	d.nodes[id] = &Node{ID: id, Kind: kind, order: len(d.nodes)}
	d.adjacency[id] = make(map[string]bool)
	d.reverse[id] = make(map[string]bool)
	return nil
}

// AddEdge adds a dependency edge: from depends on to. Both nodes must
// already exist. Returns an error if either node is missing, the edge
// would create a self-loop, or the edge would introduce a cycle.
func (d *DAG) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	if _, ok := d.nodes[from]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if _, ok := d.nodes[to]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	// Skip if edge already exists.
	if d.adjacency[from][to] {
		return nil
	}
	// Adding from→to closes a cycle exactly when 'from' is already
	// reachable from 'to'.
	if d.hasPath(to, from) {
		return fmt.Errorf("%w: edge %s -> %s would create a cycle", ErrCycle, from, to)
	}
	d.adjacency[from][to] = true
	d.reverse[to][from] = true
	return nil
}

// Node returns the node with the given ID, or nil if not found.
func (d *DAG) Node(id string) *Node {
	return d.nodes[id]
}

// Nodes returns all node IDs in declaration order.
func (d *DAG) Nodes() []string {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	return d.declarationSorted(ids)
}

// Len returns the number of nodes in the DAG.
func (d *DAG) Len() int {
	return len(d.nodes)
}

// TopologicalSort returns node IDs in a valid topological order
// (dependencies come before dependents). Among simultaneously free nodes,
// earlier-declared targets appear first, so the order is stable across
// runs. Returns ErrCycle if the graph contains a cycle, although AddEdge
// already refuses cycle-closing edges.
func (d *DAG) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		inDegree[id] = len(d.adjacency[id])
	}

	queue := d.declarationSorted(d.zeroDegreeNodes(inDegree))

	sorted := make([]string, 0, len(d.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		// Collect newly freed dependents.
		var freed []string
		for dependent := range d.reverse[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		if len(freed) > 0 {
			queue = append(queue, d.declarationSorted(freed)...)
		}
	}

	if len(sorted) != len(d.nodes) {
		return nil, fmt.Errorf("%w: not all nodes could be ordered (%d of %d)",
			ErrCycle, len(sorted), len(d.nodes))
	}
	return sorted, nil
}

// Dependencies returns the direct dependency IDs of a node, in declaration
// order. Returns nil if the node does not exist.
func (d *DAG) Dependencies(id string) []string {
	deps, ok := d.adjacency[id]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(deps))
	for dep := range deps {
		ids = append(ids, dep)
	}
	return d.declarationSorted(ids)
}

// Ancestors returns all transitive dependencies of the given node
// (i.e., everything it transitively depends on), in declaration order.
// Returns nil if the node has no dependencies or does not exist.
func (d *DAG) Ancestors(id string) []string {
	if _, ok := d.nodes[id]; !ok {
		return nil
	}
	visited := make(map[string]bool)
	d.collectAncestors(id, visited)
	result := make([]string, 0, len(visited))
	for v := range visited {
		result = append(result, v)
	}
	return d.declarationSorted(result)
}

// Descendants returns all transitive dependents of the given node
// (i.e., everything that transitively depends on it), in declaration order.
// Returns nil if the node has no dependents or does not exist.
func (d *DAG) Descendants(id string) []string {
	if _, ok := d.nodes[id]; !ok {
		return nil
	}
	visited := make(map[string]bool)
	d.collectDescendants(id, visited)
	result := make([]string, 0, len(visited))
	for v := range visited {
		result = append(result, v)
	}
	return d.declarationSorted(result)
}

// hasPath reports whether there is a directed path from src to dst
// through the dependency graph (forward edges).
func (d *DAG) hasPath(src, dst string) bool {
	if src == dst {
		return false
	}
	visited := make(map[string]bool)
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range d.adjacency[cur] {
			if dep == dst {
				return true
			}
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

// collectAncestors walks forward edges from id, collecting all reachable
// nodes (transitive dependencies).
func (d *DAG) collectAncestors(id string, visited map[string]bool) {
	for dep := range d.adjacency[id] {
		if !visited[dep] {
			visited[dep] = true
			d.collectAncestors(dep, visited)
		}
	}
}

// collectDescendants walks reverse edges from id, collecting all reachable
// nodes (transitive dependents).
func (d *DAG) collectDescendants(id string, visited map[string]bool) {
	for dep := range d.reverse[id] {
		if !visited[dep] {
			visited[dep] = true
			d.collectDescendants(dep, visited)
		}
	}
}

// zeroDegreeNodes returns IDs from the in-degree map that have zero value.
func (d *DAG) zeroDegreeNodes(inDegree map[string]int) []string {
	var result []string
	for id, deg := range inDegree {
		if deg == 0 {
			result = append(result, id)
		}
	}
	return result
}

// declarationSorted returns ids sorted by insertion order.
func (d *DAG) declarationSorted(ids []string) []string {
	sort.Slice(ids, func(i, j int) bool {
		return d.nodes[ids[i]].order < d.nodes[ids[j]].order
	})
	return ids
}
