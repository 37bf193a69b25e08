package engine

import (
	"fmt"
	"sort"

	"github.com/reeveops/reeve/internal/config"
	reeveerrors "github.com/reeveops/reeve/pkg/errors"
)

// Node represents a vertex in the execution DAG.
type Node struct {
	ID         string
	Op         *config.Operation
	Requires   []*Node
	Dependents []*Node
}

// Graph encapsulates the DAG structure and topological levels.
type Graph struct {
	Nodes  map[string]*Node
	Levels [][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// AddNode inserts an operation as a vertex in the graph.
func (g *Graph) AddNode(op *config.Operation) (*Node, error) {
	if op == nil {
		return nil, reeveerrors.NewValidationError("operations", "operation cannot be nil", nil)
	}

	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}

	if _, exists := g.Nodes[op.ID]; exists {
		return nil, reeveerrors.NewValidationError("operations", fmt.Sprintf("duplicate operation id %q", op.ID), nil)
	}

	node := &Node{ID: op.ID, Op: op}
	g.Nodes[op.ID] = node
	return node, nil
}

// AddEdge records that `to` cannot run before `from`.
func (g *Graph) AddEdge(from, to string) error {
	source, ok := g.Nodes[from]
	if !ok {
		return reeveerrors.NewValidationError("operations", fmt.Sprintf("unknown dependency %q", from), nil)
	}

	target, ok := g.Nodes[to]
	if !ok {
		return reeveerrors.NewValidationError("operations", fmt.Sprintf("unknown dependency target %q", to), nil)
	}

	source.Dependents = append(source.Dependents, target)
	target.Requires = append(target.Requires, source)
	return nil
}

// TopologicalSort computes the DAG levels using Kahn's algorithm.
func (g *Graph) TopologicalSort() error {
	indegree := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		indegree[id] = 0
	}

	for _, node := range g.Nodes {
		for _, dep := range node.Dependents {
			indegree[dep.ID]++
		}
	}

	var queue []string
	for id, degree := range indegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	processed := 0
	var levels [][]string

	for len(queue) > 0 {
		currentLevel := queue
		sort.Strings(currentLevel)
		levels = append(levels, append([]string(nil), currentLevel...))

		var nextLevel []string
		for _, id := range currentLevel {
			processed++
			node := g.Nodes[id]
			for _, dependent := range node.Dependents {
				indegree[dependent.ID]--
				if indegree[dependent.ID] == 0 {
					nextLevel = append(nextLevel, dependent.ID)
				}
			}
		}

		sort.Strings(nextLevel)
		queue = nextLevel
	}

	if processed != len(g.Nodes) {
		return reeveerrors.NewValidationError("operations", "cycle detected while sorting graph", nil)
	}

	g.Levels = levels
	return nil
}

// BuildDAG constructs the execution graph from the plan's operations.
// Disabled operations are left out entirely, along with their edges.
func BuildDAG(ops []config.Operation) (*Graph, error) {
	graph := NewGraph()
	opMap := make(map[string]*config.Operation, len(ops))

	for i := range ops {
		op := &ops[i]
		if !op.Enabled {
			continue
		}
		if _, err := graph.AddNode(op); err != nil {
			return nil, err
		}
		opMap[op.ID] = op
	}

	for _, op := range ops {
		if !op.Enabled {
			continue
		}
		for _, dep := range op.Requires {
			if _, ok := opMap[dep]; !ok {
				return nil, reeveerrors.NewValidationError("operations", fmt.Sprintf("operation %q requires unknown operation %q", op.ID, dep), nil)
			}
			if err := graph.AddEdge(dep, op.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := graph.TopologicalSort(); err != nil {
		return nil, err
	}

	return graph, nil
}
