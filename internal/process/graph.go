package process

import (
	"errors"

	"github.com/dominikbraun/graph"
	"github.com/roach88/procfg/internal/ir"
)

// dependencies builds the containment graph of the process: one vertex per
// declared name and placeholder, and an edge from every sequence or path to
// each entry it lists directly. The graph refuses cycles, so the first
// container that would reach itself is reported as a CycleError.
func (p *Process) dependencies() (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	addVertex := func(name string) error {
		err := g.AddVertex(name)
		if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return err
		}
		return nil
	}
	for _, name := range p.Units() {
		if err := addVertex(name); err != nil {
			return nil, err
		}
	}
	containers := make([]string, 0, len(p.sequences)+len(p.paths))
	containers = append(containers, p.Sequences()...)
	containers = append(containers, p.allPaths()...)
	for _, name := range containers {
		if err := addVertex(name); err != nil {
			return nil, err
		}
	}
	for _, name := range containers {
		entries, _ := p.entries(name)
		for _, e := range *entries {
			if err := addVertex(e.Name); err != nil {
				return nil, err
			}
			if err := addContainment(g, name, e); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func addContainment(g graph.Graph[string, string], container string, e ir.EntrySpec) error {
	if container == e.Name {
		return NewCycleError(container, e.Name)
	}
	err := g.AddEdge(container, e.Name, graph.EdgeAttribute("kind", string(e.Kind)))
	switch {
	case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return NewCycleError(container, e.Name)
	default:
		return err
	}
}
