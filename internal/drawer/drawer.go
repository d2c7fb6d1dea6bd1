// Package drawer renders the path/sequence/unit structure of a finalized
// process as a Graphviz DOT document.
package drawer

import (
	"io"
	"sort"
	"strconv"
	"text/template"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/roach88/procfg/internal/ir"
)

// Drawer is an interface that defines the methods for drawing a process.
type Drawer interface {
	// AddNode adds a path, sequence or unit to the drawing.
	AddNode(name string, attrs map[string]string) error
	// AddLink adds a containment link from parent to child.
	AddLink(parent, child, label string) error
	// Draw writes the graph to w.
	Draw(w io.Writer) error
}

// DOTDrawer collects nodes in a directed graph and renders them as DOT.
// Output is stable: nodes appear in insertion order and each node's links
// in the order they were added.
type DOTDrawer struct {
	graph graph.Graph[string, string]
	order []string
	links map[string]int
	attrs map[string]string
}

// Option configures a DOTDrawer.
type Option func(*DOTDrawer)

// GraphAttribute sets a top-level graph attribute such as rankdir.
func GraphAttribute(key, value string) Option {
	return func(d *DOTDrawer) {
		d.attrs[key] = value
	}
}

// NewDOTDrawer creates an empty drawer.
func NewDOTDrawer(opts ...Option) *DOTDrawer {
	d := &DOTDrawer{
		graph: graph.New(graph.StringHash, graph.Directed()),
		links: make(map[string]int),
		attrs: map[string]string{"rankdir": "LR"},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddNode adds a vertex. Adding the same name twice keeps the first attributes.
func (d *DOTDrawer) AddNode(name string, attrs map[string]string) error {
	options := make([]func(*graph.VertexProperties), 0, len(attrs))
	for k, v := range attrs {
		options = append(options, graph.VertexAttribute(k, v))
	}
	err := d.graph.AddVertex(name, options...)
	if errors.Is(err, graph.ErrVertexAlreadyExists) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "unable to add vertex %s", name)
	}
	d.order = append(d.order, name)
	return nil
}

// AddLink adds an edge. A repeated link between the same pair is kept once.
func (d *DOTDrawer) AddLink(parent, child, label string) error {
	weight := d.links[parent]
	err := d.graph.AddEdge(parent, child,
		graph.EdgeWeight(weight),
		graph.EdgeAttribute("label", label),
	)
	if errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parent, child)
	}
	d.links[parent] = weight + 1
	return nil
}

// Draw writes the DOT document.
func (d *DOTDrawer) Draw(w io.Writer) error {
	desc, err := d.describe()
	if err != nil {
		return errors.Wrap(err, "unable to generate DOT description")
	}
	tpl, err := template.New("dot").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "unable to parse template")
	}
	if err := tpl.Execute(w, desc); err != nil {
		return errors.Wrap(err, "unable to execute template")
	}
	return nil
}

const dotTemplate = `digraph {
{{- range $k, $v := .Attributes}}
	{{$k}}="{{$v}}";
{{- end}}
{{- range .Statements}}
{{- if .Target}}
	"{{.Source}}" -> "{{.Target}}" [{{range $k, $v := .Attributes}} {{$k}}="{{$v}}"{{end}} ];
{{- else}}
	"{{.Source}}" [{{range $k, $v := .Attributes}} {{$k}}="{{$v}}"{{end}} ];
{{- end}}
{{- end}}
}
`

type description struct {
	Attributes map[string]string
	Statements []statement
}

type statement struct {
	Source     string
	Target     string
	Attributes map[string]string
}

type link struct {
	target string
	weight int
	attrs  map[string]string
}

func (d *DOTDrawer) describe() (description, error) {
	desc := description{Attributes: d.attrs}
	adjacency, err := d.graph.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}
	for _, vertex := range d.order {
		_, props, err := d.graph.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrapf(err, "unable to get vertex %s", vertex)
		}
		desc.Statements = append(desc.Statements, statement{
			Source:     vertex,
			Attributes: props.Attributes,
		})

		links := make([]link, 0, len(adjacency[vertex]))
		for target, edge := range adjacency[vertex] {
			links = append(links, link{target, edge.Properties.Weight, edge.Properties.Attributes})
		}
		sort.Slice(links, func(i, j int) bool { return links[i].weight < links[j].weight })
		for _, l := range links {
			desc.Statements = append(desc.Statements, statement{
				Source:     vertex,
				Target:     l.target,
				Attributes: l.attrs,
			})
		}
	}
	return desc, nil
}

var unitShapes = map[ir.UnitKind]string{
	ir.UnitProducer: "ellipse",
	ir.UnitFilter:   "diamond",
	ir.UnitAnalyzer: "hexagon",
	ir.UnitOutput:   "cylinder",
}

// Process adds every path of the snapshot, in plan order, with the sequences
// and units each path reaches.
func Process(d Drawer, s *ir.ProcessSnapshot) error {
	seqs := make(map[string]ir.SequenceSpec, len(s.Sequences))
	for _, seq := range s.Sequences {
		seqs[seq.Name] = seq
	}

	var addEntries func(parent string, entries []ir.EntrySpec) error
	addEntries = func(parent string, entries []ir.EntrySpec) error {
		for i, e := range entries {
			var attrs map[string]string
			switch e.Kind {
			case ir.RefSequence:
				attrs = map[string]string{"shape": "folder"}
			case ir.RefUnit:
				u, ok := s.Unit(e.Name)
				if !ok {
					return errors.Errorf("unit %s not found", e.Name)
				}
				attrs = map[string]string{"shape": unitShapes[u.Kind], "tooltip": u.Type}
			default:
				attrs = map[string]string{"shape": "plain", "style": "dotted"}
			}
			if err := d.AddNode(e.Name, attrs); err != nil {
				return err
			}
			label := strconv.Itoa(i + 1)
			if e.Op != "" {
				label = string(e.Op) + label
			}
			if err := d.AddLink(parent, e.Name, label); err != nil {
				return err
			}
			if e.Kind == ir.RefSequence {
				seq, ok := seqs[e.Name]
				if !ok {
					return errors.Errorf("sequence %s not found", e.Name)
				}
				if err := addEntries(e.Name, seq.Entries); err != nil {
					return errors.Wrapf(err, "sequence %s", e.Name)
				}
			}
		}
		return nil
	}

	for _, name := range s.Plan {
		path, ok := s.Path(name)
		if !ok {
			return errors.Errorf("path %s not found", name)
		}
		attrs := map[string]string{"shape": "box", "style": "bold"}
		if path.End {
			attrs["style"] = "dashed"
		}
		if err := d.AddNode(name, attrs); err != nil {
			return err
		}
		if err := addEntries(name, path.Entries); err != nil {
			return errors.Wrapf(err, "path %s", name)
		}
	}
	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
