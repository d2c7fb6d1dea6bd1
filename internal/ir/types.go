package ir

// UnitKind tags what role a processing unit plays for the engine.
type UnitKind string

const (
	UnitSource    UnitKind = "source"
	UnitProducer  UnitKind = "producer"
	UnitFilter    UnitKind = "filter"
	UnitAnalyzer  UnitKind = "analyzer"
	UnitOutput    UnitKind = "output"
	UnitService   UnitKind = "service"
	UnitESSource  UnitKind = "es_source"
	UnitESProduce UnitKind = "es_producer"
	UnitPSet      UnitKind = "pset"
)

// ValidUnitKinds lists the accepted kinds.
var ValidUnitKinds = map[UnitKind]bool{
	UnitSource:    true,
	UnitProducer:  true,
	UnitFilter:    true,
	UnitAnalyzer:  true,
	UnitOutput:    true,
	UnitService:   true,
	UnitESSource:  true,
	UnitESProduce: true,
	UnitPSet:      true,
}

// Schedulable reports whether units of this kind may appear in sequences.
func (k UnitKind) Schedulable() bool {
	switch k {
	case UnitProducer, UnitFilter, UnitAnalyzer, UnitOutput:
		return true
	}
	return false
}

// Op joins a sequence entry to the entry before it.
type Op string

const (
	// OpSequential runs the entry after the previous one ("*").
	OpSequential Op = "*"
	// OpAlongside runs the entry independently of the previous one ("+").
	OpAlongside Op = "+"
)

// RefKind says what a sequence entry points at.
type RefKind string

const (
	RefUnit        RefKind = "unit"
	RefSequence    RefKind = "sequence"
	RefPlaceholder RefKind = "placeholder"
)

// EntrySpec is one element of a sequence. Op is empty on the first entry.
type EntrySpec struct {
	Op   Op      `json:"op,omitempty"`
	Kind RefKind `json:"kind"`
	Name string  `json:"name"`
}

// UnitSpec is a registered processing unit.
type UnitSpec struct {
	Name   string        `json:"name"`
	Kind   UnitKind      `json:"kind"`
	Type   string        `json:"type,omitempty"`
	Params *ParameterSet `json:"params"`
	Seq    int64         `json:"seq"` // declaration order
}

// SequenceSpec is a named sequence.
type SequenceSpec struct {
	Name    string      `json:"name"`
	Entries []EntrySpec `json:"entries"`
	Seq     int64       `json:"seq"`
}

// PathSpec is a schedulable path. Modules is the flattened unit list in
// execution order.
type PathSpec struct {
	Name    string      `json:"name"`
	End     bool        `json:"end,omitempty"`
	Entries []EntrySpec `json:"entries"`
	Modules []string    `json:"modules"`
	Seq     int64       `json:"seq"`
}

// ProcessSnapshot is the finalized configuration handed to the engine.
type ProcessSnapshot struct {
	Name           string         `json:"name"`
	MaxEvents      int64          `json:"max_events"`
	GlobalTag      string         `json:"global_tag,omitempty"`
	Bundles        []string       `json:"bundles"`
	Units          []UnitSpec     `json:"units"`
	Sequences      []SequenceSpec `json:"sequences"`
	Paths          []PathSpec     `json:"paths"`
	Schedule       []string       `json:"schedule"`
	Plan           []string       `json:"plan"` // paths in execution order
	Customizations []string       `json:"customizations"`
	Warnings       []string       `json:"warnings,omitempty"`
	Hash           string         `json:"hash"`
	IRVersion      string         `json:"ir_version"`
	BuilderVersion string         `json:"builder_version"`
}

// Unit returns the unit named name.
func (s *ProcessSnapshot) Unit(name string) (UnitSpec, bool) {
	for _, u := range s.Units {
		if u.Name == name {
			return u, true
		}
	}
	return UnitSpec{}, false
}

// Path returns the path named name.
func (s *ProcessSnapshot) Path(name string) (PathSpec, bool) {
	for _, p := range s.Paths {
		if p.Name == name {
			return p, true
		}
	}
	return PathSpec{}, false
}

func entriesCanonical(entries []EntrySpec) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		m := map[string]any{"kind": string(e.Kind), "name": e.Name}
		if e.Op != "" {
			m["op"] = string(e.Op)
		}
		out[i] = m
	}
	return out
}

func unitCanonical(u UnitSpec) map[string]any {
	params := u.Params
	if params == nil {
		params = NewParameterSet()
	}
	return map[string]any{
		"name":   u.Name,
		"kind":   string(u.Kind),
		"type":   u.Type,
		"params": params,
	}
}

// canonicalMap is the hashed view of a snapshot. Declaration stamps,
// warnings and provenance fields are left out: two configurations that
// hand the engine the same plan hash the same.
func (s *ProcessSnapshot) canonicalMap() map[string]any {
	units := make([]any, len(s.Units))
	for i, u := range s.Units {
		units[i] = unitCanonical(u)
	}
	seqs := make([]any, len(s.Sequences))
	for i, q := range s.Sequences {
		seqs[i] = map[string]any{"name": q.Name, "entries": entriesCanonical(q.Entries)}
	}
	paths := make([]any, len(s.Paths))
	for i, p := range s.Paths {
		paths[i] = map[string]any{
			"name":    p.Name,
			"end":     p.End,
			"entries": entriesCanonical(p.Entries),
			"modules": p.Modules,
		}
	}
	return map[string]any{
		"name":       s.Name,
		"max_events": s.MaxEvents,
		"global_tag": s.GlobalTag,
		"units":      units,
		"sequences":  seqs,
		"paths":      paths,
		"schedule":   s.Schedule,
		"plan":       s.Plan,
	}
}
