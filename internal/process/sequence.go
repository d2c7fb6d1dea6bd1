package process

import (
	"fmt"
	"slices"

	"github.com/roach88/procfg/internal/ir"
)

// SequenceRef names a declared sequence.
type SequenceRef struct {
	Name string
}

// Entry references the sequence inside another sequence or path.
func (r SequenceRef) Entry() Entry { return Ref(r.Name) }

// Sequence declares a named ordering of units and sequences. Entries join
// sequentially unless marked Alongside. Referenced names must already be
// declared; placeholders are resolved at Finalize.
func (p *Process) Sequence(name string, entries ...Entry) (SequenceRef, error) {
	if err := p.claim(name); err != nil {
		return SequenceRef{}, err
	}
	resolved, err := p.resolve(entries)
	if err != nil {
		return SequenceRef{}, fmt.Errorf("sequence %s: %w", name, err)
	}
	p.sequences[name] = &ir.SequenceSpec{Name: name, Entries: resolved, Seq: p.clock.Next()}
	return SequenceRef{Name: name}, nil
}

// SequenceExpr declares a sequence from its textual form; see ParseExpr.
func (p *Process) SequenceExpr(name, expr string) (SequenceRef, error) {
	entries, err := ParseExpr(expr)
	if err != nil {
		return SequenceRef{}, fmt.Errorf("sequence %s: %w", name, err)
	}
	return p.Sequence(name, entries...)
}

// Sequences returns sequence names in declaration order.
func (p *Process) Sequences() []string {
	return namesBySeq(p.sequences, func(s *ir.SequenceSpec) int64 { return s.Seq })
}

// Entries returns a copy of the direct entries of a sequence or path.
func (p *Process) Entries(name string) ([]ir.EntrySpec, bool) {
	entries, ok := p.entries(name)
	if !ok {
		return nil, false
	}
	return slices.Clone(*entries), true
}

// Pending returns placeholder names in the order they were first used.
func (p *Process) Pending() []string { return slices.Clone(p.pending) }

func (p *Process) entries(name string) (*[]ir.EntrySpec, bool) {
	if s, ok := p.sequences[name]; ok {
		return &s.Entries, true
	}
	if pa, ok := p.paths[name]; ok {
		return &pa.Entries, true
	}
	return nil, false
}

func (p *Process) resolve(entries []Entry) ([]ir.EntrySpec, error) {
	out := make([]ir.EntrySpec, 0, len(entries))
	for i, e := range entries {
		spec, err := p.resolveEntry(e)
		if err != nil {
			return nil, err
		}
		switch {
		case i == 0:
			spec.Op = ""
		case spec.Op == "":
			spec.Op = ir.OpSequential
		}
		out = append(out, spec)
	}
	return out, nil
}

func (p *Process) resolveEntry(e Entry) (ir.EntrySpec, error) {
	if !ir.ValidName(e.Name) {
		return ir.EntrySpec{}, newInvalidError(e.Name, "invalid reference %q", e.Name)
	}
	spec := ir.EntrySpec{Op: e.Op, Name: e.Name}
	if e.Placeholder {
		spec.Kind = ir.RefPlaceholder
		if !slices.Contains(p.pending, e.Name) {
			p.pending = append(p.pending, e.Name)
		}
		return spec, nil
	}
	switch p.lookup(e.Name) {
	case "unit":
		u := p.units[e.Name]
		if !u.Kind.Schedulable() {
			return ir.EntrySpec{}, newInvalidError(e.Name, "unit %q of kind %s cannot be sequenced", e.Name, u.Kind)
		}
		spec.Kind = ir.RefUnit
	case "sequence":
		spec.Kind = ir.RefSequence
	case "path":
		return ir.EntrySpec{}, newInvalidError(e.Name, "path %q cannot be nested", e.Name)
	default:
		return ir.EntrySpec{}, NewNotFoundError(e.Name, "units or sequences")
	}
	return spec, nil
}

// Remove deletes the first direct occurrence of unit from a sequence or
// path, keeping the relative order of the remaining entries.
func (p *Process) Remove(container, unit string) error {
	entries, ok := p.entries(container)
	if !ok {
		return NewNotFoundError(container, "sequences or paths")
	}
	idx := slices.IndexFunc(*entries, func(e ir.EntrySpec) bool { return e.Name == unit })
	if idx < 0 {
		return NewNotFoundError(unit, fmt.Sprintf("sequence %q", container))
	}
	next := slices.Delete(slices.Clone(*entries), idx, idx+1)
	if idx == 0 && len(next) > 0 {
		next[0].Op = ""
	}
	*entries = next
	return nil
}

// Prefix rewrites a sequence or path to run e before its previous contents.
// Applying it twice compounds: Prefix(S, G) twice yields G, G, S.
func (p *Process) Prefix(container string, e Entry) error {
	entries, ok := p.entries(container)
	if !ok {
		return NewNotFoundError(container, "sequences or paths")
	}
	e.Op = ""
	head, err := p.resolveEntry(e)
	if err != nil {
		return fmt.Errorf("prefix %s: %w", container, err)
	}
	if head.Kind != ir.RefUnit {
		g, err := p.dependencies()
		if err != nil {
			return err
		}
		if err := addContainment(g, container, head); err != nil {
			return err
		}
	}
	next := make([]ir.EntrySpec, 0, len(*entries)+1)
	next = append(next, head)
	for i, old := range *entries {
		if i == 0 {
			old.Op = ir.OpSequential
		}
		next = append(next, old)
	}
	*entries = next
	return nil
}
