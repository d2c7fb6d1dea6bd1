package process

import (
	"fmt"
	"slices"

	"github.com/roach88/procfg/internal/ir"
)

// FinalizeOptions controls Finalize.
type FinalizeOptions struct {
	// Strict turns schedule ordering warnings into ScheduleOrderErrors.
	Strict bool
}

// Finalize resolves placeholders, validates the assembled graph and returns
// the snapshot handed to the engine. The process is left unchanged.
//
// Checks, in order:
//   - every placeholder still referenced names a registered unit or sequence
//   - no sequence contains itself
//   - no output module is reachable from a main path
//   - end paths are not scheduled before main paths (warning unless strict)
func (p *Process) Finalize(opts FinalizeOptions) (*ir.ProcessSnapshot, error) {
	if !ir.ValidName(p.name) {
		return nil, newInvalidError(p.name, "invalid process name %q", p.name)
	}
	kinds, err := p.resolvePlaceholders()
	if err != nil {
		return nil, err
	}
	if _, err := p.dependencies(); err != nil {
		return nil, err
	}

	snap := &ir.ProcessSnapshot{
		Name:           p.name,
		MaxEvents:      p.maxEvents,
		GlobalTag:      p.globalTag,
		Bundles:        p.Bundles(),
		Customizations: p.Customizations(),
		IRVersion:      ir.IRVersion,
		BuilderVersion: ir.BuilderVersion,
	}
	for _, name := range p.Units() {
		u := *p.units[name]
		u.Params = u.Params.Clone()
		snap.Units = append(snap.Units, u)
	}

	seqEntries := make(map[string][]ir.EntrySpec, len(p.sequences))
	for _, name := range p.Sequences() {
		s := p.sequences[name]
		entries := withResolvedKinds(s.Entries, kinds)
		seqEntries[name] = entries
		snap.Sequences = append(snap.Sequences, ir.SequenceSpec{Name: name, Entries: entries, Seq: s.Seq})
	}

	for _, name := range p.allPaths() {
		pa := p.paths[name]
		entries := withResolvedKinds(pa.Entries, kinds)
		modules := flatten(entries, seqEntries, nil)
		if !pa.End {
			for _, m := range modules {
				if p.units[m].Kind == ir.UnitOutput {
					return nil, &ConfigError{
						Code:    ErrCodePlacement,
						Message: fmt.Sprintf("output module %q is in main path %q; output modules belong in end paths", m, name),
						Name:    name,
						Names:   []string{name, m},
					}
				}
			}
		}
		snap.Paths = append(snap.Paths, ir.PathSpec{
			Name:    name,
			End:     pa.End,
			Entries: entries,
			Modules: modules,
			Seq:     pa.Seq,
		})
	}

	snap.Schedule = p.Schedule()
	plan, warnings := p.plan(snap.Schedule)
	if len(warnings) > 0 && opts.Strict {
		return nil, &ConfigError{
			Code:    ErrCodeScheduleOrder,
			Message: warnings[0],
			Names:   snap.Schedule,
		}
	}
	for _, w := range warnings {
		p.logger.Warn(w, "process", p.name)
	}
	snap.Plan = plan
	snap.Warnings = warnings

	hash, err := ir.ProcessHash(snap)
	if err != nil {
		return nil, fmt.Errorf("finalize %s: %w", p.name, err)
	}
	snap.Hash = hash
	return snap, nil
}

// resolvePlaceholders maps every placeholder still referenced by some entry
// to the kind of what it names, failing with every unresolved name at once.
func (p *Process) resolvePlaceholders() (map[string]ir.RefKind, error) {
	referenced := make(map[string]bool)
	for _, name := range append(p.Sequences(), p.allPaths()...) {
		entries, _ := p.entries(name)
		for _, e := range *entries {
			if e.Kind == ir.RefPlaceholder {
				referenced[e.Name] = true
			}
		}
	}
	kinds := make(map[string]ir.RefKind, len(referenced))
	var unresolved []string
	for _, name := range p.pending {
		if !referenced[name] {
			continue
		}
		switch p.lookup(name) {
		case "unit":
			if u := p.units[name]; !u.Kind.Schedulable() {
				return nil, newInvalidError(name, "placeholder %q names unit of kind %s", name, u.Kind)
			}
			kinds[name] = ir.RefUnit
		case "sequence":
			kinds[name] = ir.RefSequence
		default:
			unresolved = append(unresolved, name)
		}
	}
	if len(unresolved) > 0 {
		return nil, NewUnresolvedPlaceholderError(unresolved)
	}
	return kinds, nil
}

func withResolvedKinds(entries []ir.EntrySpec, kinds map[string]ir.RefKind) []ir.EntrySpec {
	out := slices.Clone(entries)
	for i, e := range out {
		if e.Kind == ir.RefPlaceholder {
			out[i].Kind = kinds[e.Name]
		}
	}
	return out
}

// flatten expands nested sequences into the unit list in execution order.
// Repeated units are kept. The graph is known to be acyclic here.
func flatten(entries []ir.EntrySpec, seqs map[string][]ir.EntrySpec, out []string) []string {
	if out == nil {
		out = []string{}
	}
	for _, e := range entries {
		if e.Kind == ir.RefSequence {
			out = flatten(seqs[e.Name], seqs, out)
			continue
		}
		out = append(out, e.Name)
	}
	return out
}

// plan orders the schedule so main paths run before end paths, keeping the
// relative order within each group, and describes every end path that was
// listed ahead of a main path.
func (p *Process) plan(schedule []string) ([]string, []string) {
	mains := []string{}
	var ends, warnings []string
	for i, name := range schedule {
		if !p.IsEndPath(name) {
			mains = append(mains, name)
			continue
		}
		ends = append(ends, name)
		for _, later := range schedule[i+1:] {
			if !p.IsEndPath(later) {
				warnings = append(warnings, fmt.Sprintf("end path %q is scheduled before main path %q; main paths run first", name, later))
				break
			}
		}
	}
	return append(mains, ends...), warnings
}
