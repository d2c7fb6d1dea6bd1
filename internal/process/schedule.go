package process

import (
	"fmt"
	"slices"

	"github.com/roach88/procfg/internal/ir"
)

// PathRef names a declared path.
type PathRef struct {
	Name string
	End  bool
}

// Path declares an independently schedulable root sequence.
func (p *Process) Path(name string, entries ...Entry) (PathRef, error) {
	return p.declarePath(name, false, entries)
}

// EndPath declares a path that runs after every main path.
func (p *Process) EndPath(name string, entries ...Entry) (PathRef, error) {
	return p.declarePath(name, true, entries)
}

func (p *Process) declarePath(name string, end bool, entries []Entry) (PathRef, error) {
	if err := p.claim(name); err != nil {
		return PathRef{}, err
	}
	resolved, err := p.resolve(entries)
	if err != nil {
		return PathRef{}, fmt.Errorf("path %s: %w", name, err)
	}
	p.paths[name] = &ir.PathSpec{Name: name, End: end, Entries: resolved, Seq: p.clock.Next()}
	return PathRef{Name: name, End: end}, nil
}

// Paths returns main path names in declaration order.
func (p *Process) Paths() []string {
	return p.pathsWhere(func(pa *ir.PathSpec) bool { return !pa.End })
}

// EndPaths returns end path names in declaration order.
func (p *Process) EndPaths() []string {
	return p.pathsWhere(func(pa *ir.PathSpec) bool { return pa.End })
}

func (p *Process) allPaths() []string {
	return p.pathsWhere(func(*ir.PathSpec) bool { return true })
}

func (p *Process) pathsWhere(keep func(*ir.PathSpec) bool) []string {
	names := namesBySeq(p.paths, func(pa *ir.PathSpec) int64 { return pa.Seq })
	return slices.DeleteFunc(names, func(n string) bool { return !keep(p.paths[n]) })
}

// PathSet returns the main path names as an unordered set. Callers that
// need an order must use Paths.
func (p *Process) PathSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.paths))
	for name, pa := range p.paths {
		if !pa.End {
			set[name] = struct{}{}
		}
	}
	return set
}

// IsEndPath reports whether name is a declared end path.
func (p *Process) IsEndPath(name string) bool {
	pa, ok := p.paths[name]
	return ok && pa.End
}

// SetSchedule replaces the schedule. Names must be declared paths and may
// not repeat; their order is kept exactly.
func (p *Process) SetSchedule(names ...string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return &ConfigError{
				Code:    ErrCodeDuplicateName,
				Message: fmt.Sprintf("path %q appears twice in the schedule", name),
				Name:    name,
			}
		}
		seen[name] = true
		if _, ok := p.paths[name]; !ok {
			return NewNotFoundError(name, "paths")
		}
	}
	p.schedule = slices.Clone(names)
	p.hasSchedule = true
	return nil
}

// Schedule returns the explicit schedule. Without one, every main path in
// declaration order followed by every end path is scheduled.
func (p *Process) Schedule() []string {
	if p.hasSchedule {
		return slices.Clone(p.schedule)
	}
	return append(p.Paths(), p.EndPaths()...)
}

// GatePaths prefixes every main path with gate. End paths are untouched.
// Each rewrite only touches its own path, so the set is walked in whatever
// order the map yields.
func (p *Process) GatePaths(gate Entry) error {
	if _, err := p.resolveEntry(Entry{Name: gate.Name, Placeholder: gate.Placeholder}); err != nil {
		return fmt.Errorf("gate: %w", err)
	}
	for name := range p.PathSet() {
		if err := p.Prefix(name, gate); err != nil {
			return err
		}
	}
	return nil
}
