package process

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/procfg/internal/ir"
)

// Customization is a late-stage transform of an assembled process. It may
// mutate p and return it, or return a new process built with Clone.
type Customization func(p *Process) (*Process, error)

// Hook is a named Customization.
type Hook struct {
	Name  string
	Apply Customization
}

// Customize applies hooks in order, each receiving the previous result.
// The first failure aborts the chain with a CustomizationError and no
// process is returned; later hooks never run. A panicking hook is reported
// the same way.
func Customize(p *Process, hooks ...Hook) (*Process, error) {
	cur := p
	for _, h := range hooks {
		next, err := applyHook(h, cur)
		if err != nil {
			return nil, NewCustomizationError(h.Name, err)
		}
		if next == nil {
			next = cur
		}
		next.customizations = append(next.customizations, h.Name)
		next.logger.Debug("customization applied", "hook", h.Name)
		cur = next
	}
	return cur, nil
}

func applyHook(h Hook, p *Process) (out *Process, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	if h.Apply == nil {
		return nil, fmt.Errorf("hook has no function")
	}
	return h.Apply(p)
}

// Customizations returns the names of applied hooks in order.
func (p *Process) Customizations() []string { return slices.Clone(p.customizations) }

// Clone returns a deep copy that shares nothing mutable with p. The clone
// gets its own clock resuming where p's stopped.
func (p *Process) Clone() *Process {
	out := &Process{
		name:           p.name,
		maxEvents:      p.maxEvents,
		globalTag:      p.globalTag,
		clock:          NewClockAt(p.clock.Current()),
		loader:         p.loader,
		logger:         p.logger,
		units:          make(map[string]*ir.UnitSpec, len(p.units)),
		sequences:      make(map[string]*ir.SequenceSpec, len(p.sequences)),
		paths:          make(map[string]*ir.PathSpec, len(p.paths)),
		schedule:       slices.Clone(p.schedule),
		hasSchedule:    p.hasSchedule,
		loaded:         maps.Clone(p.loaded),
		bundles:        slices.Clone(p.bundles),
		pending:        slices.Clone(p.pending),
		customizations: slices.Clone(p.customizations),
	}
	for name, u := range p.units {
		cp := *u
		cp.Params = u.Params.Clone()
		out.units[name] = &cp
	}
	for name, s := range p.sequences {
		cp := *s
		cp.Entries = slices.Clone(s.Entries)
		out.sequences[name] = &cp
	}
	for name, pa := range p.paths {
		cp := *pa
		cp.Entries = slices.Clone(pa.Entries)
		out.paths[name] = &cp
	}
	return out
}
