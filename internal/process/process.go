package process

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/procfg/internal/ir"
)

// BundleLoader applies a named bundle of registrations to a Process.
// Implementations call back into p (Register, Patch, Sequence, Load, ...).
type BundleLoader interface {
	LoadBundle(p *Process, name string) error
}

// BundleNamer is implemented by loaders that accept several spellings of
// one bundle, such as dotted import paths. Load uses the canonical name for
// its already-loaded bookkeeping.
type BundleNamer interface {
	BundleName(name string) string
}

// UnitRef names a registered unit.
type UnitRef struct {
	Name string
	Kind ir.UnitKind
}

// Entry references the unit in a sequence.
func (r UnitRef) Entry() Entry { return Ref(r.Name) }

// Process is the top-level container of one configuration.
type Process struct {
	name      string
	maxEvents int64
	globalTag string

	clock  Clock
	loader BundleLoader
	logger *slog.Logger

	units     map[string]*ir.UnitSpec
	sequences map[string]*ir.SequenceSpec
	paths     map[string]*ir.PathSpec

	schedule    []string
	hasSchedule bool

	loaded  map[string]bool
	bundles []string

	// pending holds placeholder names in first-seen order.
	pending []string

	customizations []string
}

// Option configures a Process.
type Option func(*Process)

// WithClock sets the declaration clock.
func WithClock(c Clock) Option {
	return func(p *Process) { p.clock = c }
}

// WithLoader sets the collaborator used by Load.
func WithLoader(l BundleLoader) Option {
	return func(p *Process) { p.loader = l }
}

// WithLogger sets the logger for debug and warning output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Process) { p.logger = l }
}

// New creates an empty process. maxEvents defaults to -1 (all input).
func New(name string, opts ...Option) *Process {
	p := &Process{
		name:      name,
		maxEvents: -1,
		clock:     NewClock(),
		logger:    slog.Default(),
		units:     make(map[string]*ir.UnitSpec),
		sequences: make(map[string]*ir.SequenceSpec),
		paths:     make(map[string]*ir.PathSpec),
		loaded:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the process name.
func (p *Process) Name() string { return p.name }

// SetMaxEvents limits the number of events the engine processes.
func (p *Process) SetMaxEvents(n int64) { p.maxEvents = n }

// MaxEvents returns the event limit, -1 meaning unlimited.
func (p *Process) MaxEvents() int64 { return p.maxEvents }

// SetGlobalTag records the resolved conditions tag.
func (p *Process) SetGlobalTag(tag string) { p.globalTag = tag }

// GlobalTag returns the resolved conditions tag.
func (p *Process) GlobalTag() string { return p.globalTag }

// lookup reports what name is declared as, or "" if it is free.
// Units, sequences and paths share one namespace.
func (p *Process) lookup(name string) string {
	if _, ok := p.units[name]; ok {
		return "unit"
	}
	if _, ok := p.sequences[name]; ok {
		return "sequence"
	}
	if _, ok := p.paths[name]; ok {
		return "path"
	}
	return ""
}

func (p *Process) claim(name string) error {
	if !ir.ValidName(name) {
		return newInvalidError(name, "invalid name %q", name)
	}
	if what := p.lookup(name); what != "" {
		return NewDuplicateNameError(name, what)
	}
	return nil
}

// Has reports whether name is declared as a unit, sequence or path.
func (p *Process) Has(name string) bool { return p.lookup(name) != "" }

// Register adds a processing unit. params is copied; nil means empty.
func (p *Process) Register(name string, kind ir.UnitKind, typ string, params *ir.ParameterSet) (UnitRef, error) {
	if err := p.claim(name); err != nil {
		return UnitRef{}, err
	}
	if !ir.ValidUnitKinds[kind] {
		return UnitRef{}, newInvalidError(name, "unit %q has unknown kind %q", name, kind)
	}
	if typ == "" && kind != ir.UnitPSet {
		return UnitRef{}, newInvalidError(name, "unit %q of kind %s needs a type", name, kind)
	}
	if kind == ir.UnitSource {
		for _, u := range p.units {
			if u.Kind == ir.UnitSource {
				return UnitRef{}, newInvalidError(name, "process already has source %q", u.Name)
			}
		}
	}
	p.units[name] = &ir.UnitSpec{
		Name:   name,
		Kind:   kind,
		Type:   typ,
		Params: params.Clone(),
		Seq:    p.clock.Next(),
	}
	return UnitRef{Name: name, Kind: kind}, nil
}

// Unit returns a copy of the named unit.
func (p *Process) Unit(name string) (ir.UnitSpec, bool) {
	u, ok := p.units[name]
	if !ok {
		return ir.UnitSpec{}, false
	}
	out := *u
	out.Params = u.Params.Clone()
	return out, true
}

// Units returns unit names in declaration order.
func (p *Process) Units() []string {
	return namesBySeq(p.units, func(u *ir.UnitSpec) int64 { return u.Seq })
}

// Load applies the named bundle through the configured BundleLoader.
// Loading a bundle that is already loaded is a no-op.
func (p *Process) Load(bundle string) error {
	if n, ok := p.loader.(BundleNamer); ok {
		bundle = n.BundleName(bundle)
	}
	if p.loaded[bundle] {
		p.logger.Debug("bundle already loaded", "bundle", bundle)
		return nil
	}
	if p.loader == nil {
		return NewNotFoundError(bundle, "bundles (no loader configured)")
	}
	// Marked first so bundles that include each other terminate.
	p.loaded[bundle] = true
	if err := p.loader.LoadBundle(p, bundle); err != nil {
		return fmt.Errorf("load %s: %w", bundle, err)
	}
	p.bundles = append(p.bundles, bundle)
	p.logger.Debug("bundle loaded", "bundle", bundle)
	return nil
}

// Bundles returns loaded bundle names in load-completion order.
func (p *Process) Bundles() []string { return slices.Clone(p.bundles) }

func (p *Process) unit(name string) (*ir.UnitSpec, error) {
	u, ok := p.units[name]
	if !ok {
		return nil, NewNotFoundError(name, "units")
	}
	return u, nil
}

// Patch merges overrides into the unit's parameters. Last write wins per
// field and nested parameter sets merge recursively.
func (p *Process) Patch(name string, overrides *ir.ParameterSet) error {
	u, err := p.unit(name)
	if err != nil {
		return err
	}
	if u.Params == nil {
		u.Params = ir.NewParameterSet()
	}
	u.Params.Merge(overrides)
	p.logger.Debug("unit patched", "unit", name, "fields", overrides.Names())
	return nil
}

// Set assigns one dotted field of a unit, creating intermediate sets.
func (p *Process) Set(name, field string, v ir.Value) error {
	u, err := p.unit(name)
	if err != nil {
		return err
	}
	if u.Params == nil {
		u.Params = ir.NewParameterSet()
	}
	if err := u.Params.SetPath(field, v); err != nil {
		return newTypeMismatchError(name, field, err)
	}
	return nil
}

// Append extends a list field of a unit. A missing field becomes a new list.
func (p *Process) Append(name, field string, vals ...ir.Value) error {
	u, err := p.unit(name)
	if err != nil {
		return err
	}
	if u.Params == nil {
		u.Params = ir.NewParameterSet()
	}
	var cur ir.List
	if v, ok := u.Params.Lookup(field); ok {
		l, isList := v.(ir.List)
		if !isList {
			return newTypeMismatchError(name, field, fmt.Errorf("append to %s: %w", v.Kind(), ir.ErrTypeMismatch))
		}
		cur = l
	}
	next, err := cur.Append(vals...)
	if err != nil {
		return newTypeMismatchError(name, field, err)
	}
	if err := u.Params.SetPath(field, next); err != nil {
		return newTypeMismatchError(name, field, err)
	}
	return nil
}

// Copy embeds a deep copy of a value taken from a pset unit. from is either
// a unit name, copying its whole parameter set, or "unit.dotted.field".
func (p *Process) Copy(name, field, from string) error {
	u, err := p.unit(name)
	if err != nil {
		return err
	}
	srcName, srcPath, _ := strings.Cut(from, ".")
	src, err := p.unit(srcName)
	if err != nil {
		return err
	}
	var v ir.Value = src.Params.Clone()
	if srcPath != "" {
		found, ok := src.Params.Lookup(srcPath)
		if !ok {
			return NewNotFoundError(srcPath, fmt.Sprintf("unit %q parameters", srcName))
		}
		v = ir.CloneValue(found)
	}
	if u.Params == nil {
		u.Params = ir.NewParameterSet()
	}
	if err := u.Params.SetPath(field, v); err != nil {
		return newTypeMismatchError(name, field, err)
	}
	return nil
}

// namesBySeq returns map keys ordered by declaration stamp.
func namesBySeq[T any](m map[string]T, seq func(T) int64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		sa, sb := seq(m[a]), seq(m[b])
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	})
	return names
}
