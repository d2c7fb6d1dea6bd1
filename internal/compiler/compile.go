// Package compiler turns a CUE process file into an assembled Process.
//
// A process file holds one top-level struct:
//
//	process: {
//		name:       "RAW"
//		max_events: 100
//		load: ["Configuration.StandardSequences.Services_cff"]
//		source: type: "EmptySource"
//		units: RAWSIMoutput: {kind: "output", type: "PoolOutputModule", params: {...}}
//		psets: myContent: {outputCommands: ["drop *"]}
//		patches: [{unit: "genstepfilter", set: {triggerConditions: ["generation_step"]}}]
//		seeds: generator: 1
//		sequences: mySeq: "a * b"
//		removes: [{sequence: "pdigi", unit: "simCastorDigis"}]
//		paths: generation_step: "pgen"
//		endpaths: RAWSIMoutput_step: "RAWSIMoutput"
//		schedule: ["generation_step", "RAWSIMoutput_step"]
//		gate:       "generator"
//		global_tag: "auto:upgradePLS3"
//		customize: ["cust_phase2_BE5D"]
//	}
//
// Sections apply in a fixed order regardless of how the file is written:
// load, source, units, psets, patches, seeds, sequences, removes, paths,
// endpaths, schedule, gate, global_tag, customize. Within a section,
// fields apply in file order.
package compiler

import (
	"context"
	"fmt"
	"log/slog"

	"cuelang.org/go/cue"

	"github.com/roach88/procfg/internal/conditions"
	"github.com/roach88/procfg/internal/customs"
	"github.com/roach88/procfg/internal/ir"
	"github.com/roach88/procfg/internal/process"
)

// SeedService is the unit holding per-module random seeds.
const SeedService = "RandomNumberGeneratorService"

var knownSections = map[string]bool{
	"name": true, "max_events": true, "load": true, "source": true,
	"units": true, "psets": true, "patches": true, "seeds": true,
	"sequences": true, "removes": true, "paths": true, "endpaths": true,
	"schedule": true, "gate": true, "global_tag": true, "customize": true,
}

// Compiler assembles processes. The zero value compiles files that use
// no bundles, global tags or customizations.
type Compiler struct {
	Loader     process.BundleLoader
	Customs    *customs.Registry
	Conditions *conditions.Resolver
	Clock      process.Clock
	Logger     *slog.Logger
}

// Compile assembles the process described by v, the value of the
// top-level "process" field, and applies its customizations. The result
// is not finalized.
func (c *Compiler) Compile(ctx context.Context, v cue.Value) (*process.Process, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.Exists() {
		return nil, &CompileError{Field: "process", Message: "process is required"}
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: "process", Message: "process must be a struct", Pos: v.Pos()}
	}
	if err := checkSections(v); err != nil {
		return nil, err
	}

	name, err := stringField(v, "name", "process")
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, &CompileError{Field: "process.name", Message: "name is required", Pos: v.Pos()}
	}

	p := process.New(name, c.options()...)

	steps := []struct {
		section string
		apply   func(*process.Process, cue.Value) error
	}{
		{"max_events", c.maxEvents},
		{"load", c.load},
		{"source", c.source},
		{"units", c.units},
		{"psets", c.psets},
		{"patches", c.patches},
		{"seeds", c.seeds},
		{"sequences", c.sequences},
		{"removes", c.removes},
		{"paths", c.paths(false)},
		{"endpaths", c.paths(true)},
		{"schedule", c.schedule},
		{"gate", c.gate},
		{"global_tag", func(p *process.Process, v cue.Value) error { return c.globalTag(ctx, p, v) }},
	}
	for _, step := range steps {
		sv := v.LookupPath(cue.MakePath(cue.Str(step.section)))
		if !sv.Exists() {
			continue
		}
		if err := step.apply(p, sv); err != nil {
			return nil, err
		}
	}

	cv := v.LookupPath(cue.ParsePath("customize"))
	if !cv.Exists() {
		return p, nil
	}
	return c.customize(p, cv)
}

func (c *Compiler) options() []process.Option {
	var opts []process.Option
	if c.Loader != nil {
		opts = append(opts, process.WithLoader(c.Loader))
	}
	if c.Clock != nil {
		opts = append(opts, process.WithClock(c.Clock))
	}
	if c.Logger != nil {
		opts = append(opts, process.WithLogger(c.Logger))
	}
	return opts
}

func (c *Compiler) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func checkSections(v cue.Value) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if !knownSections[iter.Label()] {
			return &CompileError{
				Field:   "process." + iter.Label(),
				Message: "unknown section",
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

// fields iterates a struct section in file order.
func fields(v cue.Value, section string, fn func(label string, fv cue.Value, field string) error) error {
	if v.IncompleteKind() != cue.StructKind {
		return &CompileError{Field: "process." + section, Message: "must be a struct", Pos: v.Pos()}
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Label()
		if err := fn(label, iter.Value(), "process."+section+"."+label); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) maxEvents(p *process.Process, v cue.Value) error {
	n, err := v.Int64()
	if err != nil {
		return &CompileError{Field: "process.max_events", Message: "must be an integer", Pos: v.Pos()}
	}
	if n < -1 {
		return &CompileError{Field: "process.max_events", Message: "must be -1 (all events) or more", Pos: v.Pos()}
	}
	p.SetMaxEvents(n)
	return nil
}

func (c *Compiler) load(p *process.Process, v cue.Value) error {
	names, err := stringList(v, "process.load")
	if err != nil {
		return err
	}
	for _, n := range names {
		if err := p.Load(n); err != nil {
			return wrap("process.load", v.Pos(), err)
		}
	}
	return nil
}

func (c *Compiler) source(p *process.Process, v cue.Value) error {
	typ, err := stringField(v, "type", "process.source")
	if err != nil {
		return err
	}
	params, err := compilePSet(v.LookupPath(cue.ParsePath("params")), "process.source.params")
	if err != nil {
		return err
	}
	_, err = p.Register("source", ir.UnitSource, typ, params)
	return wrap("process.source", v.Pos(), err)
}

func (c *Compiler) units(p *process.Process, v cue.Value) error {
	return fields(v, "units", func(name string, uv cue.Value, field string) error {
		kind, err := stringField(uv, "kind", field)
		if err != nil {
			return err
		}
		if kind == "" {
			return &CompileError{Field: field + ".kind", Message: "kind is required", Pos: uv.Pos()}
		}
		typ, err := stringField(uv, "type", field)
		if err != nil {
			return err
		}
		params, err := compilePSet(uv.LookupPath(cue.ParsePath("params")), field+".params")
		if err != nil {
			return err
		}
		_, err = p.Register(name, ir.UnitKind(kind), typ, params)
		return wrap(field, uv.Pos(), err)
	})
}

func (c *Compiler) psets(p *process.Process, v cue.Value) error {
	return fields(v, "psets", func(name string, pv cue.Value, field string) error {
		params, err := compilePSet(pv, field)
		if err != nil {
			return err
		}
		_, err = p.Register(name, ir.UnitPSet, "", params)
		return wrap(field, pv.Pos(), err)
	})
}

// patches applies each patch in list order; within one patch the order is
// merge, set, copy, append.
func (c *Compiler) patches(p *process.Process, v cue.Value) error {
	iter, err := v.List()
	if err != nil {
		return &CompileError{Field: "process.patches", Message: "must be a list", Pos: v.Pos()}
	}
	for i := 0; iter.Next(); i++ {
		pv := iter.Value()
		field := fmt.Sprintf("process.patches[%d]", i)
		unit, err := stringField(pv, "unit", field)
		if err != nil {
			return err
		}
		if unit == "" {
			return &CompileError{Field: field + ".unit", Message: "unit is required", Pos: pv.Pos()}
		}
		if err := c.patch(p, unit, pv, field); err != nil {
			return err
		}
		c.logger().Debug("patch applied", "unit", unit, "field", field)
	}
	return nil
}

func (c *Compiler) patch(p *process.Process, unit string, pv cue.Value, field string) error {
	if mv := pv.LookupPath(cue.ParsePath("merge")); mv.Exists() {
		overrides, err := compilePSet(mv, field+".merge")
		if err != nil {
			return err
		}
		if err := p.Patch(unit, overrides); err != nil {
			return wrap(field+".merge", mv.Pos(), err)
		}
	}
	if sv := pv.LookupPath(cue.ParsePath("set")); sv.Exists() {
		err := fields(sv, "patches.set", func(path string, fv cue.Value, _ string) error {
			val, err := compileValue(fv, field+".set."+path, hasAttr(fv, attrTag))
			if err != nil {
				return err
			}
			return wrap(field+".set."+path, fv.Pos(), p.Set(unit, path, val))
		})
		if err != nil {
			return err
		}
	}
	if cv := pv.LookupPath(cue.ParsePath("copy")); cv.Exists() {
		err := fields(cv, "patches.copy", func(path string, fv cue.Value, _ string) error {
			from, err := fv.String()
			if err != nil {
				return &CompileError{Field: field + ".copy." + path, Message: "copy source must be a string", Pos: fv.Pos()}
			}
			return wrap(field+".copy."+path, fv.Pos(), p.Copy(unit, path, from))
		})
		if err != nil {
			return err
		}
	}
	if av := pv.LookupPath(cue.ParsePath("append")); av.Exists() {
		err := fields(av, "patches.append", func(path string, fv cue.Value, _ string) error {
			val, err := compileValue(fv, field+".append."+path, hasAttr(fv, attrTag))
			if err != nil {
				return err
			}
			vals := []ir.Value{val}
			if l, ok := val.(ir.List); ok {
				vals = l
			}
			return wrap(field+".append."+path, fv.Pos(), p.Append(unit, path, vals...))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) seeds(p *process.Process, v cue.Value) error {
	return fields(v, "seeds", func(name string, sv cue.Value, field string) error {
		seed, err := sv.Int64()
		if err != nil {
			return &CompileError{Field: field, Message: "seed must be an integer", Pos: sv.Pos()}
		}
		return wrap(field, sv.Pos(), p.Set(SeedService, name+".initialSeed", ir.Int(seed)))
	})
}

func (c *Compiler) sequences(p *process.Process, v cue.Value) error {
	return fields(v, "sequences", func(name string, sv cue.Value, field string) error {
		expr, err := sv.String()
		if err != nil {
			return &CompileError{Field: field, Message: "sequence must be an expression string", Pos: sv.Pos()}
		}
		_, err = p.SequenceExpr(name, expr)
		return wrap(field, sv.Pos(), err)
	})
}

func (c *Compiler) removes(p *process.Process, v cue.Value) error {
	iter, err := v.List()
	if err != nil {
		return &CompileError{Field: "process.removes", Message: "must be a list", Pos: v.Pos()}
	}
	for i := 0; iter.Next(); i++ {
		rv := iter.Value()
		field := fmt.Sprintf("process.removes[%d]", i)
		seq, err := stringField(rv, "sequence", field)
		if err != nil {
			return err
		}
		unit, err := stringField(rv, "unit", field)
		if err != nil {
			return err
		}
		if err := p.Remove(seq, unit); err != nil {
			return wrap(field, rv.Pos(), err)
		}
	}
	return nil
}

func (c *Compiler) paths(end bool) func(*process.Process, cue.Value) error {
	section, declare := "paths", (*process.Process).Path
	if end {
		section, declare = "endpaths", (*process.Process).EndPath
	}
	return func(p *process.Process, v cue.Value) error {
		return fields(v, section, func(name string, pv cue.Value, field string) error {
			expr, err := pv.String()
			if err != nil {
				return &CompileError{Field: field, Message: "path must be an expression string", Pos: pv.Pos()}
			}
			entries, err := process.ParseExpr(expr)
			if err != nil {
				return wrap(field, pv.Pos(), err)
			}
			_, err = declare(p, name, entries...)
			return wrap(field, pv.Pos(), err)
		})
	}
}

func (c *Compiler) schedule(p *process.Process, v cue.Value) error {
	names, err := stringList(v, "process.schedule")
	if err != nil {
		return err
	}
	return wrap("process.schedule", v.Pos(), p.SetSchedule(names...))
}

func (c *Compiler) gate(p *process.Process, v cue.Value) error {
	expr, err := v.String()
	if err != nil {
		return &CompileError{Field: "process.gate", Message: "gate must be a unit or sequence name", Pos: v.Pos()}
	}
	entries, err := process.ParseExpr(expr)
	if err != nil {
		return wrap("process.gate", v.Pos(), err)
	}
	if len(entries) != 1 {
		return &CompileError{Field: "process.gate", Message: fmt.Sprintf("gate %q must name exactly one unit or sequence", expr), Pos: v.Pos()}
	}
	return wrap("process.gate", v.Pos(), p.GatePaths(entries[0]))
}

func (c *Compiler) globalTag(ctx context.Context, p *process.Process, v cue.Value) error {
	tag, err := v.String()
	if err != nil {
		return &CompileError{Field: "process.global_tag", Message: "must be a string", Pos: v.Pos()}
	}
	resolver := c.Conditions
	if resolver == nil {
		resolver = conditions.NewResolver(nil)
	}
	res, err := resolver.Apply(ctx, p, tag)
	if err != nil {
		return wrap("process.global_tag", v.Pos(), err)
	}
	c.logger().Debug("global tag resolved", "requested", res.Requested, "tag", res.Tag, "source", res.Source)
	return nil
}

func (c *Compiler) customize(p *process.Process, v cue.Value) (*process.Process, error) {
	names, err := stringList(v, "process.customize")
	if err != nil {
		return nil, err
	}
	registry := c.Customs
	if registry == nil {
		registry = customs.NewRegistry()
	}
	hooks, err := registry.Hooks(names...)
	if err != nil {
		return nil, wrap("process.customize", v.Pos(), err)
	}
	out, err := process.Customize(p, hooks...)
	if err != nil {
		return nil, wrap("process.customize", v.Pos(), err)
	}
	return out, nil
}
