// Package customs is the catalog of named customizations a process file
// can ask for by name.
package customs

import (
	"fmt"
	"slices"

	"github.com/roach88/procfg/internal/ir"
	"github.com/roach88/procfg/internal/process"
)

// Registry maps customization names to hooks.
type Registry struct {
	hooks map[string]process.Customization
}

// NewRegistry returns a registry holding the standard customizations.
func NewRegistry() *Registry {
	r := &Registry{hooks: make(map[string]process.Customization)}
	for name, fn := range standard {
		r.hooks[name] = fn
	}
	return r
}

// Register adds a customization. Names are unique.
func (r *Registry) Register(name string, fn process.Customization) error {
	if _, ok := r.hooks[name]; ok {
		return process.NewDuplicateNameError(name, "customization")
	}
	r.hooks[name] = fn
	return nil
}

// Lookup returns the named hook.
func (r *Registry) Lookup(name string) (process.Hook, error) {
	fn, ok := r.hooks[name]
	if !ok {
		return process.Hook{}, process.NewNotFoundError(name, "customizations")
	}
	return process.Hook{Name: name, Apply: fn}, nil
}

// Hooks resolves names in order. Every name must exist before any hook
// runs.
func (r *Registry) Hooks(names ...string) ([]process.Hook, error) {
	hooks := make([]process.Hook, 0, len(names))
	for _, n := range names {
		h, err := r.Lookup(n)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}
	return hooks, nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.hooks))
	for n := range r.hooks {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

var standard = map[string]process.Customization{
	"cust_phase2_BE5D":        CustPhase2BE5D,
	"customise_pixel_BE5D":    CustomisePixelBE5D,
	"customise_ev_BE5D":       CustomiseEventContentBE5D,
	"keep_tracking_particles": KeepTrackingParticles,
	"customise_no_castor":     CustomiseNoCastor,
}

// pixelBE5D are the pixel digitizer settings for the 5-disk barrel/endcap
// tracker: no database conditions, ten barrel layers and ten endcap disks.
var pixelBE5D = ir.PSetOf(
	ir.P("MissCalibrate", ir.Bool(false)),
	ir.P("LorentzAngle_DB", ir.Bool(false)),
	ir.P("killModules", ir.Bool(false)),
	ir.P("useDB", ir.Bool(false)),
	ir.P("DeadModules_DB", ir.Bool(false)),
	ir.P("NumPixelBarrel", ir.Int(10)),
	ir.P("NumPixelEndcap", ir.Int(10)),
	ir.P("AddPixelInefficiency", ir.Int(-1)),
)

// trackTriggerContent keeps the track trigger products in every output.
var trackTriggerContent = []string{
	"keep *_TTClustersFromPixelDigis_*_*",
	"keep *_TTStubsFromPixelDigis_*_*",
	"keep *_TTClusterAssociatorFromPixelDigis_*_*",
	"keep *_TTStubAssociatorFromPixelDigis_*_*",
}

// CustPhase2BE5D configures a process for the phase 2 BE5D tracker: pixel
// digitizer settings followed by the track trigger event content.
func CustPhase2BE5D(p *process.Process) (*process.Process, error) {
	p, err := CustomisePixelBE5D(p)
	if err != nil {
		return nil, err
	}
	return CustomiseEventContentBE5D(p)
}

// CustomisePixelBE5D patches every pixel digitizer present: the
// standalone simSiPixelDigis unit and the pixel accumulator inside the
// mixing module. It fails if neither exists.
func CustomisePixelBE5D(p *process.Process) (*process.Process, error) {
	patched := 0
	if u, ok := p.Unit("simSiPixelDigis"); ok && u.Kind == ir.UnitProducer {
		if err := p.Patch("simSiPixelDigis", pixelBE5D); err != nil {
			return nil, err
		}
		patched++
	}
	if u, ok := p.Unit("mix"); ok {
		if _, ok := u.Params.Lookup("digitizers.pixel"); ok {
			if err := p.Patch("mix", ir.PSetOf(ir.P("digitizers", ir.PSetOf(ir.P("pixel", pixelBE5D))))); err != nil {
				return nil, err
			}
			patched++
		}
	}
	if patched == 0 {
		return nil, process.NewNotFoundError("simSiPixelDigis", "pixel digitizers")
	}
	return p, nil
}

// CustomiseEventContentBE5D adds the track trigger products to every
// output module.
func CustomiseEventContentBE5D(p *process.Process) (*process.Process, error) {
	return p, appendToOutputs(p, trackTriggerContent...)
}

// KeepTrackingParticles keeps the merged tracking truth in every output.
func KeepTrackingParticles(p *process.Process) (*process.Process, error) {
	return p, appendToOutputs(p, "keep *_*_MergedTrackTruth_*")
}

// CustomiseNoCastor returns a copy of p without the CASTOR digitizer in
// calDigi. The input process is left untouched.
func CustomiseNoCastor(p *process.Process) (*process.Process, error) {
	out := p.Clone()
	if err := out.Remove("calDigi", "simCastorDigis"); err != nil {
		return nil, err
	}
	return out, nil
}

func appendToOutputs(p *process.Process, commands ...string) error {
	vals := make([]ir.Value, len(commands))
	for i, c := range commands {
		vals[i] = ir.String(c)
	}
	n := 0
	for _, name := range p.Units() {
		u, _ := p.Unit(name)
		if u.Kind != ir.UnitOutput {
			continue
		}
		if err := p.Append(name, "outputCommands", vals...); err != nil {
			return fmt.Errorf("output %s: %w", name, err)
		}
		n++
	}
	if n == 0 {
		return process.NewNotFoundError("outputCommands", "output modules")
	}
	return nil
}
