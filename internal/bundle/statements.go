package bundle

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/roach88/procfg/internal/ir"
	"github.com/roach88/procfg/internal/process"
)

// LoadStatement loads another bundle.
type LoadStatement struct {
	Bundle string
	rng    hcl.Range
}

func (s *LoadStatement) Apply(p *process.Process) error { return p.Load(s.Bundle) }
func (s *LoadStatement) Range() hcl.Range               { return s.rng }

// UnitStatement registers a unit or a standalone parameter set.
type UnitStatement struct {
	Name   string
	Kind   ir.UnitKind
	Type   string
	Params *ir.ParameterSet
	rng    hcl.Range
}

func (s *UnitStatement) Apply(p *process.Process) error {
	_, err := p.Register(s.Name, s.Kind, s.Type, s.Params)
	return err
}
func (s *UnitStatement) Range() hcl.Range { return s.rng }

// SequenceStatement declares a sequence from its textual form.
type SequenceStatement struct {
	Name string
	Expr string
	rng  hcl.Range
}

func (s *SequenceStatement) Apply(p *process.Process) error {
	_, err := p.SequenceExpr(s.Name, s.Expr)
	return err
}
func (s *SequenceStatement) Range() hcl.Range { return s.rng }

// FieldCopy embeds a copy of a registered parameter set into Field.
type FieldCopy struct {
	Field string
	From  string
}

// FieldAppend extends the list at Field.
type FieldAppend struct {
	Field  string
	Values []ir.Value
}

// PatchStatement modifies an already registered unit: merge first, then
// copies, then appends.
type PatchStatement struct {
	Unit    string
	Merge   *ir.ParameterSet
	Copies  []FieldCopy
	Appends []FieldAppend
	rng     hcl.Range
}

func (s *PatchStatement) Apply(p *process.Process) error {
	if s.Merge != nil {
		if err := p.Patch(s.Unit, s.Merge); err != nil {
			return err
		}
	}
	for _, c := range s.Copies {
		if err := p.Copy(s.Unit, c.Field, c.From); err != nil {
			return err
		}
	}
	for _, a := range s.Appends {
		if err := p.Append(s.Unit, a.Field, a.Values...); err != nil {
			return err
		}
	}
	return nil
}
func (s *PatchStatement) Range() hcl.Range { return s.rng }

// RemoveStatement drops units from a sequence.
type RemoveStatement struct {
	Sequence string
	Units    []string
	rng      hcl.Range
}

func (s *RemoveStatement) Apply(p *process.Process) error {
	for _, u := range s.Units {
		if err := p.Remove(s.Sequence, u); err != nil {
			return err
		}
	}
	return nil
}
func (s *RemoveStatement) Range() hcl.Range { return s.rng }
