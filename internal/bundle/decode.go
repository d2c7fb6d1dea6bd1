package bundle

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/roach88/procfg/internal/ir"
	"github.com/roach88/procfg/internal/process"
)

// Bundle is a parsed bundle file: statements in source order.
type Bundle struct {
	Name       string
	Filename   string
	Statements []Statement
}

// Statement is one top-level block of a bundle file.
type Statement interface {
	Apply(p *process.Process) error
	Range() hcl.Range
}

// Apply runs every statement against p, stopping at the first error.
// Errors keep their process error codes and gain the block position.
func (b *Bundle) Apply(p *process.Process) error {
	for _, st := range b.Statements {
		if err := st.Apply(p); err != nil {
			rng := st.Range()
			return fmt.Errorf("%s: %w", rng.String(), err)
		}
	}
	return nil
}

// Names returns the units and sequences the bundle declares, in order.
func (b *Bundle) Names() []string {
	var names []string
	for _, st := range b.Statements {
		switch s := st.(type) {
		case *UnitStatement:
			names = append(names, s.Name)
		case *SequenceStatement:
			names = append(names, s.Name)
		}
	}
	return names
}

type unitBody struct {
	Kind   string         `hcl:"kind"`
	Type   string         `hcl:"type,optional"`
	Params hcl.Expression `hcl:"params,optional"`
}

type psetBody struct {
	Params hcl.Expression `hcl:"params,optional"`
}

type sequenceBody struct {
	Expr string `hcl:"expr"`
}

type patchBody struct {
	Merge  hcl.Expression `hcl:"merge,optional"`
	Copy   hcl.Expression `hcl:"copy,optional"`
	Append hcl.Expression `hcl:"append,optional"`
}

type removeBody struct {
	Units []string `hcl:"units"`
}

type loadBody struct{}

// Parse parses a bundle file. name is the bundle name the file provides.
func Parse(name, filename string, src []byte) (*Bundle, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected body type %T", filename, file.Body)
	}

	for _, attr := range body.Attributes {
		r := attr.SrcRange
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unexpected attribute",
			Detail:   fmt.Sprintf("top-level attribute %q is not allowed; use a block", attr.Name),
			Subject:  &r,
		})
	}

	d := valueDecoder{src: src}
	b := &Bundle{Name: name, Filename: filename}
	for _, block := range body.Blocks {
		st, blockDiags := decodeBlock(d, block)
		diags = append(diags, blockDiags...)
		if !blockDiags.HasErrors() {
			b.Statements = append(b.Statements, st)
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return b, nil
}

func decodeBlock(d valueDecoder, block *hclsyntax.Block) (Statement, hcl.Diagnostics) {
	if len(block.Labels) != 1 {
		return nil, diagAt(block.DefRange(), "Invalid block",
			fmt.Sprintf("%s blocks take exactly one label", block.Type))
	}
	label := block.Labels[0]
	rng := block.Range()

	switch block.Type {
	case "load":
		var lb loadBody
		if diags := gohcl.DecodeBody(block.Body, nil, &lb); diags.HasErrors() {
			return nil, diags
		}
		return &LoadStatement{Bundle: label, rng: rng}, nil

	case "unit":
		var ub unitBody
		if diags := gohcl.DecodeBody(block.Body, nil, &ub); diags.HasErrors() {
			return nil, diags
		}
		kind := ir.UnitKind(ub.Kind)
		if !ir.ValidUnitKinds[kind] || kind == ir.UnitPSet {
			return nil, diagAt(block.DefRange(), "Invalid unit kind",
				fmt.Sprintf("%q is not a unit kind; use a pset block for parameter sets", ub.Kind))
		}
		params, diags := d.pset(ub.Params)
		if diags.HasErrors() {
			return nil, diags
		}
		return &UnitStatement{Name: label, Kind: kind, Type: ub.Type, Params: params, rng: rng}, nil

	case "pset":
		var pb psetBody
		if diags := gohcl.DecodeBody(block.Body, nil, &pb); diags.HasErrors() {
			return nil, diags
		}
		params, diags := d.pset(pb.Params)
		if diags.HasErrors() {
			return nil, diags
		}
		return &UnitStatement{Name: label, Kind: ir.UnitPSet, Params: params, rng: rng}, nil

	case "sequence":
		var sb sequenceBody
		if diags := gohcl.DecodeBody(block.Body, nil, &sb); diags.HasErrors() {
			return nil, diags
		}
		if _, err := process.ParseExpr(sb.Expr); err != nil {
			return nil, diagAt(block.DefRange(), "Invalid sequence expression", err.Error())
		}
		return &SequenceStatement{Name: label, Expr: sb.Expr, rng: rng}, nil

	case "patch":
		var pb patchBody
		if diags := gohcl.DecodeBody(block.Body, nil, &pb); diags.HasErrors() {
			return nil, diags
		}
		return decodePatch(d, label, pb, rng)

	case "remove":
		var rb removeBody
		if diags := gohcl.DecodeBody(block.Body, nil, &rb); diags.HasErrors() {
			return nil, diags
		}
		return &RemoveStatement{Sequence: label, Units: rb.Units, rng: rng}, nil
	}

	return nil, diagAt(block.TypeRange, "Unsupported block type",
		fmt.Sprintf("%q is not one of load, unit, pset, sequence, patch, remove", block.Type))
}

func decodePatch(d valueDecoder, unit string, pb patchBody, rng hcl.Range) (Statement, hcl.Diagnostics) {
	st := &PatchStatement{Unit: unit, rng: rng}

	merge, diags := d.pset(pb.Merge)
	if diags.HasErrors() {
		return nil, diags
	}
	if merge.Len() > 0 {
		st.Merge = merge
	}

	copies, diags := fieldItems(pb.Copy)
	if diags.HasErrors() {
		return nil, diags
	}
	for _, item := range copies {
		v, vDiags := item.value.Value(nil)
		if vDiags.HasErrors() {
			return nil, vDiags
		}
		if v.IsNull() || v.Type() != cty.String {
			return nil, diagAt(item.value.Range(), "Invalid copy source", "copy sources are pset names, optionally with a dotted field")
		}
		st.Copies = append(st.Copies, FieldCopy{Field: item.field, From: v.AsString()})
	}

	appends, diags := fieldItems(pb.Append)
	if diags.HasErrors() {
		return nil, diags
	}
	for _, item := range appends {
		v, vDiags := d.value(item.value)
		if vDiags.HasErrors() {
			return nil, vDiags
		}
		vals := []ir.Value{v}
		if l, ok := v.(ir.List); ok {
			vals = l
		}
		st.Appends = append(st.Appends, FieldAppend{Field: item.field, Values: vals})
	}

	if st.Merge == nil && len(st.Copies) == 0 && len(st.Appends) == 0 {
		return nil, diagAt(rng, "Empty patch", fmt.Sprintf("patch %q sets none of merge, copy, append", unit))
	}
	return st, nil
}

type fieldItem struct {
	field string
	value hcl.Expression
}

// fieldItems reads an object constructor keyed by (possibly dotted) field
// names, keeping source order.
func fieldItems(expr hcl.Expression) ([]fieldItem, hcl.Diagnostics) {
	obj, ok := expr.(*hclsyntax.ObjectConsExpr)
	if !ok {
		v, diags := expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		if v.IsNull() {
			return nil, nil
		}
		return nil, diagAt(expr.Range(), "Object required", "expected an object like { field = value }")
	}
	items := make([]fieldItem, 0, len(obj.Items))
	for _, item := range obj.Items {
		k, diags := item.KeyExpr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		if k.IsNull() || k.Type() != cty.String {
			return nil, diagAt(item.KeyExpr.Range(), "Invalid field", "field names must be strings")
		}
		items = append(items, fieldItem{field: k.AsString(), value: item.ValueExpr})
	}
	return items, nil
}
