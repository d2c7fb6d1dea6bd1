package bundle

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/roach88/procfg/internal/ir"
)

// valueDecoder converts HCL expressions into parameter values. src is the
// file the expressions came from; number literals are classified by their
// source text.
type valueDecoder struct {
	src []byte
}

// pset decodes an object constructor into a ParameterSet. A null or absent
// expression yields an empty set.
func (d valueDecoder) pset(expr hcl.Expression) (*ir.ParameterSet, hcl.Diagnostics) {
	ps := ir.NewParameterSet()
	obj, ok := expr.(*hclsyntax.ObjectConsExpr)
	if !ok {
		v, diags := expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		if v.IsNull() {
			return ps, nil
		}
		return nil, diagAt(expr.Range(), "Parameter set required", "expected an object like { name = value }")
	}

	var diags hcl.Diagnostics
	for _, item := range obj.Items {
		keyVal, keyDiags := item.KeyExpr.Value(nil)
		diags = append(diags, keyDiags...)
		if keyDiags.HasErrors() {
			continue
		}
		if keyVal.Type() != cty.String || keyVal.IsNull() {
			diags = append(diags, diagAt(item.KeyExpr.Range(), "Invalid parameter name", "parameter names must be strings")...)
			continue
		}
		name := keyVal.AsString()
		if !ir.ValidName(name) {
			diags = append(diags, diagAt(item.KeyExpr.Range(), "Invalid parameter name", fmt.Sprintf("%q is not a valid parameter name", name))...)
			continue
		}
		if _, dup := ps.Get(name); dup {
			diags = append(diags, diagAt(item.KeyExpr.Range(), "Duplicate parameter", fmt.Sprintf("%q is set twice", name))...)
			continue
		}
		val, untracked, valDiags := d.param(item.ValueExpr)
		diags = append(diags, valDiags...)
		if valDiags.HasErrors() {
			continue
		}
		ps.SetParam(ir.Param{Name: name, Value: val, Untracked: untracked})
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return ps, diags
}

// param decodes a parameter value, unwrapping untracked(...).
func (d valueDecoder) param(expr hcl.Expression) (ir.Value, bool, hcl.Diagnostics) {
	if call, ok := expr.(*hclsyntax.FunctionCallExpr); ok && call.Name == "untracked" {
		if len(call.Args) != 1 {
			return nil, false, diagAt(call.Range(), "Invalid untracked call", "untracked takes exactly one argument")
		}
		v, diags := d.value(call.Args[0])
		return v, true, diags
	}
	v, diags := d.value(expr)
	return v, false, diags
}

func (d valueDecoder) value(expr hcl.Expression) (ir.Value, hcl.Diagnostics) {
	switch e := expr.(type) {
	case *hclsyntax.ObjectConsExpr:
		ps, diags := d.pset(e)
		if diags.HasErrors() {
			return nil, diags
		}
		return ps, diags
	case *hclsyntax.TupleConsExpr:
		return d.list(e)
	case *hclsyntax.FunctionCallExpr:
		return d.call(e)
	case *hclsyntax.ParenthesesExpr:
		return d.value(e.Expression)
	}

	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if v.IsNull() || !v.IsKnown() {
		return nil, diagAt(expr.Range(), "Missing value", "parameters cannot be null")
	}
	switch v.Type() {
	case cty.Bool:
		return ir.Bool(v.True()), nil
	case cty.String:
		return ir.String(v.AsString()), nil
	case cty.Number:
		return d.number(expr, v.AsBigFloat(), false)
	}
	return nil, diagAt(expr.Range(), "Unsupported value", fmt.Sprintf("values of type %s cannot be parameters", v.Type().FriendlyName()))
}

func (d valueDecoder) list(e *hclsyntax.TupleConsExpr) (ir.Value, hcl.Diagnostics) {
	vals := make([]ir.Value, 0, len(e.Exprs))
	var diags hcl.Diagnostics
	for _, el := range e.Exprs {
		v, elDiags := d.value(el)
		diags = append(diags, elDiags...)
		if !elDiags.HasErrors() {
			vals = append(vals, v)
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}
	l, err := ir.NewList(vals...)
	if err != nil {
		return nil, diagAt(e.Range(), "Invalid list", err.Error())
	}
	return l, nil
}

func (d valueDecoder) call(e *hclsyntax.FunctionCallExpr) (ir.Value, hcl.Diagnostics) {
	if len(e.Args) != 1 {
		return nil, diagAt(e.Range(), "Invalid function call", fmt.Sprintf("%s takes exactly one argument", e.Name))
	}
	arg, diags := e.Args[0].Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	switch e.Name {
	case "tag":
		if arg.Type() != cty.String || arg.IsNull() {
			return nil, diagAt(e.Range(), "Invalid input tag", "tag takes a string")
		}
		tag, err := ir.ParseInputTag(arg.AsString())
		if err != nil {
			return nil, diagAt(e.Range(), "Invalid input tag", err.Error())
		}
		return tag, nil
	case "double", "int":
		if arg.Type() != cty.Number || arg.IsNull() {
			return nil, diagAt(e.Range(), "Invalid number", fmt.Sprintf("%s takes a number", e.Name))
		}
		if e.Name == "double" {
			f, _ := arg.AsBigFloat().Float64()
			return ir.Double(f), nil
		}
		return d.number(e, arg.AsBigFloat(), true)
	case "untracked":
		return nil, diagAt(e.Range(), "Misplaced untracked", "untracked applies to a whole parameter, not to nested values")
	}
	return nil, diagAt(e.Range(), "Unknown function", fmt.Sprintf("%q is not one of tag, double, int, untracked", e.Name))
}

// number classifies a numeric literal. Source text with a fraction or
// exponent makes a double; anything else must be a whole number.
func (d valueDecoder) number(expr hcl.Expression, bf *big.Float, forceInt bool) (ir.Value, hcl.Diagnostics) {
	text := strings.TrimSpace(string(expr.Range().SliceBytes(d.src)))
	if !forceInt && strings.ContainsAny(text, ".eE") {
		f, _ := bf.Float64()
		return ir.Double(f), nil
	}
	if !bf.IsInt() {
		return nil, diagAt(expr.Range(), "Invalid integer", fmt.Sprintf("%s is not a whole number", bf.Text('g', -1)))
	}
	n, acc := bf.Int64()
	if acc != big.Exact {
		return nil, diagAt(expr.Range(), "Invalid integer", fmt.Sprintf("%s does not fit in 64 bits", bf.Text('g', -1)))
	}
	return ir.Int(n), nil
}

func diagAt(rng hcl.Range, summary, detail string) hcl.Diagnostics {
	r := rng
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  &r,
	}}
}
