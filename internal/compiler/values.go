package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/procfg/internal/ir"
)

// Field attributes recognised on parameter values:
//
//	Verbosity: 0 @untracked()
//	src:       "generator" @tag()
//	rawHits:   ["simSiPixelDigis"] @tag()
const (
	attrUntracked = "untracked"
	attrTag       = "tag"
)

func hasAttr(v cue.Value, key string) bool {
	a := v.Attribute(key)
	return a.Err() == nil
}

// compilePSet converts a CUE struct into a ParameterSet, keeping field
// order. Ints stay ints and floats become doubles.
func compilePSet(v cue.Value, field string) (*ir.ParameterSet, error) {
	ps := ir.NewParameterSet()
	if !v.Exists() {
		return ps, nil
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: field, Message: "parameters must be a struct", Pos: v.Pos()}
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		path := field + "." + name
		if !ir.ValidName(name) {
			return nil, &CompileError{Field: path, Message: fmt.Sprintf("invalid parameter name %q", name), Pos: iter.Value().Pos()}
		}
		val, err := compileValue(iter.Value(), path, hasAttr(iter.Value(), attrTag))
		if err != nil {
			return nil, err
		}
		ps.SetParam(ir.Param{Name: name, Value: val, Untracked: hasAttr(iter.Value(), attrUntracked)})
	}
	return ps, nil
}

func compileValue(v cue.Value, field string, asTag bool) (ir.Value, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.IncompleteKind() == cue.StructKind {
		return compilePSet(v, field)
	}
	if v.IncompleteKind() == cue.ListKind {
		return compileList(v, field, asTag)
	}
	if !v.IsConcrete() {
		return nil, &CompileError{Field: field, Message: "value must be concrete", Pos: v.Pos()}
	}

	switch v.Kind() {
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return ir.Int(n), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return ir.Double(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if !asTag {
			return ir.String(s), nil
		}
		tag, err := ir.ParseInputTag(s)
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return tag, nil
	}
	return nil, &CompileError{
		Field:   field,
		Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
		Pos:     v.Pos(),
	}
}

func compileList(v cue.Value, field string, asTag bool) (ir.Value, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var vals []ir.Value
	for i := 0; iter.Next(); i++ {
		el, err := compileValue(iter.Value(), fmt.Sprintf("%s[%d]", field, i), asTag)
		if err != nil {
			return nil, err
		}
		vals = append(vals, el)
	}
	l, err := ir.NewList(vals...)
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos(), Err: err}
	}
	return l, nil
}

// stringList reads a list of strings.
func stringList(v cue.Value, field string) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: v.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

// stringField reads an optional string field; absent yields "".
func stringField(v cue.Value, name, field string) (string, error) {
	f := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", &CompileError{Field: field + "." + name, Message: "must be a string", Pos: f.Pos()}
	}
	return s, nil
}
