package ir

import (
	"fmt"
	"strings"
)

// Param is one named entry of a ParameterSet.
type Param struct {
	Name      string
	Value     Value
	Untracked bool
}

// ParameterSet is an ordered mapping from parameter name to typed value.
// Names are unique; Set on an existing name replaces the value in place and
// keeps its position.
type ParameterSet struct {
	params []Param
	index  map[string]int
}

func (*ParameterSet) Kind() Kind { return KindPSet }
func (*ParameterSet) value()     {}

// NewParameterSet creates an empty parameter set.
func NewParameterSet() *ParameterSet {
	return &ParameterSet{index: make(map[string]int)}
}

// PSetOf builds a tracked parameter set from params in order.
// Later duplicates overwrite earlier ones.
func PSetOf(params ...Param) *ParameterSet {
	ps := NewParameterSet()
	for _, p := range params {
		ps.put(p)
	}
	return ps
}

// P is a shorthand for a tracked Param.
// Example: PSetOf(P("MinPt", Double(1)), P("MaxPt", Double(50)))
func P(name string, v Value) Param {
	return Param{Name: name, Value: v}
}

// U is a shorthand for an untracked Param.
func U(name string, v Value) Param {
	return Param{Name: name, Value: v, Untracked: true}
}

func (ps *ParameterSet) put(p Param) {
	if ps.index == nil {
		ps.index = make(map[string]int)
	}
	if i, ok := ps.index[p.Name]; ok {
		ps.params[i] = p
		return
	}
	ps.index[p.Name] = len(ps.params)
	ps.params = append(ps.params, p)
}

// Len returns the number of parameters.
func (ps *ParameterSet) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.params)
}

// Set assigns a tracked parameter. An existing entry keeps its position and
// its tracked flag.
func (ps *ParameterSet) Set(name string, v Value) {
	if i, ok := ps.index[name]; ok {
		ps.params[i].Value = v
		return
	}
	ps.put(Param{Name: name, Value: v})
}

// SetParam assigns a parameter including its tracked flag.
func (ps *ParameterSet) SetParam(p Param) {
	ps.put(p)
}

// Get returns the value for name.
func (ps *ParameterSet) Get(name string) (Value, bool) {
	if ps == nil {
		return nil, false
	}
	i, ok := ps.index[name]
	if !ok {
		return nil, false
	}
	return ps.params[i].Value, true
}

// Param returns the full entry for name.
func (ps *ParameterSet) Param(name string) (Param, bool) {
	if ps == nil {
		return Param{}, false
	}
	i, ok := ps.index[name]
	if !ok {
		return Param{}, false
	}
	return ps.params[i], true
}

// Delete removes name, reporting whether it was present.
func (ps *ParameterSet) Delete(name string) bool {
	i, ok := ps.index[name]
	if !ok {
		return false
	}
	ps.params = append(ps.params[:i], ps.params[i+1:]...)
	delete(ps.index, name)
	for j := i; j < len(ps.params); j++ {
		ps.index[ps.params[j].Name] = j
	}
	return true
}

// Names returns parameter names in insertion order.
func (ps *ParameterSet) Names() []string {
	if ps == nil {
		return nil
	}
	names := make([]string, len(ps.params))
	for i, p := range ps.params {
		names[i] = p.Name
	}
	return names
}

// Params returns a copy of the entries in insertion order.
func (ps *ParameterSet) Params() []Param {
	if ps == nil {
		return nil
	}
	out := make([]Param, len(ps.params))
	copy(out, ps.params)
	return out
}

// Clone returns a deep copy.
func (ps *ParameterSet) Clone() *ParameterSet {
	out := NewParameterSet()
	if ps == nil {
		return out
	}
	for _, p := range ps.params {
		out.put(Param{Name: p.Name, Value: CloneValue(p.Value), Untracked: p.Untracked})
	}
	return out
}

// Merge applies overrides onto ps with last-write-wins per field.
// When both sides hold a ParameterSet for the same name the merge recurses,
// so overriding one nested field leaves its siblings intact. Any other
// combination replaces the value. New names are appended in the order they
// appear in overrides.
func (ps *ParameterSet) Merge(overrides *ParameterSet) {
	if overrides == nil {
		return
	}
	for _, p := range overrides.params {
		cur, ok := ps.Param(p.Name)
		if ok {
			curSet, curIsSet := cur.Value.(*ParameterSet)
			newSet, newIsSet := p.Value.(*ParameterSet)
			if curIsSet && newIsSet {
				curSet.Merge(newSet)
				continue
			}
			cur.Value = CloneValue(p.Value)
			ps.put(cur)
			continue
		}
		ps.put(Param{Name: p.Name, Value: CloneValue(p.Value), Untracked: p.Untracked})
	}
}

// Lookup resolves a dotted path such as "generator.initialSeed".
func (ps *ParameterSet) Lookup(path string) (Value, bool) {
	cur := ps
	parts := strings.Split(path, ".")
	for i, part := range parts {
		v, ok := cur.Get(part)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, isSet := v.(*ParameterSet)
		if !isSet {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// SetPath assigns a value at a dotted path, creating intermediate parameter
// sets as needed. It fails if an intermediate name holds a non-pset value.
func (ps *ParameterSet) SetPath(path string, v Value) error {
	parts := strings.Split(path, ".")
	cur := ps
	for i, part := range parts {
		if !ValidName(part) {
			return fmt.Errorf("invalid parameter name %q in %q", part, path)
		}
		if i == len(parts)-1 {
			cur.Set(part, v)
			return nil
		}
		existing, ok := cur.Get(part)
		if !ok {
			next := NewParameterSet()
			cur.Set(part, next)
			cur = next
			continue
		}
		next, isSet := existing.(*ParameterSet)
		if !isSet {
			return fmt.Errorf("%s is %s, not pset: %w", strings.Join(parts[:i+1], "."), existing.Kind(), ErrTypeMismatch)
		}
		cur = next
	}
	return nil
}

// Equal compares two parameter sets including order and tracked flags.
func (ps *ParameterSet) Equal(other *ParameterSet) bool {
	if ps.Len() != other.Len() {
		return false
	}
	for i, p := range ps.Params() {
		q := other.params[i]
		if p.Name != q.Name || p.Untracked != q.Untracked || !EqualValues(p.Value, q.Value) {
			return false
		}
	}
	return true
}
