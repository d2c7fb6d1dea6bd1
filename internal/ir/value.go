package ir

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Kind names the type of a parameter value.
type Kind string

const (
	KindBool     Kind = "bool"
	KindInt      Kind = "int"
	KindDouble   Kind = "double"
	KindString   Kind = "string"
	KindInputTag Kind = "input_tag"
	KindList     Kind = "list"
	KindPSet     Kind = "pset"
)

// ErrTypeMismatch is returned when a value does not have the kind an
// operation requires.
var ErrTypeMismatch = errors.New("type mismatch")

// Value is a sealed interface over typed parameter values.
// Only Bool, Int, Double, String, InputTag, List and *ParameterSet implement it.
type Value interface {
	Kind() Kind
	value()
}

// Bool is a boolean parameter.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value()     {}

// Int is an integer parameter. All integer widths collapse to int64.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) value()     {}

// Double is a floating point parameter.
type Double float64

func (Double) Kind() Kind { return KindDouble }
func (Double) value()     {}

// String is a string parameter.
type String string

func (String) Kind() Kind { return KindString }
func (String) value()     {}

// InputTag addresses a data product by module label, product instance and
// producing process.
type InputTag struct {
	Label    string `json:"label"`
	Instance string `json:"instance,omitempty"`
	Process  string `json:"process,omitempty"`
}

func (InputTag) Kind() Kind { return KindInputTag }
func (InputTag) value()     {}

// String renders the tag in label:instance:process form, dropping empty
// trailing components.
func (t InputTag) String() string {
	switch {
	case t.Process != "":
		return t.Label + ":" + t.Instance + ":" + t.Process
	case t.Instance != "":
		return t.Label + ":" + t.Instance
	default:
		return t.Label
	}
}

// ParseInputTag parses "label[:instance[:process]]".
func ParseInputTag(s string) (InputTag, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 || parts[0] == "" {
		return InputTag{}, fmt.Errorf("invalid input tag %q", s)
	}
	tag := InputTag{Label: parts[0]}
	if len(parts) > 1 {
		tag.Instance = parts[1]
	}
	if len(parts) > 2 {
		tag.Process = parts[2]
	}
	return tag, nil
}

// List is a homogeneous list of values. Construct with NewList to get the
// homogeneity check.
type List []Value

func (List) Kind() Kind { return KindList }
func (List) value()     {}

// Elem returns the element kind, or "" for an empty list.
func (l List) Elem() Kind {
	if len(l) == 0 {
		return ""
	}
	return l[0].Kind()
}

// NewList builds a list, rejecting mixed kinds and nested lists.
func NewList(vals ...Value) (List, error) {
	l := make(List, 0, len(vals))
	return l.Append(vals...)
}

// Append returns l extended with vals, enforcing the list's element kind.
func (l List) Append(vals ...Value) (List, error) {
	elem := l.Elem()
	out := make(List, len(l), len(l)+len(vals))
	copy(out, l)
	for i, v := range vals {
		if v == nil {
			return nil, fmt.Errorf("element %d: nil value: %w", i, ErrTypeMismatch)
		}
		if v.Kind() == KindList {
			return nil, fmt.Errorf("element %d: lists cannot nest: %w", i, ErrTypeMismatch)
		}
		if elem == "" {
			elem = v.Kind()
		}
		if v.Kind() != elem {
			return nil, fmt.Errorf("element %d: %s in list of %s: %w", i, v.Kind(), elem, ErrTypeMismatch)
		}
		out = append(out, v)
	}
	return out, nil
}

// MustList is like NewList but panics on error.
// Use only in tests or for literal bundle contents.
func MustList(vals ...Value) List {
	l, err := NewList(vals...)
	if err != nil {
		panic(err)
	}
	return l
}

// Strings builds a list of strings.
func Strings(ss ...string) List {
	l := make(List, len(ss))
	for i, s := range ss {
		l[i] = String(s)
	}
	return l
}

// Ints builds a list of ints.
func Ints(ns ...int64) List {
	l := make(List, len(ns))
	for i, n := range ns {
		l[i] = Int(n)
	}
	return l
}

// nameRe restricts parameter names so the canonical encoding can reserve
// the "$" prefix.
var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether s is usable as a parameter or module name.
func ValidName(s string) bool {
	return nameRe.MatchString(s)
}

// CloneValue returns a deep copy of v.
func CloneValue(v Value) Value {
	switch val := v.(type) {
	case List:
		out := make(List, len(val))
		for i, e := range val {
			out[i] = CloneValue(e)
		}
		return out
	case *ParameterSet:
		return val.Clone()
	default:
		return v
	}
}

// EqualValues compares two values structurally, including parameter order
// and tracked flags.
func EqualValues(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case List:
		bv := b.(List)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !EqualValues(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *ParameterSet:
		return av.Equal(b.(*ParameterSet))
	case Double:
		bv := b.(Double)
		if math.IsNaN(float64(av)) && math.IsNaN(float64(bv)) {
			return true
		}
		return av == bv
	default:
		return a == b
	}
}
