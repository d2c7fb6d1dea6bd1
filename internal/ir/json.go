package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// wireParam is the typed JSON form of one parameter. Kinds travel with the
// value so an engine (or a later read from the store) can rebuild the set
// without guessing int vs double.
type wireParam struct {
	Name      string          `json:"name"`
	Type      Kind            `json:"type"`
	Elem      Kind            `json:"elem,omitempty"`
	Untracked bool            `json:"untracked,omitempty"`
	Value     json.RawMessage `json:"value"`
}

// MarshalJSON encodes the set as an ordered array of typed entries.
func (ps *ParameterSet) MarshalJSON() ([]byte, error) {
	wire := make([]wireParam, 0, ps.Len())
	for _, p := range ps.Params() {
		raw, err := encodeValue(p.Value)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		wp := wireParam{Name: p.Name, Type: p.Value.Kind(), Untracked: p.Untracked, Value: raw}
		if l, ok := p.Value.(List); ok {
			wp.Elem = l.Elem()
		}
		wire = append(wire, wp)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the typed entry array produced by MarshalJSON.
func (ps *ParameterSet) UnmarshalJSON(data []byte) error {
	var wire []wireParam
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*ps = ParameterSet{index: make(map[string]int, len(wire))}
	for _, wp := range wire {
		if _, dup := ps.index[wp.Name]; dup {
			return fmt.Errorf("duplicate parameter %q", wp.Name)
		}
		v, err := decodeValue(wp.Type, wp.Elem, wp.Value)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", wp.Name, err)
		}
		ps.put(Param{Name: wp.Name, Value: v, Untracked: wp.Untracked})
	}
	return nil
}

func encodeValue(v Value) (json.RawMessage, error) {
	switch val := v.(type) {
	case Bool:
		return json.Marshal(bool(val))
	case Int:
		return json.RawMessage(strconv.FormatInt(int64(val), 10)), nil
	case Double:
		s, err := formatDouble(float64(val))
		if err != nil {
			return nil, err
		}
		return json.RawMessage(s), nil
	case String:
		return json.Marshal(string(val))
	case InputTag:
		return json.Marshal(val.String())
	case List:
		items := make([]json.RawMessage, len(val))
		for i, e := range val {
			raw, err := encodeValue(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = raw
		}
		return json.Marshal(items)
	case *ParameterSet:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown value type %T", v)
	}
}

func decodeValue(kind, elem Kind, raw json.RawMessage) (Value, error) {
	switch kind {
	case KindBool:
		var b bool
		err := json.Unmarshal(raw, &b)
		return Bool(b), err
	case KindInt:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return nil, err
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("int out of range: %s", n)
		}
		return Int(i), nil
	case KindDouble:
		var f float64
		err := json.Unmarshal(raw, &f)
		return Double(f), err
	case KindString:
		var s string
		err := json.Unmarshal(raw, &s)
		return String(s), err
	case KindInputTag:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return ParseInputTag(s)
	case KindList:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		vals := make([]Value, len(items))
		for i, item := range items {
			v, err := decodeValue(elem, "", item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			vals[i] = v
		}
		return NewList(vals...)
	case KindPSet:
		ps := NewParameterSet()
		if err := ps.UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("unknown parameter type %q", kind)
	}
}
