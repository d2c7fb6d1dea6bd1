package process

import (
	"strings"

	"github.com/roach88/procfg/internal/ir"
)

// Entry is one element of a sequence as written by a caller, before the
// Process resolves what its name refers to.
type Entry struct {
	Op          ir.Op
	Name        string
	Placeholder bool
}

// Ref references a registered unit or sequence.
func Ref(name string) Entry {
	return Entry{Name: name}
}

// Placeholder references a unit that is expected to be registered later,
// typically by a bundle. It is resolved at Finalize.
func Placeholder(name string) Entry {
	return Entry{Name: name, Placeholder: true}
}

// Alongside marks e as running alongside the entry before it instead of
// after it.
func Alongside(e Entry) Entry {
	e.Op = ir.OpAlongside
	return e
}

// String renders the entry the way ParseExpr reads it.
func (e Entry) String() string {
	if e.Placeholder {
		return "@" + e.Name
	}
	return e.Name
}

// ParseExpr parses a sequence expression such as
// "@randomEngineStateProducer * @mix * doAllDigi + trackingParticles".
// Names prefixed with "@" are placeholders. Operators are "*" (after) and
// "+" (alongside). Grouping is not supported. An empty expression yields an
// empty sequence.
func ParseExpr(expr string) ([]Entry, error) {
	var entries []Entry
	op := ir.Op("")
	expectName := true
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '*' || c == '+':
			if expectName {
				return nil, newInvalidError("", "expression %q: operator %q at offset %d has no left operand", expr, string(c), i)
			}
			op = ir.Op(string(c))
			expectName = true
			i++
		case c == '@' || isNameByte(c):
			if !expectName {
				return nil, newInvalidError("", "expression %q: missing operator before offset %d", expr, i)
			}
			start := i
			placeholder := c == '@'
			if placeholder {
				i++
			}
			for i < len(expr) && isNameByte(expr[i]) {
				i++
			}
			name := expr[start:i]
			if placeholder {
				name = name[1:]
			}
			if !ir.ValidName(name) {
				return nil, newInvalidError(name, "expression %q: invalid name %q", expr, expr[start:i])
			}
			entries = append(entries, Entry{Op: op, Name: name, Placeholder: placeholder})
			expectName = false
		default:
			return nil, newInvalidError("", "expression %q: unexpected %q at offset %d", expr, string(c), i)
		}
	}
	if expectName && len(entries) > 0 {
		return nil, newInvalidError("", "expression %q: trailing operator", expr)
	}
	if len(entries) > 0 {
		entries[0].Op = ""
	}
	return entries, nil
}

func isNameByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// FormatEntries renders resolved entries back into expression form.
func FormatEntries(entries []ir.EntrySpec) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			op := e.Op
			if op == "" {
				op = ir.OpSequential
			}
			b.WriteString(" ")
			b.WriteString(string(op))
			b.WriteString(" ")
		}
		if e.Kind == ir.RefPlaceholder {
			b.WriteString("@")
		}
		b.WriteString(e.Name)
	}
	return b.String()
}
