package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/procfg/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Diff     string // cmp.Diff of expected and actual, when both are lists
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Diff != "" {
		fmt.Fprintf(&buf, "\nDiff (-expected +actual):\n%s", e.Diff)
	}

	return buf.String()
}

// assertPlan checks the execution plan exactly.
func assertPlan(snap *ir.ProcessSnapshot, assertion Assertion) error {
	if slices.Equal(snap.Plan, assertion.Paths) {
		return nil
	}
	return &AssertionError{
		Type:     AssertPlan,
		Expected: fmt.Sprintf("plan %v", assertion.Paths),
		Actual:   fmt.Sprintf("plan %v", snap.Plan),
		Diff:     cmp.Diff(assertion.Paths, snap.Plan),
	}
}

// assertPathModules checks the flattened module list of a path exactly.
func assertPathModules(snap *ir.ProcessSnapshot, assertion Assertion) error {
	path, ok := snap.Path(assertion.Path)
	if !ok {
		return pathMissing(AssertPathModules, assertion.Path)
	}
	if slices.Equal(path.Modules, assertion.Modules) {
		return nil
	}
	return &AssertionError{
		Type:     AssertPathModules,
		Expected: fmt.Sprintf("%s runs %v", assertion.Path, assertion.Modules),
		Actual:   fmt.Sprintf("%s runs %v", assertion.Path, path.Modules),
		Diff:     cmp.Diff(assertion.Modules, path.Modules),
	}
}

// assertModuleOrder checks that modules appear in the path in the given
// order. Modules don't need to be consecutive (intervening modules are
// allowed); a repeated module is matched at its first occurrence.
func assertModuleOrder(snap *ir.ProcessSnapshot, assertion Assertion) error {
	path, ok := snap.Path(assertion.Path)
	if !ok {
		return pathMissing(AssertModuleOrder, assertion.Path)
	}

	// Step 1: Find first position of each expected module
	positions := make(map[string]int)
	for i, m := range path.Modules {
		if _, seen := positions[m]; !seen {
			positions[m] = i + 1 // 1-indexed for readability
		}
	}

	// Step 2: Verify all modules found
	for _, m := range assertion.Modules {
		if positions[m] == 0 {
			return &AssertionError{
				Type:     AssertModuleOrder,
				Expected: fmt.Sprintf("all modules present in %s: %v", assertion.Path, assertion.Modules),
				Actual:   fmt.Sprintf("missing module: %s", m),
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Modules); i++ {
		prev := assertion.Modules[i-1]
		curr := assertion.Modules[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertModuleOrder,
				Expected: fmt.Sprintf("modules in order: %v", assertion.Modules),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
			}
		}
	}

	return nil
}

// assertParam checks one parameter of a unit.
func assertParam(snap *ir.ProcessSnapshot, assertion Assertion) error {
	unit, ok := snap.Unit(assertion.Unit)
	if !ok {
		return &AssertionError{
			Type:     AssertParam,
			Expected: fmt.Sprintf("unit %s", assertion.Unit),
			Actual:   "unit not registered",
		}
	}
	actual, ok := unit.Params.Lookup(assertion.Field)
	if !ok {
		return &AssertionError{
			Type:     AssertParam,
			Expected: fmt.Sprintf("%s.%s = %v", assertion.Unit, assertion.Field, assertion.Value),
			Actual:   "field not set",
		}
	}
	if !valueMatches(actual, assertion.Value) {
		return &AssertionError{
			Type:     AssertParam,
			Expected: fmt.Sprintf("%s.%s = %v (type %T)", assertion.Unit, assertion.Field, assertion.Value, assertion.Value),
			Actual:   fmt.Sprintf("%s.%s = %s (kind %s)", assertion.Unit, assertion.Field, describe(actual), actual.Kind()),
		}
	}
	return nil
}

func assertUnitAbsent(snap *ir.ProcessSnapshot, assertion Assertion) error {
	if _, ok := snap.Unit(assertion.Unit); !ok {
		return nil
	}
	return &AssertionError{
		Type:     AssertUnitAbsent,
		Expected: fmt.Sprintf("no unit %s", assertion.Unit),
		Actual:   "unit registered",
	}
}

func assertWarnings(snap *ir.ProcessSnapshot, assertion Assertion) error {
	if len(snap.Warnings) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertWarnings,
		Expected: fmt.Sprintf("%d warnings", assertion.Count),
		Actual:   fmt.Sprintf("%d warnings: %v", len(snap.Warnings), snap.Warnings),
	}
}

func assertValidation(result *Result, assertion Assertion) error {
	codes := make([]string, 0, len(result.Validation))
	for _, v := range result.Validation {
		codes = append(codes, v.Code)
	}
	expected := assertion.Codes
	if expected == nil {
		expected = []string{}
	}
	if slices.Equal(codes, expected) {
		return nil
	}
	return &AssertionError{
		Type:     AssertValidation,
		Expected: fmt.Sprintf("validation codes %v", expected),
		Actual:   fmt.Sprintf("validation codes %v", codes),
		Diff:     cmp.Diff(expected, codes),
	}
}

func pathMissing(typ, path string) error {
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("path %s", path),
		Actual:   "path not declared",
	}
}

// valueMatches compares a parameter value with a YAML-parsed expectation.
// Nested parameter sets match by subset: keys absent from expected are
// ignored.
func valueMatches(actual ir.Value, expected interface{}) bool {
	switch v := actual.(type) {
	case ir.Bool:
		exp, ok := expected.(bool)
		return ok && exp == bool(v)
	case ir.Int:
		exp, ok := expected.(int)
		return ok && int64(exp) == int64(v)
	case ir.Double:
		switch exp := expected.(type) {
		case float64:
			return exp == float64(v)
		case int:
			return float64(exp) == float64(v)
		}
		return false
	case ir.String:
		exp, ok := expected.(string)
		return ok && exp == string(v)
	case ir.InputTag:
		exp, ok := expected.(string)
		return ok && exp == v.String()
	case ir.List:
		exp, ok := expected.([]interface{})
		if !ok || len(exp) != len(v) {
			return false
		}
		for i := range v {
			if !valueMatches(v[i], exp[i]) {
				return false
			}
		}
		return true
	case *ir.ParameterSet:
		exp, ok := expected.(map[string]interface{})
		if !ok {
			return false
		}
		for key, ev := range exp {
			av, ok := v.Get(key)
			if !ok || !valueMatches(av, ev) {
				return false
			}
		}
		return true
	}
	return false
}

func describe(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		if result.Snapshot == nil {
			errors = append(errors, fmt.Sprintf("assertion[%d]: no snapshot to check", i))
			continue
		}

		switch assertion.Type {
		case AssertPlan:
			err = assertPlan(result.Snapshot, assertion)
		case AssertPathModules:
			err = assertPathModules(result.Snapshot, assertion)
		case AssertModuleOrder:
			err = assertModuleOrder(result.Snapshot, assertion)
		case AssertParam:
			err = assertParam(result.Snapshot, assertion)
		case AssertUnitAbsent:
			err = assertUnitAbsent(result.Snapshot, assertion)
		case AssertWarnings:
			err = assertWarnings(result.Snapshot, assertion)
		case AssertValidation:
			err = assertValidation(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
