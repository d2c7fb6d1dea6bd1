package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/procfg/internal/ir"
)

// PlanSnapshot is the part of a build that golden files pin down: what
// runs, in which order, and what the build reported about itself.
type PlanSnapshot struct {
	ScenarioName   string
	Process        string
	GlobalTag      string
	Plan           []string
	Paths          map[string][]string
	Customizations []string
	Warnings       []string
	ErrorCode      string
}

// NewPlanSnapshot summarizes result for golden comparison.
func NewPlanSnapshot(scenarioName string, result *Result) PlanSnapshot {
	s := PlanSnapshot{
		ScenarioName: scenarioName,
		ErrorCode:    result.ErrorCode,
	}
	if snap := result.Snapshot; snap != nil {
		s.Process = snap.Name
		s.GlobalTag = snap.GlobalTag
		s.Plan = snap.Plan
		s.Customizations = snap.Customizations
		s.Warnings = snap.Warnings
		s.Paths = make(map[string][]string, len(snap.Paths))
		for _, p := range snap.Paths {
			s.Paths[p.Name] = p.Modules
		}
	}
	return s
}

// toCanonicalMap converts a PlanSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *PlanSnapshot) toCanonicalMap() map[string]any {
	result := map[string]any{
		"scenario_name": s.ScenarioName,
	}
	if s.ErrorCode != "" {
		result["error_code"] = s.ErrorCode
		return result
	}

	paths := make(map[string]any, len(s.Paths))
	for name, modules := range s.Paths {
		paths[name] = modules
	}
	result["process"] = s.Process
	result["plan"] = s.Plan
	result["paths"] = paths
	result["customizations"] = s.Customizations
	if s.GlobalTag != "" {
		result["global_tag"] = s.GlobalTag
	}
	if len(s.Warnings) > 0 {
		result["warnings"] = s.Warnings
	}
	return result
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s *PlanSnapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the plan against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the plan doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's plan against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewPlanSnapshot(scenarioName, result)
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
