package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: one process built in a
// controlled environment and the properties its snapshot must have.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Process is the CUE file or directory to compile.
	// Relative paths are resolved against the scenario file location.
	Process string `yaml:"process"`

	// Bundles lists extra bundle directories searched before the
	// standard library. Relative paths resolve like Process.
	Bundles []string `yaml:"bundles,omitempty"`

	// GlobalTags seeds the alias table before the build.
	GlobalTags map[string]string `yaml:"global_tags,omitempty"`

	// Strict turns schedule ordering warnings into errors.
	Strict bool `yaml:"strict,omitempty"`

	// ExpectError is the configuration error code the build must fail
	// with (e.g. "DUPLICATE_NAME"). Assertions are not evaluated then.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the finalized snapshot.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Assertion validates one property of the snapshot.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Path names the path (path_modules, module_order).
	Path string `yaml:"path,omitempty"`

	// Paths is the expected execution plan (plan).
	Paths []string `yaml:"paths,omitempty"`

	// Modules is the expected module list (path_modules, module_order).
	Modules []string `yaml:"modules,omitempty"`

	// Unit names the unit (param, unit_absent).
	Unit string `yaml:"unit,omitempty"`

	// Field is a dotted parameter path (param).
	Field string `yaml:"field,omitempty"`

	// Value is the expected parameter value (param). Input tags compare
	// by their label:instance:process form, nested sets by subset.
	Value interface{} `yaml:"value,omitempty"`

	// Count is the expected number of warnings (warnings).
	Count int `yaml:"count,omitempty"`

	// Codes are the expected validation codes in report order (validation).
	Codes []string `yaml:"codes,omitempty"`
}

// Assertion type constants.
const (
	AssertPlan        = "plan"
	AssertPathModules = "path_modules"
	AssertModuleOrder = "module_order"
	AssertParam       = "param"
	AssertUnitAbsent  = "unit_absent"
	AssertWarnings    = "warnings"
	AssertValidation  = "validation"
)

// LoadScenario reads and parses a scenario YAML file, resolving relative
// process and bundle paths against the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving relative paths against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths BEFORE validation so existence checks see real files
	scenario.Process = resolve(basePath, scenario.Process)
	for i, dir := range scenario.Bundles {
		scenario.Bundles[i] = resolve(basePath, dir)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Process == "" {
		return fmt.Errorf("process is required")
	}
	if _, err := os.Stat(s.Process); os.IsNotExist(err) {
		return fmt.Errorf("process file not found: %s", s.Process)
	}

	for i, dir := range s.Bundles {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("bundles[%d]: directory not found: %s", i, dir)
		}
	}

	switch {
	case s.ExpectError != "" && len(s.Assertions) > 0:
		return fmt.Errorf("assertions cannot be combined with expect_error")
	case s.ExpectError == "" && len(s.Assertions) == 0:
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPlan:
		if len(a.Paths) == 0 {
			return fmt.Errorf("assertions[%d]: paths list is required for plan", index)
		}
	case AssertPathModules, AssertModuleOrder:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for %s", index, a.Type)
		}
		if len(a.Modules) == 0 {
			return fmt.Errorf("assertions[%d]: modules list is required for %s", index, a.Type)
		}
	case AssertParam:
		if a.Unit == "" || a.Field == "" {
			return fmt.Errorf("assertions[%d]: unit and field are required for param", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for param", index)
		}
	case AssertUnitAbsent:
		if a.Unit == "" {
			return fmt.Errorf("assertions[%d]: unit is required for unit_absent", index)
		}
	case AssertWarnings:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for warnings", index)
		}
	case AssertValidation:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
