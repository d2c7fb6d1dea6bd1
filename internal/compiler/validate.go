package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/procfg/internal/conditions"
	"github.com/roach88/procfg/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// General validation errors (E200)
	ErrUnsupportedIRType = "E200" // unsupported IR type for validation

	// Process errors (E201-E209)
	ErrProcessName      = "E201" // process name missing or invalid
	ErrNoSource         = "E202" // no source unit
	ErrMaxEvents        = "E203" // zero events requested
	ErrGlobalTagMissing = "E204" // GlobalTag unit with no tag

	// Path errors (E210-E219)
	ErrEmptyPath         = "E210" // path runs no modules
	ErrRepeatedModule    = "E211" // module appears twice in one path
	ErrUnscheduledPath   = "E212" // path declared but missing from the schedule
	ErrUnknownScheduled  = "E213" // schedule names an unknown path
	ErrScheduleDuplicate = "E214" // schedule lists a path twice

	// Output errors (E220-E229)
	ErrOutputCommands = "E220" // output module without outputCommands
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a finalized snapshot for problems Finalize does not
// reject. Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch snap := v.(type) {
	case *ir.ProcessSnapshot:
		return validateSnapshot(snap)
	case ir.ProcessSnapshot:
		return validateSnapshot(&snap)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateSnapshot(s *ir.ProcessSnapshot) []ValidationError {
	var errs []ValidationError

	// E201: name
	if !ir.ValidName(s.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("invalid process name %q", s.Name),
			Code:    ErrProcessName,
		})
	}

	// E203: max events
	if s.MaxEvents == 0 {
		errs = append(errs, ValidationError{
			Field:   "max_events",
			Message: "max_events is 0; no events would be processed",
			Code:    ErrMaxEvents,
		})
	}

	errs = append(errs, validateUnits(s)...)
	errs = append(errs, validatePaths(s)...)
	errs = append(errs, validateSchedule(s)...)
	return errs
}

func validateUnits(s *ir.ProcessSnapshot) []ValidationError {
	var errs []ValidationError
	hasSource := false
	for _, u := range s.Units {
		switch u.Kind {
		case ir.UnitSource:
			hasSource = true
		case ir.UnitOutput:
			// E220: output commands
			v, ok := u.Params.Get("outputCommands")
			if _, isList := v.(ir.List); !ok || !isList {
				errs = append(errs, ValidationError{
					Field:   "units." + u.Name + ".outputCommands",
					Message: fmt.Sprintf("output module %q has no outputCommands list", u.Name),
					Code:    ErrOutputCommands,
				})
			}
		case ir.UnitESSource:
			// E204: global tag
			if u.Name != conditions.GlobalTagUnit {
				continue
			}
			v, _ := u.Params.Get(conditions.GlobalTagField)
			if tag, _ := v.(ir.String); strings.TrimSpace(string(tag)) == "" {
				errs = append(errs, ValidationError{
					Field:   "units." + u.Name + "." + conditions.GlobalTagField,
					Message: "GlobalTag is loaded but no global tag was set",
					Code:    ErrGlobalTagMissing,
				})
			}
		}
	}

	// E202: source
	if !hasSource {
		errs = append(errs, ValidationError{
			Field:   "source",
			Message: "process has no source",
			Code:    ErrNoSource,
		})
	}
	return errs
}

func validatePaths(s *ir.ProcessSnapshot) []ValidationError {
	var errs []ValidationError
	for _, p := range s.Paths {
		// E210: empty path
		if len(p.Modules) == 0 {
			errs = append(errs, ValidationError{
				Field:   "paths." + p.Name,
				Message: fmt.Sprintf("path %q runs no modules", p.Name),
				Code:    ErrEmptyPath,
			})
			continue
		}

		// E211: repeated module
		seen := make(map[string]bool, len(p.Modules))
		for _, m := range p.Modules {
			if seen[m] {
				errs = append(errs, ValidationError{
					Field:   "paths." + p.Name,
					Message: fmt.Sprintf("module %q runs more than once in path %q", m, p.Name),
					Code:    ErrRepeatedModule,
				})
			}
			seen[m] = true
		}
	}
	return errs
}

func validateSchedule(s *ir.ProcessSnapshot) []ValidationError {
	var errs []ValidationError
	scheduled := make(map[string]bool, len(s.Schedule))
	for i, name := range s.Schedule {
		field := fmt.Sprintf("schedule[%d]", i)
		// E214: duplicate
		if scheduled[name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("path %q is scheduled twice", name),
				Code:    ErrScheduleDuplicate,
			})
		}
		scheduled[name] = true

		// E213: unknown
		if _, ok := s.Path(name); !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("schedule names unknown path %q", name),
				Code:    ErrUnknownScheduled,
			})
		}
	}

	// E212: unscheduled
	var missing []string
	for _, p := range s.Paths {
		if !scheduled[p.Name] {
			missing = append(missing, p.Name)
		}
	}
	slices.Sort(missing)
	for _, name := range missing {
		errs = append(errs, ValidationError{
			Field:   "paths." + name,
			Message: fmt.Sprintf("path %q is declared but not scheduled", name),
			Code:    ErrUnscheduledPath,
		})
	}
	return errs
}
