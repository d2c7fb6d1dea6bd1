package process

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError is a fatal configuration assembly error.
//
// ConfigError includes structured fields for diagnostics:
//   - Name is the offending unit, sequence or path
//   - Names lists every offender when there is more than one
//   - Hook names the customization that failed
//   - Err is the underlying cause, if any
type ConfigError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	Name  string
	Names []string
	Hook  string

	Err error
}

// ErrorCode categorizes configuration errors.
type ErrorCode string

const (
	// ErrCodeDuplicateName indicates a name registered twice or repeated in
	// the schedule.
	ErrCodeDuplicateName ErrorCode = "DUPLICATE_NAME"

	// ErrCodeNotFound indicates a reference to or removal of an unknown name.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeUnresolvedPlaceholder indicates placeholders that were never
	// registered before finalization.
	ErrCodeUnresolvedPlaceholder ErrorCode = "UNRESOLVED_PLACEHOLDER"

	// ErrCodeCustomization indicates a failing customization hook.
	ErrCodeCustomization ErrorCode = "CUSTOMIZATION_FAILED"

	// ErrCodeCycle indicates a sequence that would contain itself.
	ErrCodeCycle ErrorCode = "CYCLE"

	// ErrCodePlacement indicates a unit in a path kind that cannot hold it.
	ErrCodePlacement ErrorCode = "PLACEMENT"

	// ErrCodeScheduleOrder indicates an end path scheduled before a main path.
	ErrCodeScheduleOrder ErrorCode = "SCHEDULE_ORDER"

	// ErrCodeTypeMismatch indicates a parameter operation on the wrong kind.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeInvalid indicates a malformed declaration.
	ErrCodeInvalid ErrorCode = "INVALID"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the outermost ConfigError in err's chain, or ""
// when there is none.
func CodeOf(err error) ErrorCode {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// hasCode walks nested ConfigErrors, so a NotFound raised inside a
// customization is still reported by IsNotFound.
func hasCode(err error, code ErrorCode) bool {
	for err != nil {
		var ce *ConfigError
		if !errors.As(err, &ce) {
			return false
		}
		if ce.Code == code {
			return true
		}
		err = ce.Err
	}
	return false
}

// IsDuplicateName reports whether err is a duplicate name error.
func IsDuplicateName(err error) bool { return hasCode(err, ErrCodeDuplicateName) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsUnresolvedPlaceholder reports whether err is an unresolved placeholder error.
func IsUnresolvedPlaceholder(err error) bool { return hasCode(err, ErrCodeUnresolvedPlaceholder) }

// IsCustomization reports whether err came from a customization hook.
func IsCustomization(err error) bool { return hasCode(err, ErrCodeCustomization) }

// IsCycle reports whether err is a cycle error.
func IsCycle(err error) bool { return hasCode(err, ErrCodeCycle) }

// IsPlacement reports whether err is a placement error.
func IsPlacement(err error) bool { return hasCode(err, ErrCodePlacement) }

// IsScheduleOrder reports whether err is a schedule ordering error.
func IsScheduleOrder(err error) bool { return hasCode(err, ErrCodeScheduleOrder) }

// IsTypeMismatch reports whether err is a parameter type error.
func IsTypeMismatch(err error) bool { return hasCode(err, ErrCodeTypeMismatch) }

// NewDuplicateNameError reports name as already taken by what.
func NewDuplicateNameError(name, what string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeDuplicateName,
		Message: fmt.Sprintf("%q is already declared as a %s", name, what),
		Name:    name,
	}
}

// NewNotFoundError reports name as unknown in the given context.
func NewNotFoundError(name, context string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%q not found in %s", name, context),
		Name:    name,
	}
}

// NewUnresolvedPlaceholderError lists every placeholder left unresolved.
func NewUnresolvedPlaceholderError(names []string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeUnresolvedPlaceholder,
		Message: fmt.Sprintf("unresolved placeholders: %s", strings.Join(names, ", ")),
		Names:   names,
	}
}

// NewCustomizationError wraps the failure of hook.
func NewCustomizationError(hook string, cause error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeCustomization,
		Message: fmt.Sprintf("customization %q failed", hook),
		Hook:    hook,
		Err:     cause,
	}
}

// NewCycleError reports that adding ref to seq would make seq contain itself.
func NewCycleError(seq, ref string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeCycle,
		Message: fmt.Sprintf("sequence %q would contain itself through %q", seq, ref),
		Name:    seq,
		Names:   []string{seq, ref},
	}
}

func newTypeMismatchError(unit, field string, cause error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeTypeMismatch,
		Message: fmt.Sprintf("unit %q field %q", unit, field),
		Name:    unit,
		Err:     cause,
	}
}

func newInvalidError(name, format string, args ...any) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalid,
		Message: fmt.Sprintf(format, args...),
		Name:    name,
	}
}
