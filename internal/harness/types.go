package harness

import (
	"github.com/roach88/procfg/internal/compiler"
	"github.com/roach88/procfg/internal/ir"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the build outcome and all assertions match.
	Pass bool `json:"pass"`

	// Snapshot is the finalized process. Nil when the build failed.
	Snapshot *ir.ProcessSnapshot `json:"-"`

	// ErrorCode is the configuration error code when the build failed.
	ErrorCode string `json:"error_code,omitempty"`

	// BuildError is the message of the build failure, if any.
	BuildError string `json:"build_error,omitempty"`

	// Validation lists the findings of compiler.Validate on the snapshot.
	Validation []compiler.ValidationError `json:"validation,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
