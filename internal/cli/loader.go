package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/procfg/internal/bundle"
	"github.com/roach88/procfg/internal/compiler"
	"github.com/roach88/procfg/internal/conditions"
	"github.com/roach88/procfg/internal/customs"
	"github.com/roach88/procfg/internal/ir"
	"github.com/roach88/procfg/internal/process"
	"github.com/roach88/procfg/internal/store"
)

// LoadError represents an error that occurred before compilation started.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// environment is everything a command needs to build processes: the bundle
// catalog, the customization registry and, with --db, the sqlite store.
type environment struct {
	opts     *RootOptions
	store    *store.Store
	catalog  *bundle.Catalog
	compiler *compiler.Compiler
	logger   *slog.Logger
}

// openEnvironment prepares a build environment. The store is opened only
// when --db is set; requireDB turns a missing --db into a command error.
func openEnvironment(opts *RootOptions, requireDB bool) (*environment, error) {
	env := &environment{
		opts:    opts,
		catalog: bundle.NewDefaultCatalog(opts.Bundles...),
		logger:  slog.Default(),
	}

	var aliases conditions.Aliases
	switch {
	case opts.Database != "":
		st, err := store.Open(opts.Database)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeDatabase, Message: fmt.Sprintf("opening database %s: %v", opts.Database, err)}
		}
		env.store = st
		aliases = st
	case requireDB:
		return nil, &LoadError{Code: ErrCodeDatabase, Message: "--db is required for this command"}
	}

	env.compiler = &compiler.Compiler{
		Loader:     env.catalog,
		Customs:    customs.NewRegistry(),
		Conditions: conditions.NewResolver(aliases),
		Logger:     env.logger,
	}
	return env, nil
}

// Close releases the store, if one was opened.
func (e *environment) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// BuildResult is a finalized process together with where it came from.
type BuildResult struct {
	Source   *compiler.Source
	Snapshot *ir.ProcessSnapshot
}

// build loads, compiles and finalizes the process at path.
func (e *environment) build(ctx context.Context, path string) (*BuildResult, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("process not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
	}

	src, err := compiler.LoadPath(path)
	if err != nil {
		var compileErr *compiler.CompileError
		if errors.As(err, &compileErr) {
			return nil, err
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	e.logger.Debug("process loaded", "path", path, "files", len(src.Files))

	p, err := e.compiler.Compile(ctx, src.Process)
	if err != nil {
		return nil, err
	}
	snap, err := p.Finalize(process.FinalizeOptions{Strict: e.opts.Strict})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("process finalized",
		"process", snap.Name,
		"units", len(snap.Units),
		"paths", len(snap.Paths),
		"hash", snap.Hash,
	)
	return &BuildResult{Source: src, Snapshot: snap}, nil
}

// Error code constants - unified across all CLI commands. Configuration
// errors raised while assembling a process keep their own codes
// (DUPLICATE_NAME, NOT_FOUND, ...).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeDatabase    = "E008" // Database unavailable

	// Process file errors, one per section
	ErrCodeProcess   = "E100" // Malformed process struct or unknown section
	ErrCodeName      = "E101" // name
	ErrCodeMaxEvents = "E102" // max_events
	ErrCodeLoad      = "E103" // load
	ErrCodeSource    = "E104" // source
	ErrCodeUnits     = "E105" // units, psets
	ErrCodePatches   = "E106" // patches, seeds
	ErrCodeSequences = "E107" // sequences, removes
	ErrCodePaths     = "E108" // paths, endpaths, schedule, gate
	ErrCodeGlobalTag = "E109" // global_tag
	ErrCodeCustomize = "E110" // customize
)

var sectionCodes = map[string]string{
	"name":       ErrCodeName,
	"max_events": ErrCodeMaxEvents,
	"load":       ErrCodeLoad,
	"source":     ErrCodeSource,
	"units":      ErrCodeUnits,
	"psets":      ErrCodeUnits,
	"patches":    ErrCodePatches,
	"seeds":      ErrCodePatches,
	"sequences":  ErrCodeSequences,
	"removes":    ErrCodeSequences,
	"paths":      ErrCodePaths,
	"endpaths":   ErrCodePaths,
	"schedule":   ErrCodePaths,
	"gate":       ErrCodePaths,
	"global_tag": ErrCodeGlobalTag,
	"customize":  ErrCodeCustomize,
}

// MapFieldToErrorCode maps a compiler error field such as
// "process.units.a.params.x" or "process.patches[2]" to an error code.
func MapFieldToErrorCode(field string) string {
	if field == "cue" {
		return ErrCodeBuildFailed
	}
	rest, ok := strings.CutPrefix(field, "process.")
	if !ok {
		if field == "process" {
			return ErrCodeProcess
		}
		return ErrCodeGeneric
	}
	section := rest
	if i := strings.IndexAny(rest, ".["); i >= 0 {
		section = rest[:i]
	}
	if code, ok := sectionCodes[section]; ok {
		return code
	}
	return ErrCodeProcess
}

// describeError picks the code, message and details shown for err.
// Configuration error codes win over field codes so scripts can tell a
// duplicate name from a typo in the same section.
func describeError(err error) (string, string, interface{}) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message, positionDetails(loadErr.Pos, "")
	}

	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		code := MapFieldToErrorCode(compileErr.Field)
		if c := process.CodeOf(err); c != "" {
			code = string(c)
		}
		return code, compileErr.Message, positionDetails(compileErr.Pos, compileErr.Field)
	}

	var configErr *process.ConfigError
	if errors.As(err, &configErr) {
		var details interface{}
		if len(configErr.Names) > 0 {
			details = map[string]interface{}{"names": configErr.Names}
		}
		return string(configErr.Code), err.Error(), details
	}

	return ErrCodeGeneric, err.Error(), nil
}

func positionDetails(pos token.Pos, field string) interface{} {
	details := map[string]interface{}{}
	if field != "" {
		details["field"] = field
	}
	if pos.IsValid() {
		details["file"] = pos.Filename()
		details["line"] = pos.Line()
		details["column"] = pos.Column()
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
