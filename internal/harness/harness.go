package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/procfg/internal/bundle"
	"github.com/roach88/procfg/internal/compiler"
	"github.com/roach88/procfg/internal/conditions"
	"github.com/roach88/procfg/internal/customs"
	"github.com/roach88/procfg/internal/ir"
	"github.com/roach88/procfg/internal/process"
	"github.com/roach88/procfg/internal/store"
	"github.com/roach88/procfg/internal/testutil"
)

// Harness is the test execution environment for one scenario.
type Harness struct {
	store    *store.Store
	compiler *compiler.Compiler
	ids      *testutil.SequentialIDGenerator
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database and seed global tag aliases
// 2. Compile the process file and apply its customizations
// 3. Finalize the snapshot and record it as a build
// 4. Check the build outcome against expect_error
// 5. Evaluate assertions and return the result
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	for _, alias := range ir.SortedKeys(scenario.GlobalTags) {
		err := st.SetAlias(ctx, store.TagAlias{
			Alias:   alias,
			Tag:     scenario.GlobalTags[alias],
			Comment: "scenario " + scenario.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to seed global tag %s: %w", alias, err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		store: st,
		compiler: &compiler.Compiler{
			Loader:     bundle.NewDefaultCatalog(scenario.Bundles...),
			Customs:    customs.NewRegistry(),
			Conditions: conditions.NewResolver(st),
			Clock:      testutil.NewDeterministicClock(),
			Logger:     logger,
		},
		ids:    testutil.NewSequentialIDGenerator("build"),
		logger: logger,
	}

	src, err := compiler.LoadPath(scenario.Process)
	if err != nil {
		return nil, fmt.Errorf("failed to load process: %w", err)
	}

	result := NewResult()
	snap, err := h.build(ctx, src, scenario.Strict)
	if err != nil {
		result.ErrorCode = string(process.CodeOf(err))
		result.BuildError = err.Error()
		switch {
		case scenario.ExpectError == "":
			result.AddError(fmt.Sprintf("build failed: %v", err))
		case result.ErrorCode != scenario.ExpectError:
			result.AddError(fmt.Sprintf("expected error %s, got %q: %v", scenario.ExpectError, result.ErrorCode, err))
		}
		return result, nil
	}

	result.Snapshot = snap
	result.Validation = compiler.Validate(snap)
	if scenario.ExpectError != "" {
		result.AddError(fmt.Sprintf("expected error %s, build succeeded", scenario.ExpectError))
		return result, nil
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// build compiles, finalizes and records the process.
func (h *Harness) build(ctx context.Context, src *compiler.Source, strict bool) (*ir.ProcessSnapshot, error) {
	p, err := h.compiler.Compile(ctx, src.Process)
	if err != nil {
		return nil, err
	}
	snap, err := p.Finalize(process.FinalizeOptions{Strict: strict})
	if err != nil {
		return nil, err
	}

	id := h.ids.Generate()
	seq, err := h.store.WriteBuild(ctx, id, src.Path, snap)
	if err != nil {
		return nil, fmt.Errorf("record build: %w", err)
	}
	h.logger.Info("scenario build recorded",
		"build_id", id,
		"seq", seq,
		"process", snap.Name,
		"hash", snap.Hash,
	)
	return snap, nil
}
