package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/procfg/internal/ir"
	"github.com/roach88/procfg/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the JSON payload of a successful compile.
type CompilationResult struct {
	Process  string              `json:"process"`
	Hash     string              `json:"hash"`
	BuildID  string              `json:"build_id,omitempty"`
	BuildSeq int64               `json:"build_seq,omitempty"`
	Output   string              `json:"output,omitempty"`
	Snapshot *ir.ProcessSnapshot `json:"snapshot,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <process>",
		Short: "Build a process file into a canonical snapshot",
		Long: `Build a CUE process file (or a directory of them) into a finalized,
content-addressed process snapshot.

Bundles named in the process load section are looked up in --bundles
directories first and in the standard library second. With --db the
build is recorded in the history table and auto: global tags resolve
through stored aliases.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the snapshot to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	env, err := openEnvironment(opts.RootOptions, false)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer env.Close()

	built, err := env.build(cmd.Context(), path)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	snap := built.Snapshot
	formatter.VerboseLog("Loaded %d file(s) from %s", len(built.Source.Files), built.Source.Path)

	result := &CompilationResult{
		Process: snap.Name,
		Hash:    snap.Hash,
		Output:  opts.Output,
	}

	if env.store != nil {
		result.BuildID = store.UUIDv7Generator{}.Generate()
		seq, err := env.store.WriteBuild(cmd.Context(), result.BuildID, built.Source.Path, snap)
		if err != nil {
			return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeDatabase, Message: fmt.Sprintf("recording build: %v", err)})
		}
		result.BuildSeq = seq
		formatter.VerboseLog("Recorded build %s (seq %d)", result.BuildID, seq)
	}

	if opts.Output != "" {
		if err := writeSnapshotToFile(snap, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing output file: %v", err)})
		}
	} else {
		result.Snapshot = snap
	}

	return formatter.Render(result, snap.Warnings, func(w io.Writer) {
		outputCompileText(w, result, snap)
	})
}

// outputCompileText writes the human-readable compile summary.
func outputCompileText(w io.Writer, result *CompilationResult, snap *ir.ProcessSnapshot) {
	fmt.Fprintf(w, "✓ Compiled %s: %d unit(s), %d sequence(s), %d path(s)\n\n",
		snap.Name, len(snap.Units), len(snap.Sequences), len(snap.Paths))

	fmt.Fprintln(w, "Schedule:")
	for _, name := range snap.Plan {
		path, _ := snap.Path(name)
		kind := "path"
		if path.End {
			kind = "endpath"
		}
		fmt.Fprintf(w, "  %s (%s): %d module(s)\n", name, kind, len(path.Modules))
	}
	fmt.Fprintln(w)

	if snap.GlobalTag != "" {
		fmt.Fprintf(w, "Global tag: %s\n", snap.GlobalTag)
	}
	if len(snap.Customizations) > 0 {
		fmt.Fprintf(w, "Customizations: %d applied\n", len(snap.Customizations))
	}
	fmt.Fprintf(w, "Hash: %s\n", snap.Hash)
	if result.BuildID != "" {
		fmt.Fprintf(w, "Build: %s (#%d)\n", result.BuildID, result.BuildSeq)
	}
	if result.Output != "" {
		fmt.Fprintf(w, "Wrote snapshot to %s\n", result.Output)
	}
}

// writeSnapshotToFile writes the snapshot as indented JSON. The canonical
// form without indentation is only used for hashing.
func writeSnapshotToFile(snap *ir.ProcessSnapshot, filename string) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
