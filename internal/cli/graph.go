package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/procfg/internal/drawer"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Output  string // output file path
	RankDir string // graphviz rankdir
}

// GraphResult is the JSON payload of the graph command.
type GraphResult struct {
	Process string `json:"process"`
	Output  string `json:"output,omitempty"`
	DOT     string `json:"dot,omitempty"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph <process>",
		Short: "Render the schedule of a process as a DOT graph",
		Long: `Build a process file and render its schedule as a Graphviz DOT
digraph: paths in execution order, the sequences they reach and the
modules at the leaves.

Examples:
  procfg graph process.cue | dot -Tsvg > process.svg
  procfg graph process.cue -o process.dot --rankdir TB`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the graph to this file")
	cmd.Flags().StringVar(&opts.RankDir, "rankdir", "LR", "graph direction (LR|TB|RL|BT)")

	return cmd
}

func runGraph(opts *GraphOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
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

	d := drawer.NewDOTDrawer(drawer.GraphAttribute("rankdir", opts.RankDir))
	if err := drawer.Process(d, built.Snapshot); err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	var buf bytes.Buffer
	if err := d.Draw(&buf); err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	result := &GraphResult{Process: built.Snapshot.Name, Output: opts.Output}
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, buf.Bytes(), 0644); err != nil {
			return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing output file: %v", err)})
		}
	} else {
		result.DOT = buf.String()
	}

	return formatter.Render(result, built.Snapshot.Warnings, func(w io.Writer) {
		if opts.Output != "" {
			fmt.Fprintf(w, "✓ Wrote graph of %s to %s\n", result.Process, opts.Output)
			return
		}
		_, _ = w.Write(buf.Bytes())
	})
}
