package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/procfg/internal/ir"
	"github.com/roach88/procfg/internal/store"
)

// BuildEntry is one row of the history output.
type BuildEntry struct {
	ID      string `json:"id"`
	Seq     int64  `json:"seq"`
	Process string `json:"process"`
	Source  string `json:"source"`
	Hash    string `json:"hash"`
}

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Hash string // only builds with this content hash
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [process-name]",
		Short: "List recorded builds (requires --db)",
		Long: `List the builds recorded by compile --db, oldest first.

Builds with the same hash produced identical snapshots, so --hash finds
every source that assembled to a given configuration.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			return runHistory(opts, name, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Hash, "hash", "", "only builds with this snapshot hash")
	cmd.AddCommand(newHistoryShowCommand(rootOpts))

	return cmd
}

func runHistory(opts *HistoryOptions, processName string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	env, err := openEnvironment(opts.RootOptions, true)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer env.Close()

	builds, err := env.store.ListBuilds(cmd.Context(), processName)
	if err != nil {
		return formatter.Fail(ExitCommandError, databaseError(err))
	}

	var keep map[string]bool
	if opts.Hash != "" {
		ids, err := env.store.BuildsByHash(cmd.Context(), opts.Hash)
		if err != nil {
			return formatter.Fail(ExitCommandError, databaseError(err))
		}
		keep = make(map[string]bool, len(ids))
		for _, id := range ids {
			keep[id] = true
		}
	}

	entries := make([]BuildEntry, 0, len(builds))
	for _, b := range builds {
		if keep != nil && !keep[b.ID] {
			continue
		}
		entries = append(entries, BuildEntry{
			ID:      b.ID,
			Seq:     b.Seq,
			Process: b.ProcessName,
			Source:  b.Source,
			Hash:    b.ProcessHash,
		})
	}

	return formatter.Render(entries, nil, func(w io.Writer) {
		if len(entries) == 0 {
			fmt.Fprintln(w, "No builds recorded.")
			return
		}
		for _, e := range entries {
			fmt.Fprintf(w, "#%-4d %s  %-12s %s  %s\n", e.Seq, e.ID, e.Process, shortHash(e.Hash), e.Source)
		}
	})
}

func newHistoryShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <build-id|process-name>",
		Short: "Print a recorded snapshot",
		Long: `Print the snapshot of a recorded build. The argument is tried as a
build id first; otherwise the latest build of that process is shown.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			env, err := openEnvironment(rootOpts, true)
			if err != nil {
				return formatter.Fail(ExitCommandError, err)
			}
			defer env.Close()

			b, err := env.store.ReadBuild(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				b, err = env.store.LatestBuild(cmd.Context(), args[0])
			}
			if errors.Is(err, store.ErrNotFound) {
				return formatter.Fail(ExitFailure, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("no build or process named %s", args[0])})
			}
			if err != nil {
				return formatter.Fail(ExitCommandError, databaseError(err))
			}

			return formatter.Render(b.Snapshot, nil, func(w io.Writer) {
				outputSnapshotText(w, b)
			})
		},
	}
}

func outputSnapshotText(w io.Writer, b store.Build) {
	snap := b.Snapshot
	fmt.Fprintf(w, "Build %s (#%d) from %s\n", b.ID, b.Seq, b.Source)
	fmt.Fprintf(w, "Process %s, hash %s\n\n", snap.Name, snap.Hash)
	for _, name := range snap.Plan {
		path, _ := snap.Path(name)
		fmt.Fprintf(w, "%s:\n", name)
		for _, m := range path.Modules {
			fmt.Fprintf(w, "  %s%s\n", m, unitSuffix(snap, m))
		}
	}
}

func unitSuffix(snap *ir.ProcessSnapshot, name string) string {
	u, ok := snap.Unit(name)
	if !ok {
		return ""
	}
	return fmt.Sprintf(" (%s %s)", u.Kind, u.Type)
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}
