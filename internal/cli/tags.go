package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/procfg/internal/conditions"
	"github.com/roach88/procfg/internal/store"
)

// TagEntry is one row of the tags list output.
type TagEntry struct {
	Alias   string `json:"alias"`
	Tag     string `json:"tag"`
	Source  string `json:"source"`
	Comment string `json:"comment,omitempty"`
}

// NewTagsCommand creates the tags command and its subcommands.
func NewTagsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage global tag aliases",
		Long: `Manage the aliases that symbolic global tags (auto:...) resolve to.

Stored aliases (--db) take precedence over the builtin table. Tags
without the auto: prefix are used literally.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newTagsListCommand(rootOpts))
	cmd.AddCommand(newTagsSetCommand(rootOpts))
	cmd.AddCommand(newTagsDeleteCommand(rootOpts))
	cmd.AddCommand(newTagsResolveCommand(rootOpts))

	return cmd
}

func newTagsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List builtin and stored aliases",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			env, err := openEnvironment(rootOpts, false)
			if err != nil {
				return formatter.Fail(ExitCommandError, err)
			}
			defer env.Close()

			entries := make([]TagEntry, 0)
			for _, a := range conditions.Builtin() {
				entries = append(entries, TagEntry{Alias: a.Alias, Tag: a.Tag, Source: conditions.SourceBuiltin})
			}
			if env.store != nil {
				stored, err := env.store.ListAliases(cmd.Context())
				if err != nil {
					return formatter.Fail(ExitCommandError, databaseError(err))
				}
				for _, a := range stored {
					entries = append(entries, TagEntry{Alias: a.Alias, Tag: a.Tag, Source: conditions.SourceStore, Comment: a.Comment})
				}
			}

			return formatter.Render(entries, nil, func(w io.Writer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%-20s %-24s %s", e.Alias, e.Tag, e.Source)
					if e.Comment != "" {
						fmt.Fprintf(w, "  # %s", e.Comment)
					}
					fmt.Fprintln(w)
				}
			})
		},
	}
}

func newTagsSetCommand(rootOpts *RootOptions) *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:           "set <alias> <tag>",
		Short:         "Store an alias (requires --db)",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			env, err := openEnvironment(rootOpts, true)
			if err != nil {
				return formatter.Fail(ExitCommandError, err)
			}
			defer env.Close()

			alias := store.TagAlias{Alias: args[0], Tag: args[1], Comment: comment}
			if err := env.store.SetAlias(cmd.Context(), alias); err != nil {
				return formatter.Fail(ExitCommandError, databaseError(err))
			}
			entry := TagEntry{Alias: alias.Alias, Tag: alias.Tag, Source: conditions.SourceStore, Comment: comment}
			return formatter.Render(entry, nil, func(w io.Writer) {
				fmt.Fprintf(w, "✓ %s -> %s\n", alias.Alias, alias.Tag)
			})
		},
	}

	cmd.Flags().StringVar(&comment, "comment", "", "free-form note stored with the alias")

	return cmd
}

func newTagsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <alias>",
		Short:         "Remove a stored alias (requires --db)",
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

			if err := env.store.DeleteAlias(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return formatter.Fail(ExitFailure, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("alias not found: %s", args[0])})
				}
				return formatter.Fail(ExitCommandError, databaseError(err))
			}
			return formatter.Render(map[string]string{"deleted": args[0]}, nil, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Deleted %s\n", args[0])
			})
		},
	}
}

func newTagsResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "resolve <tag>",
		Short:         "Show the concrete tag a global tag resolves to",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			env, err := openEnvironment(rootOpts, false)
			if err != nil {
				return formatter.Fail(ExitCommandError, err)
			}
			defer env.Close()

			var aliases conditions.Aliases
			if env.store != nil {
				aliases = env.store
			}
			res, err := conditions.NewResolver(aliases).Resolve(cmd.Context(), args[0])
			if err != nil {
				return formatter.Fail(ExitFailure, err)
			}
			return formatter.Render(res, nil, func(w io.Writer) {
				fmt.Fprintf(w, "%s -> %s (%s)\n", res.Requested, res.Tag, res.Source)
			})
		},
	}
}

// newFormatter builds the formatter shared by the small commands.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func databaseError(err error) error {
	return &LoadError{Code: ErrCodeDatabase, Message: err.Error()}
}
