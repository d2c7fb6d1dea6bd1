package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/procfg/internal/conditions"
)

// runTags runs the tags command with args and returns stdout.
func runTags(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTagsCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTagsListBuiltin(t *testing.T) {
	out, err := runTags(t, &RootOptions{Format: "json"}, "list")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   []TagEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data, len(conditions.Builtin()))
	assert.Contains(t, resp.Data, TagEntry{Alias: "auto:mc", Tag: "START62_V1::All", Source: conditions.SourceBuiltin})
}

func TestTagsSetRequiresDatabase(t *testing.T) {
	out, err := runTags(t, &RootOptions{Format: "text"}, "set", "auto:mc", "MY_TAG")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E008]")
}

func TestTagsStoredAliasLifecycle(t *testing.T) {
	opts := &RootOptions{Format: "text", Database: filepath.Join(t.TempDir(), "tags.db")}

	out, err := runTags(t, opts, "set", "auto:mc", "MC_V9", "--comment", "reprocessing")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ auto:mc -> MC_V9")

	// stored aliases win over the builtin table
	out, err = runTags(t, opts, "resolve", "auto:mc")
	require.NoError(t, err)
	assert.Equal(t, "auto:mc -> MC_V9::All (store)\n", out)

	out, err = runTags(t, opts, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "# reprocessing")

	out, err = runTags(t, opts, "delete", "auto:mc")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Deleted auto:mc")

	out, err = runTags(t, opts, "resolve", "auto:mc")
	require.NoError(t, err)
	assert.Equal(t, "auto:mc -> START62_V1::All (builtin)\n", out)

	_, err = runTags(t, opts, "delete", "auto:mc")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestTagsResolveLiteral(t *testing.T) {
	out, err := runTags(t, &RootOptions{Format: "text"}, "resolve", "DESIGN_V1")
	require.NoError(t, err)
	assert.Equal(t, "DESIGN_V1 -> DESIGN_V1::All (literal)\n", out)
}

func TestTagsResolveUnknownAlias(t *testing.T) {
	out, err := runTags(t, &RootOptions{Format: "json"}, "resolve", "auto:nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}
