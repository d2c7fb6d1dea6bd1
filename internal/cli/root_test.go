package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "procfg", cmd.Use)
	assert.Contains(t, cmd.Long, "content-addressed")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "graph", "tags", "history", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"db", "strict", "bundles"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	outputFlag := compileCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
}

func TestTagsSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"list", "set", "delete", "resolve"} {
		sub, _, err := cmd.Find([]string{"tags", name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	setCmd, _, err := cmd.Find([]string{"tags", "set"})
	require.NoError(t, err)
	require.NotNil(t, setCmd.Flags().Lookup("comment"))
}

func TestHistoryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	historyCmd, _, err := cmd.Find([]string{"history"})
	require.NoError(t, err)

	hashFlag := historyCmd.Flags().Lookup("hash")
	require.NotNil(t, hashFlag)
	assert.Equal(t, "", hashFlag.DefValue)

	showCmd, _, err := cmd.Find([]string{"history", "show"})
	require.NoError(t, err)
	assert.Equal(t, "show", showCmd.Name())
}

func TestGraphCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	graphCmd, _, err := cmd.Find([]string{"graph"})
	require.NoError(t, err)

	rankdirFlag := graphCmd.Flags().Lookup("rankdir")
	require.NotNil(t, rankdirFlag)
	assert.Equal(t, "LR", rankdirFlag.DefValue)
	require.NotNil(t, graphCmd.Flags().Lookup("output"))
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
}

func TestCommandHelp(t *testing.T) {
	cmd := NewRootCommand()

	// Verify help text contains key elements
	assert.Contains(t, cmd.Short, "process configuration")
	assert.Contains(t, cmd.Long, "HCL bundles")
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "compile", "."})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestBundlePathFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(BundlePathEnv, dir)

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"tags", "list"})
	require.NoError(t, cmd.Execute())

	listCmd, _, err := cmd.Find([]string{"tags", "list"})
	require.NoError(t, err)
	bundles, err := listCmd.Flags().GetStringSlice("bundles")
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, bundles)
}

func TestRootCommandRunsSubcommand(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "json", "tags", "resolve", "auto:mc"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), `"tag": "START62_V1::All"`)
}
