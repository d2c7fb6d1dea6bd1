package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/procfg/internal/cli"
)

func TestRunCompile(t *testing.T) {
	var out, errOut bytes.Buffer
	process := filepath.Join("..", "..", "testdata", "processes", "pgun.cue")

	err := run(&out, &errOut, []string{"compile", process})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "✓ Compiled RAW")
	assert.Contains(t, errOut.String(), "warning: end path")
}

func TestRunScenarios(t *testing.T) {
	var out, errOut bytes.Buffer
	scenarios := filepath.Join("..", "..", "testdata", "scenarios")

	err := run(&out, &errOut, []string{"test", scenarios})
	require.NoError(t, err, out.String())
	assert.Contains(t, out.String(), "✓ All scenarios passed")
}

func TestRunExitCodes(t *testing.T) {
	var out, errOut bytes.Buffer

	err := run(&out, &errOut, []string{"compile", "/nonexistent/process.cue"})
	require.Error(t, err)
	assert.Equal(t, cli.ExitCommandError, cli.GetExitCode(err))

	err = run(&out, &errOut, []string{"--format", "yaml", "tags", "list"})
	require.Error(t, err)
	assert.Equal(t, cli.ExitFailure, cli.GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}
