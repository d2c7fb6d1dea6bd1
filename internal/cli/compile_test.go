package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/procfg/internal/ir"
	"github.com/roach88/procfg/internal/store"
)

var pgunProcess = filepath.Join("..", "..", "testdata", "processes", "pgun.cue")

const miniProcess = `package mini

process: {
	name:       "MINI"
	max_events: 5
	source: type: "EmptySource"
	units: {
		gen: {kind: "producer", type: "GenProducer"}
		out: {
			kind: "output"
			type: "PoolOutputModule"
			params: outputCommands: ["keep *"]
		}
	}
	paths: gen_step: "gen"
	endpaths: out_step: "out"
	schedule: ["gen_step", "out_step"]
}
`

// writeProcess writes a process file into a fresh temp dir.
func writeProcess(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "process.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCompilePGun(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{pgunProcess})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ Compiled RAW")
	assert.Contains(t, output, "generation_step (path)")
	assert.Contains(t, output, "RAWSIMoutput_step (endpath)")
	assert.Contains(t, output, "Global tag: POSTLS261_V3::All")
	assert.Regexp(t, `Hash: [0-9a-f]{64}`, output)

	// the end path is listed before main paths in the schedule
	assert.Contains(t, errBuf.String(), "warning: end path")
}

func TestCompilePGunJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{pgunProcess})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status   string            `json:"status"`
		Data     CompilationResult `json:"data"`
		Warnings []string          `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "RAW", resp.Data.Process)
	require.NotNil(t, resp.Data.Snapshot)
	assert.Equal(t, resp.Data.Hash, resp.Data.Snapshot.Hash)
	assert.Len(t, resp.Warnings, 1)
	assert.Empty(t, resp.Data.BuildID, "no build recorded without --db")
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "raw.json")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{pgunProcess, "-o", outputFile})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Wrote snapshot to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var snap ir.ProcessSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "RAW", snap.Name)
	assert.Equal(t, []string{
		"generation_step", "simulation_step", "digitisation_step", "L1simulation_step",
		"digi2raw_step", "L1TrackTrigger_step", "L1TTAssociator_step", "genfiltersummary_step",
		"endjob_step", "RAWSIMoutput_step",
	}, snap.Plan)
}

func TestCompileRecordsBuild(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "procfg.db")

	for i := 0; i < 2; i++ {
		rootOpts := &RootOptions{Format: "json", Database: dbPath}
		cmd := NewCompileCommand(rootOpts)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{pgunProcess})
		require.NoError(t, cmd.Execute())
	}

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	builds, err := st.ListBuilds(context.Background(), "RAW")
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.NotEqual(t, builds[0].ID, builds[1].ID)
	assert.Equal(t, builds[0].ProcessHash, builds[1].ProcessHash, "same input, same hash")
}

func TestCompileMiniProcess(t *testing.T) {
	path := writeProcess(t, miniProcess)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ Compiled MINI: 3 unit(s), 0 sequence(s), 2 path(s)")
}

func TestCompileNonExistentPath(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/process.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E005")
}

func TestCompileUnknownSection(t *testing.T) {
	path := writeProcess(t, `package bad

process: {
	name: "BAD"
	source: type: "EmptySource"
	bogus: 1
}
`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeProcess, resp.Error.Code)
	assert.Equal(t, "unknown section", resp.Error.Message)
}

func TestCompileDuplicateName(t *testing.T) {
	path := writeProcess(t, `package duplicate

process: {
	name: "DUP"
	source: type: "EmptySource"
	units: psim: {kind: "producer", type: "SimProducer"}
	sequences: psim: "psim"
}
`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [DUPLICATE_NAME]")
}

func TestCompileStrictSchedule(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Strict: true}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{pgunProcess})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "SCHEDULE_ORDER")
}

func TestCompileVerboseOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", Verbose: true}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{writeProcess(t, miniProcess)})

	require.NoError(t, cmd.Execute())

	// verbose lines stay off stdout so the JSON remains parseable
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Contains(t, errBuf.String(), "Loaded 1 file(s)")
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"cue", ErrCodeBuildFailed},
		{"process", ErrCodeProcess},
		{"process.name", ErrCodeName},
		{"process.max_events", ErrCodeMaxEvents},
		{"process.load[3]", ErrCodeLoad},
		{"process.units.gen.params.energy", ErrCodeUnits},
		{"process.psets.common", ErrCodeUnits},
		{"process.patches[0]", ErrCodePatches},
		{"process.sequences.psim", ErrCodeSequences},
		{"process.endpaths.out_step", ErrCodePaths},
		{"process.schedule[1]", ErrCodePaths},
		{"process.global_tag", ErrCodeGlobalTag},
		{"process.customize[0]", ErrCodeCustomize},
		{"process.bogus", ErrCodeProcess},
		{"elsewhere", ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}
