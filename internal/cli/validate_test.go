package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runValidateCmd executes the validate command against a path and returns
// the captured output and execution error.
func runValidateCmd(t *testing.T, format, path string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{path})
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateValidManifest(t *testing.T) {
	output, err := runValidateCmd(t, "text", filepath.Join("testdata", "valid.cue"))
	require.NoError(t, err)

	assert.Contains(t, output, `✓ Manifest "demo" valid`)
	assert.Contains(t, output, "Install order: core, overlay")
}

func TestValidateValidManifestJSON(t *testing.T) {
	output, err := runValidateCmd(t, "json", filepath.Join("testdata", "valid.cue"))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, []any{"core", "overlay"}, data["order"])
}

func TestValidateCyclicManifest(t *testing.T) {
	output, err := runValidateCmd(t, "text", filepath.Join("testdata", "cycle.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "CYCLIC_DEPENDENCY")
}

func TestValidateMissingDependency(t *testing.T) {
	output, err := runValidateCmd(t, "text", filepath.Join("testdata", "missing_dep.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "MISSING_DEPENDENCY")
	assert.Contains(t, output, "ghost")
}

func TestValidateMissingFile(t *testing.T) {
	output, err := runValidateCmd(t, "text", filepath.Join("testdata", "absent.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "E005")
}

func TestValidateDirectory(t *testing.T) {
	// A manifest split across files loads as one instance.
	dir := filepath.Join("..", "manifest", "testdata", "project")
	output, err := runValidateCmd(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, output, `✓ Manifest "split" valid`)
}

func TestValidateVerboseOutput(t *testing.T) {
	outBuf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Verbose: true}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{filepath.Join("testdata", "valid.cue")})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errBuf.String(), "2 module(s)")
}
