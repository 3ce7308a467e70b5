package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/shared"
	"github.com/weftlabs/weft/internal/testutil"
)

// seedStore creates a store file holding one fresh lock and one stale
// lock in the "studio" namespace, and returns its path.
func seedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weft.db")

	storage, err := shared.OpenSQLite(path)
	require.NoError(t, err)
	defer storage.Close()

	manager := shared.NewManager(
		shared.WithNamespace("studio"),
		shared.WithStorage(storage),
		shared.WithIDGenerator(testutil.NewFixedIDGenerator("cli-1")),
	)
	_, err = manager.AcquireLock("render", map[string]any{"purpose": "render"})
	require.NoError(t, err)
	_, err = manager.AcquireLock("export", nil)
	require.NoError(t, err)

	// Backdate one lock far past any reasonable staleness timeout.
	err = storage.Update("studio", "0", func(ns *shared.Namespace) error {
		lock := ns.Locks["export"]
		lock.AcquiredAt = time.Now().Add(-time.Hour)
		ns.Locks["export"] = lock
		return nil
	})
	require.NoError(t, err)
	return path
}

// runLocksCmd executes a locks subcommand and returns its output and error.
func runLocksCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewLocksCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestLocksListShowsFreshLocks(t *testing.T) {
	path := seedStore(t)

	output, err := runLocksCmd(t, "text", "list", "--store", path, "--namespace", "studio")
	require.NoError(t, err)

	assert.Contains(t, output, "render")
	assert.Contains(t, output, "owner=cli-1")
	assert.NotContains(t, output, "export", "stale locks are excluded from listing")
}

func TestLocksListJSON(t *testing.T) {
	path := seedStore(t)

	output, err := runLocksCmd(t, "json", "list", "--store", path, "--namespace", "studio")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "studio", data["namespace"])
	locks := data["locks"].([]any)
	require.Len(t, locks, 1)
	lock := locks[0].(map[string]any)
	assert.Equal(t, "render", lock["name"])
	assert.Equal(t, "cli-1", lock["owner"])
}

func TestLocksListEmptyNamespace(t *testing.T) {
	path := seedStore(t)

	output, err := runLocksCmd(t, "text", "list", "--store", path, "--namespace", "other")
	require.NoError(t, err)
	assert.Contains(t, output, `No locks held in namespace "other"`)
}

func TestLocksCleanupRemovesStale(t *testing.T) {
	path := seedStore(t)

	output, err := runLocksCmd(t, "text", "cleanup", "--store", path, "--namespace", "studio")
	require.NoError(t, err)
	assert.Contains(t, output, `Removed 1 stale lock(s) from namespace "studio"`)

	// The stale lock is gone for good; the fresh one survives.
	storage, err := shared.OpenSQLite(path)
	require.NoError(t, err)
	defer storage.Close()
	err = storage.View("studio", func(ns *shared.Namespace) error {
		assert.NotContains(t, ns.Locks, "export")
		assert.Contains(t, ns.Locks, "render")
		return nil
	})
	require.NoError(t, err)
}

func TestLocksCleanupJSON(t *testing.T) {
	path := seedStore(t)

	output, err := runLocksCmd(t, "json", "cleanup", "--store", path, "--namespace", "studio")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["removed"])
}

func TestLocksRequiresStoreFlag(t *testing.T) {
	_, err := runLocksCmd(t, "text", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store")
}

func TestLocksBadStorePath(t *testing.T) {
	output, err := runLocksCmd(t, "text", "list", "--store", filepath.Join(t.TempDir(), "nope", "weft.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "E005")
}
