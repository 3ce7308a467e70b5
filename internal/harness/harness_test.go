package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/patch"
	"github.com/weftlabs/weft/internal/rule"
	"github.com/weftlabs/weft/internal/surface"
)

func advanceMS(v int64) *int64 { return &v }

// demoModules builds a fresh editing-surface module set: a core module
// exposing the mode, and selection tools layered on top of it.
func demoModules() []patch.Module {
	mode := "normal"
	selected := 0

	core := patch.Module{
		Name: "core",
		Rules: []rule.Rule{
			rule.Property("Editing.mode", func(*rule.Context) any { return mode }),
		},
	}
	selection := patch.Module{
		Name:      "selection-tools",
		DependsOn: []string{"core"},
		Rules: []rule.Rule{
			rule.FactoryProperty("Editing.enterSelectionMode", func(*rule.Context) any {
				return surface.Func(func(args ...any) any {
					mode = "select"
					selected = 0
					return mode
				})
			}),
			rule.Property("Editing.selectionCount", func(*rule.Context) any { return selected }),
			rule.FactoryProperty("Editing.select", func(*rule.Context) any {
				return surface.Func(func(args ...any) any {
					selected++
					return selected
				})
			}),
		},
	}
	return []patch.Module{core, selection}
}

func TestRunSelectionFlow(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "selection_flow.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario, demoModules())
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Trace, 8)

	// Modules enable in dependency order regardless of the declared order.
	assert.Equal(t, "core", result.Trace[0].Target)
	assert.Equal(t, "selection-tools", result.Trace[1].Target)
}

func TestRunLockTakeover(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "lock_takeover.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario, nil)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	// First acquire succeeds, the self-owned retry fails, the post-timeout
	// retry takes the stale lock over.
	first := result.Trace[0].Value.(map[string]any)
	assert.Equal(t, true, first["success"])

	retry := result.Trace[1].Value.(map[string]any)
	assert.Equal(t, false, retry["success"])
	assert.Equal(t, InstanceID, retry["current_owner"])

	takeover := result.Trace[3].Value.(map[string]any)
	assert.Equal(t, true, takeover["success"])
	assert.Equal(t, true, takeover["was_stale"])
}

func TestRunCollectsAssertionFailures(t *testing.T) {
	scenario := &Scenario{
		Name:        "failing",
		Description: "assertions that cannot hold",
		Modules:     []string{"core"},
		Steps: []Step{
			{Read: "Editing.mode"},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Step: StepRead, Target: "Editing.mode", Count: 2},
			{Type: AssertSurfaceValue, Path: "Editing.mode", Value: "select"},
			{Type: AssertLockOwner, Lock: "ghost", Owner: InstanceID},
		},
	}

	result, err := Run(scenario, demoModules())
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 3)
}

func TestRunUnknownModuleAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "broken",
		Description: "references a module nobody registered",
		Modules:     []string{"ghost"},
		Steps:       []Step{{AdvanceMS: advanceMS(1)}},
	}

	_, err := Run(scenario, demoModules())
	assert.Error(t, err)
}

func TestRunBadCallPathAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "broken-path",
		Description: "calls a method that does not exist",
		Steps:       []Step{{Call: "Editing.absent"}},
	}

	_, err := Run(scenario, demoModules())
	assert.Error(t, err)
}

func TestRunsAreIsolated(t *testing.T) {
	scenario := &Scenario{
		Name:        "isolation",
		Description: "lock state does not leak between runs",
		Steps: []Step{
			{Acquire: "x"},
		},
		Assertions: []Assertion{
			{Type: AssertLockOwner, Lock: "x", Owner: InstanceID},
		},
	}

	for i := 0; i < 2; i++ {
		result, err := Run(scenario, nil)
		require.NoError(t, err)
		require.True(t, result.Pass, "run %d errors: %v", i, result.Errors)

		acquired := result.Trace[0].Value.(map[string]any)
		assert.Equal(t, true, acquired["success"], "run %d must start with no locks", i)
	}
}
