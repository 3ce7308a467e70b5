package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerAll(t *testing.T, e *Engine, modules ...Module) {
	t.Helper()
	for _, m := range modules {
		require.NoError(t, e.Register(m))
	}
}

func TestResolveOrderDependenciesFirst(t *testing.T) {
	e := NewEngine()
	registerAll(t, e,
		Module{Name: "a"},
		Module{Name: "b", DependsOn: []string{"a"}},
		Module{Name: "c", DependsOn: []string{"a"}},
	)

	order, err := e.ResolveOrder([]string{"b", "c", "a"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestResolveOrderDeterministic(t *testing.T) {
	e := NewEngine()
	registerAll(t, e,
		Module{Name: "a"},
		Module{Name: "b"},
		Module{Name: "c"},
	)

	// No dependencies: requested order is preserved.
	order, err := e.ResolveOrder([]string{"c", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, order)
}

func TestResolveOrderChain(t *testing.T) {
	e := NewEngine()
	registerAll(t, e,
		Module{Name: "a"},
		Module{Name: "b", DependsOn: []string{"a"}},
		Module{Name: "c", DependsOn: []string{"b"}},
	)

	order, err := e.ResolveOrder([]string{"c", "b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestResolveOrderDuplicateRequest(t *testing.T) {
	e := NewEngine()
	registerAll(t, e,
		Module{Name: "a"},
		Module{Name: "b", DependsOn: []string{"a"}},
	)

	// A repeated name collapses to its first occurrence and must not be
	// misread as a dependency cycle.
	order, err := e.ResolveOrder([]string{"a", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestResolveOrderCycle(t *testing.T) {
	e := NewEngine()
	registerAll(t, e,
		Module{Name: "a", DependsOn: []string{"b"}},
		Module{Name: "b", DependsOn: []string{"a"}},
	)

	_, err := e.ResolveOrder([]string{"a", "b"})
	require.Error(t, err)
	assert.True(t, IsCyclicDependency(err))

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.GreaterOrEqual(t, len(re.Cycle), 3, "cycle path should close on itself")
	assert.Equal(t, re.Cycle[0], re.Cycle[len(re.Cycle)-1])
}

func TestResolveOrderSelfCycle(t *testing.T) {
	e := NewEngine()
	registerAll(t, e, Module{Name: "a", DependsOn: []string{"a"}})

	_, err := e.ResolveOrder([]string{"a"})
	assert.True(t, IsCyclicDependency(err))
}

func TestResolveOrderMissingDependency(t *testing.T) {
	e := NewEngine()
	registerAll(t, e,
		Module{Name: "a"},
		Module{Name: "b", DependsOn: []string{"a"}},
	)

	// "a" is registered but not in the requested set.
	_, err := e.ResolveOrder([]string{"b"})
	require.Error(t, err)
	assert.True(t, IsMissingDependency(err))

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "b", re.Module)
	assert.Equal(t, "a", re.Dependency)
}

func TestResolveOrderUnknownModule(t *testing.T) {
	e := NewEngine()

	_, err := e.ResolveOrder([]string{"ghost"})
	assert.True(t, IsMissingDependency(err))
}
