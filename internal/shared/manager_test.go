package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/testutil"
)

// newPair wires two managers onto one fresh storage location and one manual
// clock, simulating two independently loaded instances in one process.
func newPair(t *testing.T, timeout time.Duration) (*Manager, *Manager, *testutil.ManualClock) {
	t.Helper()
	storage := NewMemoryStorage()
	clock := testutil.NewManualClock()
	m1 := NewManager(
		WithNamespace("ns1"),
		WithStaleLockTimeout(timeout),
		WithStorage(storage),
		WithClock(clock),
		WithIDGenerator(testutil.NewFixedIDGenerator("instance-1")),
	)
	m2 := NewManager(
		WithNamespace("ns1"),
		WithStaleLockTimeout(timeout),
		WithStorage(storage),
		WithClock(clock),
		WithIDGenerator(testutil.NewFixedIDGenerator("instance-2")),
	)
	return m1, m2, clock
}

func TestAcquireFreshLock(t *testing.T) {
	m1, _, _ := newPair(t, time.Second)

	res, err := m1.AcquireLock("x", nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.WasStale)

	held, err := m1.HasLock("x")
	require.NoError(t, err)
	assert.True(t, held)
}

func TestAcquireContention(t *testing.T) {
	m1, m2, _ := newPair(t, time.Second)

	_, err := m1.AcquireLock("x", nil)
	require.NoError(t, err)

	res, err := m2.AcquireLock("x", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "instance-1", res.CurrentOwnerID)

	// Nothing was mutated: instance-1 still holds.
	held, _ := m1.HasLock("x")
	assert.True(t, held)
}

func TestStaleTakeover(t *testing.T) {
	m1, m2, clock := newPair(t, 100*time.Millisecond)

	_, err := m1.AcquireLock("x", nil)
	require.NoError(t, err)

	clock.Advance(150 * time.Millisecond)

	res, err := m2.AcquireLock("x", nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.WasStale)

	// The previous holder no longer owns the lock.
	released, err := m1.ReleaseLock("x")
	require.NoError(t, err)
	assert.False(t, released)

	held, _ := m2.HasLock("x")
	assert.True(t, held)
}

func TestEndToEndTakeoverScenario(t *testing.T) {
	// Namespace "ns1", timeout 100ms, two instances, per the coordination
	// contract: contention, then stale takeover, then failed release.
	m1, m2, clock := newPair(t, 100*time.Millisecond)

	res, err := m1.AcquireLock("x", nil)
	require.NoError(t, err)
	assert.Equal(t, AcquireResult{Success: true, WasStale: false}, res)

	res, err = m2.AcquireLock("x", nil)
	require.NoError(t, err)
	assert.Equal(t, AcquireResult{Success: false, CurrentOwnerID: "instance-1"}, res)

	clock.Advance(150 * time.Millisecond)

	res, err = m2.AcquireLock("x", nil)
	require.NoError(t, err)
	assert.Equal(t, AcquireResult{Success: true, WasStale: true}, res)

	released, err := m1.ReleaseLock("x")
	require.NoError(t, err)
	assert.False(t, released)
}

func TestAcquireHeldBySelf(t *testing.T) {
	m1, _, _ := newPair(t, time.Second)

	_, err := m1.AcquireLock("x", nil)
	require.NoError(t, err)

	// A still-fresh lock is not re-acquired, own lock included; the result
	// names the holder.
	res, err := m1.AcquireLock("x", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "instance-1", res.CurrentOwnerID)
}

func TestReleaseUnownedIsNoOp(t *testing.T) {
	m1, m2, _ := newPair(t, time.Second)

	released, err := m1.ReleaseLock("absent")
	require.NoError(t, err)
	assert.False(t, released)

	_, err = m2.AcquireLock("x", nil)
	require.NoError(t, err)
	released, err = m1.ReleaseLock("x")
	require.NoError(t, err)
	assert.False(t, released)

	held, _ := m2.HasLock("x")
	assert.True(t, held, "foreign release attempt must not disturb the lock")
}

func TestStaleLockReportsUnheld(t *testing.T) {
	m1, m2, clock := newPair(t, 100*time.Millisecond)

	_, err := m1.AcquireLock("x", map[string]any{"purpose": "singleton"})
	require.NoError(t, err)

	info, found, err := m2.GetLockInfo("x")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "instance-1", info.OwnerID)
	assert.Equal(t, "singleton", info.Metadata["purpose"])
	assert.False(t, info.OwnedBySelf)

	clock.Advance(200 * time.Millisecond)

	held, _ := m1.HasLock("x")
	assert.False(t, held, "a stale lock is held by no one, its owner included")
	anyHeld, _ := m1.IsLockHeld("x")
	assert.False(t, anyHeld)
	_, found, err = m1.GetLockInfo("x")
	require.NoError(t, err)
	assert.False(t, found)

	names, _ := m1.ListLocks()
	assert.Empty(t, names, "stale locks are excluded from listing")
}

func TestReleaseAllLocksOwnOnly(t *testing.T) {
	m1, m2, _ := newPair(t, time.Minute)

	for _, name := range []string{"a", "b", "c"} {
		_, err := m1.AcquireLock(name, nil)
		require.NoError(t, err)
	}
	_, err := m2.AcquireLock("theirs", nil)
	require.NoError(t, err)

	count, err := m1.ReleaseAllLocks()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	names, _ := m2.ListLocks()
	assert.Equal(t, []string{"theirs"}, names)
}

func TestCleanupStaleLocksIgnoresOwnership(t *testing.T) {
	m1, m2, clock := newPair(t, 100*time.Millisecond)

	_, err := m1.AcquireLock("old1", nil)
	require.NoError(t, err)
	_, err = m2.AcquireLock("old2", nil)
	require.NoError(t, err)

	clock.Advance(150 * time.Millisecond)

	_, err = m1.AcquireLock("fresh", nil)
	require.NoError(t, err)

	removed, err := m2.CleanupStaleLocks()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	names, _ := m1.ListLocks()
	assert.Equal(t, []string{"fresh"}, names)
}

func TestSharedData(t *testing.T) {
	m1, m2, _ := newPair(t, time.Second)

	got, err := m1.GetSharedData("missing", "default")
	require.NoError(t, err)
	assert.Equal(t, "default", got)

	require.NoError(t, m1.SetSharedData("theme", "dark"))
	got, err = m2.GetSharedData("theme", nil)
	require.NoError(t, err)
	assert.Equal(t, "dark", got, "data is shared across instances of a namespace")

	deleted, err := m2.DeleteSharedData("theme")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = m2.DeleteSharedData("theme")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestClearSharedDataNeverTouchesLocks(t *testing.T) {
	m1, _, _ := newPair(t, time.Minute)

	_, err := m1.AcquireLock("keep", nil)
	require.NoError(t, err)
	require.NoError(t, m1.SetSharedData("k1", 1))
	require.NoError(t, m1.SetSharedData("k2", 2))

	before, _ := m1.ListLocks()
	require.NoError(t, m1.ClearSharedData())
	after, _ := m1.ListLocks()

	assert.Equal(t, before, after)
	got, _ := m1.GetSharedData("k1", nil)
	assert.Nil(t, got)
}

func TestNamespaceIsolation(t *testing.T) {
	storage := NewMemoryStorage()
	clock := testutil.NewManualClock()
	a := NewManager(WithNamespace("ns-a"), WithStorage(storage), WithClock(clock),
		WithIDGenerator(testutil.NewFixedIDGenerator("a")))
	b := NewManager(WithNamespace("ns-b"), WithStorage(storage), WithClock(clock),
		WithIDGenerator(testutil.NewFixedIDGenerator("b")))

	require.NoError(t, a.SetSharedData("key", "value1"))
	got, err := b.GetSharedData("key", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)

	_, err = a.AcquireLock("x", nil)
	require.NoError(t, err)
	res, err := b.AcquireLock("x", nil)
	require.NoError(t, err)
	assert.True(t, res.Success, "lock names are scoped per namespace")
}

func TestNamespaceCanonicalization(t *testing.T) {
	storage := NewMemoryStorage()
	clock := testutil.NewManualClock()
	// "é" composed (U+00E9) vs decomposed (e + U+0301): same namespace.
	a := NewManager(WithNamespace("caf\u00e9"), WithStorage(storage), WithClock(clock),
		WithIDGenerator(testutil.NewFixedIDGenerator("a")))
	b := NewManager(WithNamespace("café"), WithStorage(storage), WithClock(clock),
		WithIDGenerator(testutil.NewFixedIDGenerator("b")))

	_, err := a.AcquireLock("x", nil)
	require.NoError(t, err)
	res, err := b.AcquireLock("x", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "a", res.CurrentOwnerID)
}

func TestProcessStorageRendezvous(t *testing.T) {
	assert.Same(t, ProcessStorage(), ProcessStorage())
}

func TestUniqueInstanceIDs(t *testing.T) {
	m1 := NewManager()
	m2 := NewManager()
	assert.NotEmpty(t, m1.InstanceID())
	assert.NotEqual(t, m1.InstanceID(), m2.InstanceID())
}

func TestLockContentionError(t *testing.T) {
	res := AcquireResult{Success: false, CurrentOwnerID: "other"}
	err := NewLockContentionError("x", res)
	assert.True(t, IsLockContention(err))
	assert.Contains(t, err.Error(), "other")
}
