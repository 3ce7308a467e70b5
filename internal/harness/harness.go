package harness

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/weftlabs/weft/internal/patch"
	"github.com/weftlabs/weft/internal/rule"
	"github.com/weftlabs/weft/internal/shared"
	"github.com/weftlabs/weft/internal/surface"
	"github.com/weftlabs/weft/internal/testutil"
)

// InstanceID is the fixed coordination identity of a scenario run.
const InstanceID = "harness-1"

// TraceEvent records one executed step. Seq is 1-based.
type TraceEvent struct {
	Seq    int    `json:"seq"`
	Type   string `json:"type"`
	Target string `json:"target,omitempty"`
	Args   []any  `json:"args,omitempty"`
	Value  any    `json:"value,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: all assertions held.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []TraceEvent{}, Errors: []string{}}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(kind, target string, args []any, value any) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    len(r.Trace) + 1,
		Type:   kind,
		Target: target,
		Args:   args,
		Value:  value,
	})
}

// Harness executes one scenario against fresh state.
type Harness struct {
	root    *surface.Object
	engine  *patch.Engine
	ctx     *rule.Context
	manager *shared.Manager
	clock   *testutil.ManualClock
}

// Run executes a scenario against the given modules and returns the result.
//
// Each scenario runs against a fresh surface, engine, in-memory
// coordination storage, and manual clock, so runs are deterministic and
// isolated. A step that cannot execute (unknown module, bad path) aborts
// the run with an error; assertion failures are collected in the result.
func Run(scenario *Scenario, modules []patch.Module) (*Result, error) {
	root := surface.NewObject()
	eng := patch.NewEngine()
	for _, m := range modules {
		if err := eng.Register(m); err != nil {
			return nil, fmt.Errorf("register module: %w", err)
		}
	}

	clock := testutil.NewManualClock()
	manager := shared.NewManager(
		shared.WithNamespace(scenario.Name),
		shared.WithStorage(shared.NewMemoryStorage()),
		shared.WithClock(clock),
		shared.WithIDGenerator(testutil.NewFixedIDGenerator(InstanceID)),
	)

	h := &Harness{
		root:    root,
		engine:  eng,
		ctx:     rule.NewContext(root),
		manager: manager,
		clock:   clock,
	}

	result := NewResult()

	// Enable the scenario's module set in dependency order.
	if len(scenario.Modules) > 0 {
		order, err := eng.ResolveOrder(scenario.Modules)
		if err != nil {
			return nil, fmt.Errorf("resolve modules: %w", err)
		}
		for _, name := range order {
			if err := eng.InstallModule(name, h.ctx); err != nil {
				return nil, fmt.Errorf("enable module %s: %w", name, err)
			}
			result.addTrace(StepEnable, name, nil, nil)
		}
	}

	for i := range scenario.Steps {
		if err := h.executeStep(&scenario.Steps[i], result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	for _, msg := range h.evaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step and appends its trace event.
func (h *Harness) executeStep(step *Step, result *Result) error {
	kind, err := step.kind()
	if err != nil {
		return err
	}

	switch kind {
	case StepEnable:
		if err := h.engine.InstallModule(step.Enable, h.ctx); err != nil {
			return err
		}
		result.addTrace(kind, step.Enable, nil, nil)

	case StepDisable:
		if err := h.engine.UninstallModule(step.Disable); err != nil {
			return err
		}
		result.addTrace(kind, step.Disable, nil, nil)

	case StepCall:
		slot, err := surface.ResolvePath(h.root, step.Call)
		if err != nil {
			return err
		}
		value, err := slot.Parent.Call(slot.Name, step.Args...)
		if err != nil {
			return err
		}
		result.addTrace(kind, step.Call, step.Args, value)

	case StepRead:
		slot, err := surface.ResolvePath(h.root, step.Read)
		if err != nil {
			return err
		}
		value, ok := slot.Get()
		if !ok {
			return fmt.Errorf("read %s: no such member", step.Read)
		}
		result.addTrace(kind, step.Read, nil, value)

	case StepAcquire:
		res, err := h.manager.AcquireLock(step.Acquire, step.Metadata)
		if err != nil {
			return err
		}
		value := map[string]any{
			"success":   res.Success,
			"was_stale": res.WasStale,
		}
		if res.CurrentOwnerID != "" {
			value["current_owner"] = res.CurrentOwnerID
		}
		result.addTrace(kind, step.Acquire, nil, value)

	case StepRelease:
		released, err := h.manager.ReleaseLock(step.Release)
		if err != nil {
			return err
		}
		result.addTrace(kind, step.Release, nil, released)

	case StepAdvance:
		ms := *step.AdvanceMS
		h.clock.Advance(time.Duration(ms) * time.Millisecond)
		result.addTrace(kind, "", nil, ms)
	}
	return nil
}

// evaluateAssertions checks every assertion and returns failure messages.
func (h *Harness) evaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i := range assertions {
		if msg := h.evaluateAssertion(result, &assertions[i]); msg != "" {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %s", i, msg))
		}
	}
	return failures
}

func (h *Harness) evaluateAssertion(result *Result, a *Assertion) string {
	switch a.Type {
	case AssertTraceContains:
		for _, ev := range result.Trace {
			if ev.Type == a.Step && ev.Target == a.Target {
				return ""
			}
		}
		return fmt.Sprintf("no %s event for %q in trace", a.Step, a.Target)

	case AssertTraceOrder:
		next := 0
		for _, ev := range result.Trace {
			if next < len(a.Targets) && ev.Target == a.Targets[next] {
				next++
			}
		}
		if next != len(a.Targets) {
			return fmt.Sprintf("trace order [%s] not satisfied, matched %d of %d",
				strings.Join(a.Targets, ", "), next, len(a.Targets))
		}
		return ""

	case AssertTraceCount:
		count := 0
		for _, ev := range result.Trace {
			if ev.Type == a.Step && ev.Target == a.Target {
				count++
			}
		}
		if count != a.Count {
			return fmt.Sprintf("%s %q occurred %d times, want %d", a.Step, a.Target, count, a.Count)
		}
		return ""

	case AssertSurfaceValue:
		slot, err := surface.ResolvePath(h.root, a.Path)
		if err != nil {
			return fmt.Sprintf("surface path %q: %v", a.Path, err)
		}
		value, ok := slot.Get()
		if !ok {
			return fmt.Sprintf("surface path %q: no such member", a.Path)
		}
		if !looseEqual(value, a.Value) {
			return fmt.Sprintf("surface path %q = %v, want %v", a.Path, value, a.Value)
		}
		return ""

	case AssertLockOwner:
		info, found, err := h.manager.GetLockInfo(a.Lock)
		if err != nil {
			return fmt.Sprintf("lock %q: %v", a.Lock, err)
		}
		if a.Owner == "" {
			if found {
				return fmt.Sprintf("lock %q held by %q, want unheld", a.Lock, info.OwnerID)
			}
			return ""
		}
		if !found {
			return fmt.Sprintf("lock %q unheld, want owner %q", a.Lock, a.Owner)
		}
		if info.OwnerID != a.Owner {
			return fmt.Sprintf("lock %q held by %q, want %q", a.Lock, info.OwnerID, a.Owner)
		}
		return ""
	}
	return fmt.Sprintf("unknown assertion type %q", a.Type)
}

// looseEqual compares a surface value with a YAML-decoded expectation,
// tolerating the integer width mismatch between the two.
func looseEqual(got, want any) bool {
	if reflect.DeepEqual(got, want) {
		return true
	}
	gi, gok := asInt64(got)
	wi, wok := asInt64(want)
	return gok && wok && gi == wi
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}
