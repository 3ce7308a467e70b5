package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios exercise patch modules against a fresh surface and assert on
// the resulting event trace, surface values, and lock state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Modules lists module names to enable before the steps run.
	// Dependency resolution reorders them; ties keep this order.
	Modules []string `yaml:"modules,omitempty"`

	// Steps contains the session steps, executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state.
	// Supported types: trace_contains, trace_order, trace_count,
	// surface_value, lock_owner.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one session action. Exactly one of the action fields must be
// set; Args and Metadata qualify call and acquire steps respectively.
type Step struct {
	// Enable installs the named module.
	Enable string `yaml:"enable,omitempty"`

	// Disable uninstalls the named module.
	Disable string `yaml:"disable,omitempty"`

	// Call invokes the method at the given surface path.
	Call string `yaml:"call,omitempty"`

	// Args are the call arguments.
	Args []any `yaml:"args,omitempty"`

	// Read evaluates the member at the given surface path.
	Read string `yaml:"read,omitempty"`

	// Acquire attempts to take the named lock.
	Acquire string `yaml:"acquire,omitempty"`

	// Metadata is attached to the lock on acquire.
	Metadata map[string]any `yaml:"metadata,omitempty"`

	// Release releases the named lock.
	Release string `yaml:"release,omitempty"`

	// AdvanceMS moves the scenario clock forward. A pointer so that a
	// zero-duration advance is distinguishable from an absent field.
	AdvanceMS *int64 `yaml:"advance_ms,omitempty"`
}

// kind returns the step's action name, or an error when the step does
// not set exactly one action field.
func (s *Step) kind() (string, error) {
	var kinds []string
	if s.Enable != "" {
		kinds = append(kinds, StepEnable)
	}
	if s.Disable != "" {
		kinds = append(kinds, StepDisable)
	}
	if s.Call != "" {
		kinds = append(kinds, StepCall)
	}
	if s.Read != "" {
		kinds = append(kinds, StepRead)
	}
	if s.Acquire != "" {
		kinds = append(kinds, StepAcquire)
	}
	if s.Release != "" {
		kinds = append(kinds, StepRelease)
	}
	if s.AdvanceMS != nil {
		kinds = append(kinds, StepAdvance)
	}
	if len(kinds) != 1 {
		return "", fmt.Errorf("step must set exactly one action, got %d", len(kinds))
	}
	return kinds[0], nil
}

// Step kind constants. They double as trace event types.
const (
	StepEnable  = "enable"
	StepDisable = "disable"
	StepCall    = "call"
	StepRead    = "read"
	StepAcquire = "acquire"
	StepRelease = "release"
	StepAdvance = "advance"
)

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check an event with the given step type and target occurred
	// - "trace_order": Check targets appear in order in the trace
	// - "trace_count": Check an event occurs exactly N times
	// - "surface_value": Evaluate a surface path and compare
	// - "lock_owner": Check who holds a lock
	Type string `yaml:"type"`

	// Step is the event type to match (used by trace_contains, trace_count).
	Step string `yaml:"step,omitempty"`

	// Target is the event target to match (used by trace_contains, trace_count).
	Target string `yaml:"target,omitempty"`

	// Targets is the expected target order (used by trace_order).
	Targets []string `yaml:"targets,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Path is the surface path to evaluate (used by surface_value).
	Path string `yaml:"path,omitempty"`

	// Value is the expected value (used by surface_value).
	Value any `yaml:"value,omitempty"`

	// Lock is the lock name to inspect (used by lock_owner).
	Lock string `yaml:"lock,omitempty"`

	// Owner is the expected owner instance ID (used by lock_owner).
	// Empty means the lock must be unheld.
	Owner string `yaml:"owner,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertSurfaceValue  = "surface_value"
	AssertLockOwner     = "lock_owner"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i := range s.Steps {
		kind, err := s.Steps[i].kind()
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if len(s.Steps[i].Args) > 0 && kind != StepCall {
			return fmt.Errorf("steps[%d]: args is only valid with call", i)
		}
		if s.Steps[i].Metadata != nil && kind != StepAcquire {
			return fmt.Errorf("steps[%d]: metadata is only valid with acquire", i)
		}
		if kind == StepAdvance && *s.Steps[i].AdvanceMS < 0 {
			return fmt.Errorf("steps[%d]: advance_ms must not be negative", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Step == "" || a.Target == "" {
			return fmt.Errorf("assertions[%d]: step and target are required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Targets) == 0 {
			return fmt.Errorf("assertions[%d]: targets list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Step == "" || a.Target == "" {
			return fmt.Errorf("assertions[%d]: step and target are required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertSurfaceValue:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for surface_value", index)
		}
	case AssertLockOwner:
		if a.Lock == "" {
			return fmt.Errorf("assertions[%d]: lock is required for lock_owner", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
