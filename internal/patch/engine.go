package patch

import (
	"fmt"
	"log/slog"

	"github.com/weftlabs/weft/internal/rule"
	"github.com/weftlabs/weft/internal/surface"
)

// Module is a named, ordered bundle of rules with declared dependencies on
// other modules.
type Module struct {
	Name      string
	Rules     []rule.Rule
	DependsOn []string
}

// FuncModule wraps the simplest module form - a bare function taking a
// context and returning a cleanup function - into a dependency-free Module.
func FuncModule(name string, fn func(*rule.Context) (func(), error)) Module {
	return Module{Name: name, Rules: []rule.Rule{rule.Func(fn)}}
}

// appliedRule records everything needed to revert one applied rule: the
// artifact bag for lifecycle rules, or the pre-install slot snapshot for
// property definitions.
type appliedRule struct {
	r         rule.Rule
	artifacts rule.Artifacts
	slot      surface.Slot
	prev      surface.Member
	prevHeld  bool
}

// installedModule tracks one module's applied rules plus the context it was
// installed with, so uninstall hands artifacts back against the same bag.
type installedModule struct {
	ctx     *rule.Context
	applied []appliedRule
}

// Engine resolves a registry of named modules, computes a valid application
// order, and installs/uninstalls whole modules atomically with respect to
// each other.
//
// The engine is single-threaded by design: all patching completes before
// the call that requested it returns, matching the cooperative execution
// model of the host surface.
type Engine struct {
	modules   map[string]Module
	installed map[string]*installedModule
	order     []string // exact order modules were installed in
}

// NewEngine creates an empty engine.
func NewEngine() *Engine {
	return &Engine{
		modules:   make(map[string]Module),
		installed: make(map[string]*installedModule),
	}
}

// Register adds a module to the registry. Duplicate names are rejected.
// The rules slice is copied to prevent external mutation from changing a
// registered module's install order.
func (e *Engine) Register(m Module) error {
	if m.Name == "" {
		return fmt.Errorf("patch: module name is required")
	}
	if _, exists := e.modules[m.Name]; exists {
		return fmt.Errorf("patch: duplicate module name: %s", m.Name)
	}

	rules := make([]rule.Rule, len(m.Rules))
	copy(rules, m.Rules)
	m.Rules = rules

	deps := make([]string, len(m.DependsOn))
	copy(deps, m.DependsOn)
	m.DependsOn = deps

	e.modules[m.Name] = m
	return nil
}

// ResolveOrder topologically sorts the requested modules by their declared
// dependencies. Fails with a cyclic-dependency error if a cycle exists
// among the requested set, or a missing-dependency error if a declared
// dependency (or a requested module itself) is not available.
func (e *Engine) ResolveOrder(names []string) ([]string, error) {
	deps := make(map[string][]string, len(names))
	for _, name := range names {
		m, ok := e.modules[name]
		if !ok {
			return nil, NewUnknownModuleError(name)
		}
		deps[name] = m.DependsOn
	}
	return resolveOrder(names, deps)
}

// InstallModule applies every rule the module owns, in order, against the
// host surface in ctx. If any rule fails, the rules already applied are
// rolled back in reverse before the error propagates: the module is always
// either fully installed or fully absent.
func (e *Engine) InstallModule(name string, ctx *rule.Context) error {
	m, ok := e.modules[name]
	if !ok {
		return NewUnknownModuleError(name)
	}
	if _, active := e.installed[name]; active {
		return fmt.Errorf("patch: module %s is already installed", name)
	}

	inst := &installedModule{ctx: ctx}
	for i, r := range m.Rules {
		applied, err := applyRule(r, ctx)
		if err != nil {
			rollbackErr := revertApplied(inst.applied, ctx)
			if rollbackErr != nil {
				slog.Error("rollback after failed install reported errors",
					"module", name,
					"error", rollbackErr,
				)
			}
			return fmt.Errorf("install module %s: rule %d: %w", name, i, err)
		}
		inst.applied = append(inst.applied, applied)
	}

	e.installed[name] = inst
	e.order = append(e.order, name)
	slog.Debug("module installed", "module", name, "rules", len(m.Rules))
	return nil
}

// UninstallModule reverts the module's rules in reverse of installation
// order. Lifecycle rules receive back the artifact bag they produced at
// install time; property definitions restore their pre-install slot.
func (e *Engine) UninstallModule(name string) error {
	inst, ok := e.installed[name]
	if !ok {
		return fmt.Errorf("patch: module %s is not installed", name)
	}

	err := revertApplied(inst.applied, inst.ctx)
	delete(e.installed, name)
	for i, n := range e.order {
		if n == name {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	if err != nil {
		return fmt.Errorf("uninstall module %s: %w", name, err)
	}
	slog.Debug("module uninstalled", "module", name)
	return nil
}

// EnableAll installs the named modules in resolved dependency order. The
// order actually used is recorded; on a mid-set failure, modules installed
// earlier in the set stay installed (and recorded) so DisableAll can tear
// them down.
func (e *Engine) EnableAll(names []string, ctx *rule.Context) error {
	order, err := e.ResolveOrder(names)
	if err != nil {
		return err
	}
	slog.Info("enabling modules", "order", order)
	for _, name := range order {
		if err := e.InstallModule(name, ctx); err != nil {
			return err
		}
	}
	return nil
}

// DisableAll uninstalls every installed module in the exact reverse of the
// order actually used to install - the recorded order, never a fresh
// resolution - so teardown is the true inverse of setup even if the enabled
// set changed in between. Teardown continues past individual failures; the
// first error is returned.
func (e *Engine) DisableAll() error {
	var firstErr error
	for i := len(e.order) - 1; i >= 0; i-- {
		name := e.order[i]
		if err := e.UninstallModule(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Installed reports whether the named module is currently installed.
func (e *Engine) Installed(name string) bool {
	_, ok := e.installed[name]
	return ok
}

// InstallOrder returns a copy of the recorded install order.
func (e *Engine) InstallOrder() []string {
	order := make([]string, len(e.order))
	copy(order, e.order)
	return order
}

// applyRule applies one rule against the context's surface and returns the
// state needed to revert it.
func applyRule(r rule.Rule, ctx *rule.Context) (appliedRule, error) {
	switch r := r.(type) {
	case rule.Lifecycle:
		if r.Install == nil {
			return appliedRule{}, fmt.Errorf("lifecycle rule has no install")
		}
		artifacts, err := r.Install(ctx)
		if err != nil {
			return appliedRule{}, err
		}
		return appliedRule{r: r, artifacts: artifacts}, nil

	case rule.PropertyDefinition:
		slot, err := surface.EnsurePath(ctx.Surface, r.Path)
		if err != nil {
			return appliedRule{}, err
		}
		prev, prevHeld := slot.Lookup()

		switch r.Mode {
		case rule.ModeAccessor:
			produce := r.Produce
			slot.Define(surface.Accessor{Get: func() any { return produce(ctx) }})
		case rule.ModeStaticFactory:
			slot.Define(staticMember(r.Produce(ctx)))
		default:
			return appliedRule{}, fmt.Errorf("property %s: unknown mode %d", r.Path, r.Mode)
		}
		return appliedRule{r: r, slot: slot, prev: prev, prevHeld: prevHeld}, nil

	default:
		return appliedRule{}, fmt.Errorf("unknown rule variant %T", r)
	}
}

// staticMember wraps a factory-produced value as a surface member: callables
// become methods, everything else inert values.
func staticMember(v any) surface.Member {
	switch fn := v.(type) {
	case surface.Func:
		return surface.Method{Fn: fn}
	case func(args ...any) any:
		return surface.Method{Fn: fn}
	default:
		return surface.Value{V: v}
	}
}

// revertApplied reverts applied rules in reverse order. All reverts run
// even if some fail; the first error is returned.
func revertApplied(applied []appliedRule, ctx *rule.Context) error {
	var firstErr error
	for i := len(applied) - 1; i >= 0; i-- {
		a := applied[i]
		switch r := a.r.(type) {
		case rule.Lifecycle:
			if r.Uninstall == nil {
				continue
			}
			if err := r.Uninstall(ctx, a.artifacts); err != nil && firstErr == nil {
				firstErr = err
			}
		case rule.PropertyDefinition:
			a.slot.Restore(a.prev, a.prevHeld)
		}
	}
	return firstErr
}
