package manifest

import "time"

// Manifest is the compiled form of a patch manifest.
type Manifest struct {
	// Name identifies the deployment this manifest configures.
	Name string

	// Modules lists the declared patch modules in declaration order.
	Modules []ModuleSpec

	// Coordination carries the shared-state settings for all instances
	// running this manifest.
	Coordination Coordination
}

// ModuleSpec declares one patch module and its dependency edges.
type ModuleSpec struct {
	Name        string
	Description string
	DependsOn   []string
}

// Coordination holds the shared-state configuration of a manifest.
type Coordination struct {
	Namespace        string
	Version          string
	StaleLockTimeout time.Duration
}

// Module returns the declared module with the given name.
func (m *Manifest) Module(name string) (ModuleSpec, bool) {
	for _, spec := range m.Modules {
		if spec.Name == name {
			return spec, true
		}
	}
	return ModuleSpec{}, false
}

// ModuleNames returns the declared module names in declaration order.
func (m *Manifest) ModuleNames() []string {
	names := make([]string, len(m.Modules))
	for i, spec := range m.Modules {
		names[i] = spec.Name
	}
	return names
}
