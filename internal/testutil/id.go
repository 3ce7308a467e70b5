package testutil

// FixedIDGenerator returns the same instance id every time.
//
// This enables deterministic test execution and golden snapshot comparison:
// the same scenario with the same fixed ids produces byte-identical traces.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator that always returns id.
// If id is empty, Generate() returns "test-instance-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-instance-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed instance id.
//
// Implements shared.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
