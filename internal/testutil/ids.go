package testutil

// FixedIDGenerator returns the same test ID every time.
//
// Scenario golden traces pin the correlation ID this way so the same
// scenario produces byte-identical traces across runs.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for id.
// If id is empty, Generate() returns "test-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
//
// Implements event.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
