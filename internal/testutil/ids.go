package testutil

// FixedIDGenerator returns the same task id every time.
//
// Worker task ids only appear in logs, so tests that capture log output use
// this to get byte-stable lines.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator returning id.
// If id is empty, Generate() returns "test-task".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-task"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
