package testutil

import (
	"fmt"
	"sync"
)

// FixedRunIDGenerator returns predictable run ids.
//
// Unlike UUIDv7 ids, "<prefix>-1", "<prefix>-2", ... are the same on every
// test run, so stored run records can be compared exactly.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedRunIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedRunIDGenerator creates a generator. If prefix is empty, ids start
// with "test-run".
func NewFixedRunIDGenerator(prefix string) *FixedRunIDGenerator {
	if prefix == "" {
		prefix = "test-run"
	}
	return &FixedRunIDGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *FixedRunIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
