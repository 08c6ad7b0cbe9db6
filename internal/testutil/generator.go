package testutil

import (
	"fmt"
	"sync"
)

// FixedTypeGenerator returns predictable action-type suffixes.
//
// Implements statecore.TypeGenerator. Each call returns "<prefix>-<n>" with n
// counting from 1, so probe types stay distinct per call while golden output
// and error messages remain byte-identical across runs.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedTypeGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedTypeGenerator creates a generator. An empty prefix defaults to "probe".
func NewFixedTypeGenerator(prefix string) *FixedTypeGenerator {
	if prefix == "" {
		prefix = "probe"
	}
	return &FixedTypeGenerator{prefix: prefix}
}

// Generate returns the next suffix.
func (g *FixedTypeGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Calls returns how many suffixes have been generated.
func (g *FixedTypeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}
