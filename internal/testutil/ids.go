package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates "<prefix>-001", "<prefix>-002", ... and never
// runs out. It satisfies engine.IDGenerator.
//
// Unlike engine.FixedGenerator, which panics once its list is consumed,
// SequentialIDs suits scenarios whose attempt count is not known upfront.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix means "attempt".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "attempt"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%03d", g.prefix, g.n)
}
