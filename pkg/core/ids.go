package core

import (
	"sync"
	"time"
)

// IDGenerator mints local note identifiers. IDs are derived from the clock in
// Unix milliseconds and are strictly increasing for the life of the
// generator, so a deleted ID is never handed out again.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGenerator returns a generator whose first ID is greater than floor.
func NewIDGenerator(floor int64, now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{last: floor, now: now}
}

// Next returns a fresh ID.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Observe raises the floor so later IDs stay above id.
func (g *IDGenerator) Observe(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id > g.last {
		g.last = id
	}
}
