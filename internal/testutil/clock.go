package testutil

import (
	"strconv"
	"sync"
	"time"

	"pixarr-go/internal/pixarr"
)

// Epoch is where every FixedClock starts.
var Epoch = time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)

// StubClock only moves when told to. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ pixarr.Clock = (*StubClock)(nil)

func FixedClock() *StubClock {
	return &StubClock{now: Epoch}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *StubClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// StubIDGenerator issues batch-1, batch-2, ...
type StubIDGenerator struct {
	mu   sync.Mutex
	next int
}

var _ pixarr.IDGenerator = (*StubIDGenerator)(nil)

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{next: 1}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := "batch-" + strconv.Itoa(g.next)
	g.next++
	return id
}
