package ledger

import (
	"sync"
	"time"
)

// Clock supplies the ledger's notion of now as unix seconds. Accrual math
// requires a non-decreasing clock; a reading earlier than a stored checkpoint
// surfaces as ErrClockSkew.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock but never runs backwards within a process,
// even if the wall clock is adjusted underneath it.
type SystemClock struct {
	mu   sync.Mutex
	last int64
}

func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

func (c *SystemClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().Unix()
	if now < c.last {
		now = c.last
	}
	c.last = now
	return now
}

// ManualClock is a Clock whose time only moves when told to. Used in tests to
// make accrual windows deterministic.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

func NewManualClock(start int64) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *ManualClock) Advance(seconds int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += seconds
}
