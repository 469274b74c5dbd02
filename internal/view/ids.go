package view

import (
	"strconv"
	"sync"
	"time"
)

// IDs mints review session ids from the current time in milliseconds.
// Ids from one IDs value are strictly increasing, even when the clock
// stalls or steps backwards.
type IDs struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDs returns a minter reading the wall clock.
func NewIDs() *IDs {
	return &IDs{now: time.Now}
}

var processIDs = NewIDs()

// Next returns a new id.
func (g *IDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}
