package session

import "sync/atomic"

// Clock stamps each entity with the order in which it was attached.
//
// The identity map is a Go map, so iterating it yields managed entities in
// random order. Dirty UPDATEs are sorted by this stamp instead, so a flush
// writes changed rows in attach order and the same session always produces
// the same plan. The stamp survives rekeying: an inserted entity that later
// changes is updated in the position of its original attach.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
