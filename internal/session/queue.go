package session

// actionQueue is a FIFO of entity references awaiting an explicit INSERT or
// DELETE. Duplicates are kept: scheduling the same entity twice yields two
// actions.
//
// Not safe for concurrent use; the owning PersistenceContext is single-owner.
type actionQueue struct {
	items []any
}

func newActionQueue() *actionQueue {
	return &actionQueue{items: make([]any, 0, 16)}
}

// push appends entity to the back of the queue.
func (q *actionQueue) push(entity any) {
	q.items = append(q.items, entity)
}

// snapshot returns the queued entities in schedule order.
func (q *actionQueue) snapshot() []any {
	out := make([]any, len(q.items))
	copy(out, q.items)
	return out
}

// drop removes every occurrence of entity, keeping the order of the rest.
func (q *actionQueue) drop(entity any) {
	kept := q.items[:0]
	for _, e := range q.items {
		if e != entity {
			kept = append(kept, e)
		}
	}
	// Nil out the tail so dropped entities can be collected.
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = nil
	}
	q.items = kept
}

// reset empties the queue, releasing references held by the backing array.
func (q *actionQueue) reset() {
	clear(q.items)
	q.items = q.items[:0]
}

func (q *actionQueue) len() int { return len(q.items) }
