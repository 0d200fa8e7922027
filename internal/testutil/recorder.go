package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/session"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// RecordedFlush is one Execute call seen by a RecordingPersister.
type RecordedFlush struct {
	SessionID string
	Entries   []session.PlanEntry
	// Generated lists the keys assigned to inserts, as "Type#id", in plan order.
	Generated []string
}

// RecordingPersister is an in-memory session.Persister.
//
// It records every plan it executes and assigns sequential integer keys to
// inserts whose key is unset. Safe for concurrent use.
type RecordingPersister struct {
	mu      sync.Mutex
	keys    *Sequence
	flushes []RecordedFlush
	fail    error
}

var _ session.Persister = (*RecordingPersister)(nil)

// NewRecordingPersister returns a persister whose first generated key is 1.
func NewRecordingPersister() *RecordingPersister {
	return NewRecordingPersisterFrom(1)
}

// NewRecordingPersisterFrom returns a persister whose first generated key is start.
func NewRecordingPersisterFrom(start int64) *RecordingPersister {
	return &RecordingPersister{keys: NewSequence(start)}
}

// FailNext makes the next Execute return err without recording anything.
func (p *RecordingPersister) FailNext(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = err
}

// Execute records actions and returns generated keys for keyless inserts.
func (p *RecordingPersister) Execute(ctx context.Context, actions []session.Action) ([]session.GeneratedKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fail; err != nil {
		p.fail = nil
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var generated []session.GeneratedKey
	flush := RecordedFlush{Entries: session.Describe(actions)}
	flush.SessionID, _ = session.IDFromContext(ctx)

	for i, a := range actions {
		if a.Kind != session.ActionInsert || !value.IsNull(a.Row[0]) {
			continue
		}
		key := a.Schema.Key()
		if key.Kind != value.KindInt && key.Kind != value.KindAny {
			return nil, fmt.Errorf("action %d %s: cannot generate a %s key", i, a, key.Kind)
		}
		id := value.Int(p.keys.Next())
		generated = append(generated, session.GeneratedKey{Entity: a.Entity, ID: id})
		flush.Generated = append(flush.Generated, session.NewKey(a.Schema.Type(), id).String())
	}

	p.flushes = append(p.flushes, flush)
	return generated, nil
}

// Flushes returns a copy of the recorded flushes in execution order.
func (p *RecordingPersister) Flushes() []RecordedFlush {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RecordedFlush, len(p.flushes))
	copy(out, p.flushes)
	return out
}

// Last returns the most recent flush.
func (p *RecordingPersister) Last() (RecordedFlush, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.flushes) == 0 {
		return RecordedFlush{}, false
	}
	return p.flushes[len(p.flushes)-1], true
}

// Reset drops recorded flushes and rewinds the key sequence.
func (p *RecordingPersister) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushes = nil
	p.fail = nil
	p.keys.Reset()
}
