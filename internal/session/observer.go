package session

import "time"

// FlushStats summarizes one flush.
type FlushStats struct {
	SessionID string
	Inserts   int
	Updates   int
	Deletes   int
	Duration  time.Duration
	Err       error
}

// Total returns the number of actions in the flush.
func (s FlushStats) Total() int {
	return s.Inserts + s.Updates + s.Deletes
}

// FlushObserver is notified after every flush that reached the persister.
type FlushObserver interface {
	ObserveFlush(FlushStats)
}

// FlushObserverFunc adapts a function to FlushObserver.
type FlushObserverFunc func(FlushStats)

// ObserveFlush calls f(stats).
func (f FlushObserverFunc) ObserveFlush(stats FlushStats) { f(stats) }

func statsFor(plan []Action) FlushStats {
	var st FlushStats
	for _, a := range plan {
		switch a.Kind {
		case ActionInsert:
			st.Inserts++
		case ActionUpdate:
			st.Updates++
		case ActionDelete:
			st.Deletes++
		}
	}
	return st
}
