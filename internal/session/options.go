package session

import "log/slog"

// Option configures a PersistenceContext.
type Option func(*PersistenceContext)

// WithLogger sets the logger. The session id is added to every record.
// Default: records are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(pc *PersistenceContext) {
		if l != nil {
			pc.log = l
		}
	}
}

// WithTokenGenerator sets the generator for provisional-key tokens and, unless
// WithSessionID is also given, the session id.
// Default: UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(pc *PersistenceContext) {
		if g != nil {
			pc.tokens = g
		}
	}
}

// WithObserver registers a flush observer. May be given more than once.
func WithObserver(o FlushObserver) Option {
	return func(pc *PersistenceContext) {
		if o != nil {
			pc.observers = append(pc.observers, o)
		}
	}
}

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(pc *PersistenceContext) {
		pc.id = id
	}
}
