// Package testutil holds fixtures shared by package tests: entity types, a
// recording persister and deterministic counters.
package testutil

import (
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/schema"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/session"
)

// Account is a fixture entity with a store-generated integer key.
type Account struct {
	ID      int64  `db:"id,pk"`
	Owner   string `db:"owner"`
	Balance int64  `db:"balance"`
}

// Tag is a fixture entity with a client-assigned string key.
type Tag struct {
	Name  string `db:"name,pk"`
	Color string `db:"color"`
}

// AccountSchema and TagSchema bind the fixture types.
var (
	AccountSchema = schema.MustBind[Account]("Account", "accounts")
	TagSchema     = schema.MustBind[Tag]("Tag", "tags")
)

// NewSession returns a persistence context with a fixed session id and
// provisional tokens "tmp-1", "tmp-2", ...
func NewSession(opts ...session.Option) *session.PersistenceContext {
	opts = append([]session.Option{
		session.WithSessionID("session-test"),
		session.WithTokenGenerator(session.NewSequenceGenerator("tmp")),
	}, opts...)
	return session.New(opts...)
}
