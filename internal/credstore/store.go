// Package credstore persists the bearer token and cached user snapshot of a session.
package credstore

import "context"

// Entry is what a session persists: an opaque token and the serialised user.
// The zero Entry means nothing is stored.
type Entry struct {
	Token string
	User  []byte
}

// IsEmpty reports whether neither key holds a value.
func (e Entry) IsEmpty() bool {
	return e.Token == "" && len(e.User) == 0
}

// Store reads and writes both keys together. Only the session controller mutates a Store.
type Store interface {
	Load(ctx context.Context) (Entry, error)
	Save(ctx context.Context, entry Entry) error
	Clear(ctx context.Context) error
}
