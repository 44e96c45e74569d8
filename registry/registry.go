// Package registry keeps the tokens that are waiting to be redeemed.
//
// Entries are keyed by token. Both the expiry callback and redemption call
// Remove; Remove deletes and returns the entry in a single step
// (sync.Map.LoadAndDelete), so only the first caller observes the entry and
// the second one sees nothing. That is the whole concurrency contract, no
// further locking is involved.
package registry

import (
	"sync"

	"github.com/mguentner/mailtoken/identity"
)

type Entry struct {
	Identity *identity.Identity
	Expiry   Timer
}

type Registry struct {
	entries sync.Map
}

func New() *Registry {
	return &Registry{}
}

// Add registers identity under its token unless the token is already
// present. It reports whether the entry was inserted. Identities without a
// token are never inserted.
func (r *Registry) Add(ident *identity.Identity, expiry Timer) bool {
	key := ident.Token()
	if key == "" {
		return false
	}
	_, loaded := r.entries.LoadOrStore(key, &Entry{Identity: ident, Expiry: expiry})
	return !loaded
}

// Remove deletes the entry for identity's token and returns it. ok is false
// when there was nothing to remove, e.g. because the other path won.
func (r *Registry) Remove(ident *identity.Identity) (entry *Entry, ok bool) {
	key := ident.Token()
	if key == "" {
		return nil, false
	}
	value, loaded := r.entries.LoadAndDelete(key)
	if !loaded {
		return nil, false
	}
	return value.(*Entry), true
}

// Get returns the entry for token or nil.
func (r *Registry) Get(token string) *Entry {
	value, ok := r.entries.Load(token)
	if !ok {
		return nil
	}
	return value.(*Entry)
}

// Len counts the pending entries.
func (r *Registry) Len() int {
	n := 0
	r.entries.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
