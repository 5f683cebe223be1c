// Package store persists vendors, accounts, and the append-only vendor flag log.
//
// Both implementations serialize flag appends per vendor: the in-memory store
// through a sharded mutex, the Postgres store by locking the vendor row.
package store

import (
	"time"

	"quickfi/internal/sentinel"
)

// ErrNotFound is returned when a vendor or account does not exist.
var ErrNotFound = sentinel.ErrNotFound

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the timestamp source used for flags and scan dates.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
