// Package storage provides the namespaced key-value persistence the alert
// pipeline relies on. Every persisted collection (alert store, ledgers,
// notification records, last location) is one value under one key with
// read-modify-write semantics; there are no row-level updates.
package storage

import "context"

// KV is the persistent key-value contract. Implementations must treat reads
// of absent keys as (value="", ok=false, err=nil); errors are reserved for
// storage-level failures, which callers handle as "no prior state" on read
// and best-effort on write.
type KV interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	MultiRemove(ctx context.Context, keys []string) error
}
