package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
)

// HashSet is a persisted set of hash strings under a single KV key. Both
// delivery ledgers (processed-alert and shown-notification) are HashSets.
//
// Persistence is best-effort: a failed read starts with an empty set, a
// failed write keeps the in-memory state and logs. Membership semantics are
// therefore at-least-once across restarts, which is the safe direction for
// duplicate suppression.
type HashSet struct {
	kv     KV
	key    string
	logger *slog.Logger

	mu     sync.Mutex
	hashes map[string]struct{}
	loaded bool
}

// NewHashSet creates a hash set persisted under the given key.
func NewHashSet(kv KV, key string, logger *slog.Logger) *HashSet {
	return &HashSet{
		kv:     kv,
		key:    key,
		logger: logger,
		hashes: make(map[string]struct{}),
	}
}

// Load reads the persisted set. Read failures are logged and leave the set
// empty; Load never fails.
func (h *HashSet) Load(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.loaded {
		return
	}
	h.loaded = true

	raw, ok, err := h.kv.GetItem(ctx, h.key)
	if err != nil {
		h.logger.Warn("hash set load failed, starting empty", "key", h.key, "error", err)
		return
	}
	if !ok {
		return
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		h.logger.Warn("hash set corrupt, starting empty", "key", h.key, "error", err)
		return
	}
	for _, hash := range list {
		h.hashes[hash] = struct{}{}
	}
}

// Contains reports membership.
func (h *HashSet) Contains(hash string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.hashes[hash]
	return ok
}

// Add inserts a hash and persists the set.
func (h *HashSet) Add(ctx context.Context, hash string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.hashes[hash]; ok {
		return
	}
	h.hashes[hash] = struct{}{}
	h.persistLocked(ctx)
}

// Remove deletes hashes and persists the set. Unknown hashes are ignored.
func (h *HashSet) Remove(ctx context.Context, hashes ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	changed := false
	for _, hash := range hashes {
		if _, ok := h.hashes[hash]; ok {
			delete(h.hashes, hash)
			changed = true
		}
	}
	if changed {
		h.persistLocked(ctx)
	}
}

// Len returns the number of stored hashes.
func (h *HashSet) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hashes)
}

func (h *HashSet) persistLocked(ctx context.Context) {
	list := make([]string, 0, len(h.hashes))
	for hash := range h.hashes {
		list = append(list, hash)
	}
	sort.Strings(list)

	data, err := json.Marshal(list)
	if err != nil {
		h.logger.Warn("hash set marshal failed", "key", h.key, "error", err)
		return
	}
	if err := h.kv.SetItem(ctx, h.key, string(data)); err != nil {
		h.logger.Warn("hash set persist failed", "key", h.key, "error", err)
	}
}
