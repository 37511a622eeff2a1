package multiplayer

// RecentActions remembers the most recent client action ids, oldest
// evicted first. It is owned by a single room goroutine.
type RecentActions struct {
	capacity int
	order    []string
	seen     map[string]struct{}
}

// NewRecentActions creates a tracker holding up to capacity ids,
// pre-loaded with ids (oldest first).
func NewRecentActions(capacity int, ids ...string) *RecentActions {
	if capacity < 1 {
		capacity = 100
	}
	r := &RecentActions{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
	for _, id := range ids {
		r.Remember(id)
	}
	return r
}

// Seen reports whether id was remembered and not yet evicted.
// The empty id is never seen.
func (r *RecentActions) Seen(id string) bool {
	if id == "" {
		return false
	}
	_, ok := r.seen[id]
	return ok
}

// Remember records id, evicting the oldest entry past capacity.
func (r *RecentActions) Remember(id string) {
	if id == "" || r.Seen(id) {
		return
	}
	r.order = append(r.order, id)
	r.seen[id] = struct{}{}
	for len(r.order) > r.capacity {
		delete(r.seen, r.order[0])
		r.order = r.order[1:]
	}
}

// IDs returns the remembered ids, oldest first.
func (r *RecentActions) IDs() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of remembered ids.
func (r *RecentActions) Len() int {
	return len(r.order)
}

// Clone returns an independent copy.
func (r *RecentActions) Clone() *RecentActions {
	return NewRecentActions(r.capacity, r.order...)
}
