// Package guard provides in-memory, at-most-once dispatch markers for
// analyses and player commands.
package guard

import "sync"

// Registry tracks three disjoint guard sets: analyses in flight (by item
// id), theme jumps issued (by session key) and credit actions issued (by
// session key). Entries are never persisted.
type Registry struct {
	mu       sync.Mutex
	analysis map[int64]struct{}
	jump     map[int64]struct{}
	credits  map[int64]struct{}
}

// NewRegistry creates an empty guard registry.
func NewRegistry() *Registry {
	return &Registry{
		analysis: make(map[int64]struct{}),
		jump:     make(map[int64]struct{}),
		credits:  make(map[int64]struct{}),
	}
}

func tryAcquire(m map[int64]struct{}, key int64) bool {
	if _, held := m[key]; held {
		return false
	}
	m[key] = struct{}{}
	return true
}

// TryAcquireAnalysis marks an item's analysis as in flight. Returns false
// if a run is already in progress. Check and insert are one atomic step
// so two racing ticks produce at most one run.
func (r *Registry) TryAcquireAnalysis(itemID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return tryAcquire(r.analysis, itemID)
}

// ReleaseAnalysis clears the in-flight marker for an item.
func (r *Registry) ReleaseAnalysis(itemID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.analysis, itemID)
}

// TryAcquireJump marks a theme seek as issued for a session.
func (r *Registry) TryAcquireJump(sessionKey int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return tryAcquire(r.jump, sessionKey)
}

// ReleaseJump clears the jump marker, allowing a later tick to retry
// after a failed dispatch.
func (r *Registry) ReleaseJump(sessionKey int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jump, sessionKey)
}

// TryAcquireCredits marks a credits stop/seek as issued for a session.
func (r *Registry) TryAcquireCredits(sessionKey int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return tryAcquire(r.credits, sessionKey)
}

// ReleaseCredits clears the credits marker for a session.
func (r *Registry) ReleaseCredits(sessionKey int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.credits, sessionKey)
}

// ClearSession drops the per-session guards. Called when a session moves
// to a different item or disappears; the analysis guard is item-scoped
// and unaffected.
func (r *Registry) ClearSession(sessionKey int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jump, sessionKey)
	delete(r.credits, sessionKey)
}

// AnalysisInFlight reports whether an analysis guard is held for the item.
func (r *Registry) AnalysisInFlight(itemID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, held := r.analysis[itemID]
	return held
}
