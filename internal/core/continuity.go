// ABOUTME: Continuity tracker classifying turns as new, continuation or automation
// ABOUTME: Keeps a bounded, in-memory window of recent inputs per (user, route)
package core

import (
	"sync"

	"github.com/harper/local-agent-core/internal/models"
)

// DefaultHistoryWindow is the number of recent inputs kept per key
const DefaultHistoryWindow = 5

// DefaultUserKey stands in for turns without a user identity
const DefaultUserKey = "default"

type historyKey struct {
	user  string
	route string
}

// ring is a fixed-capacity FIFO; pushing past capacity evicts the oldest entry
type ring struct {
	items []string
	start int
	size  int
}

func newRing(capacity int) *ring {
	return &ring{items: make([]string, capacity)}
}

func (r *ring) push(s string) {
	capacity := len(r.items)
	if r.size < capacity {
		r.items[(r.start+r.size)%capacity] = s
		r.size++
		return
	}
	r.items[r.start] = s
	r.start = (r.start + 1) % capacity
}

func (r *ring) snapshot() []string {
	out := make([]string, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.start+i)%len(r.items)]
	}
	return out
}

// ContinuityTracker holds per-key input history for the life of the process.
// Safe for concurrent use.
type ContinuityTracker struct {
	mu        sync.Mutex
	window    int
	histories map[historyKey]*ring
}

// NewContinuityTracker creates a tracker keeping window inputs per key (minimum 1)
func NewContinuityTracker(window int) *ContinuityTracker {
	if window < 1 {
		window = 1
	}
	return &ContinuityTracker{
		window:    window,
		histories: make(map[historyKey]*ring),
	}
}

// Window returns the per-key history size
func (t *ContinuityTracker) Window() int {
	return t.window
}

// Classify returns automation for non-interactive channels, otherwise
// continuation when the key already has history and new when it does not.
// Call it before Record for the same turn.
func (t *ContinuityTracker) Classify(userKey, route string, channel models.Channel) models.SessionKind {
	if !channel.IsInteractive() {
		return models.SessionAutomation
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.histories[key(userKey, route)]; ok && h.size > 0 {
		return models.SessionContinuation
	}
	return models.SessionNew
}

// Record appends text to the key's history and returns the window after the append
func (t *ContinuityTracker) Record(userKey, route, text string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key(userKey, route)
	h, ok := t.histories[k]
	if !ok {
		h = newRing(t.window)
		t.histories[k] = h
	}
	h.push(text)
	return h.snapshot()
}

// Recent returns the key's history, oldest first
func (t *ContinuityTracker) Recent(userKey, route string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.histories[key(userKey, route)]
	if !ok {
		return nil
	}
	return h.snapshot()
}

func key(userKey, route string) historyKey {
	if userKey == "" {
		userKey = DefaultUserKey
	}
	return historyKey{user: userKey, route: route}
}
