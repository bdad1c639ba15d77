// Package session tracks per-address honeypot session state.
package session

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity bounds the number of tracked addresses.
const DefaultCapacity = 10000

// State is what honeyfeed remembers about one source address.
type State struct {
	FirstSeen   bool
	ConnectedAt time.Time
	LoggedInAs  string // empty until a login succeeds; last write wins
	IsScanner   bool
}

// Tracker holds State per address in a bounded LRU. When full, the least
// recently touched address is forgotten and will be treated as new.
// Safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *State]
}

// NewTracker creates a Tracker holding at most capacity addresses.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := lru.New[string, *State](capacity)
	if err != nil {
		// Only returned for a non-positive size, excluded above.
		panic(err)
	}
	return &Tracker{cache: c}
}

// state returns the entry for addr, creating it. Caller must hold t.mu.
func (t *Tracker) state(addr string) *State {
	if s, ok := t.cache.Get(addr); ok {
		return s
	}
	s := &State{}
	t.cache.Add(addr, s)
	return s
}

// MarkConnected flips FirstSeen for addr and records at. It reports true only
// the first time it is called for an address.
func (t *Tracker) MarkConnected(addr string, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state(addr)
	if s.FirstSeen {
		return false
	}
	s.FirstSeen = true
	s.ConnectedAt = at
	return true
}

// SetLogin records the most recent successful login identity for addr.
func (t *Tracker) SetLogin(addr, user string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(addr).LoggedInAs = user
}

// MarkScanner flags addr as a scanner.
func (t *Tracker) MarkScanner(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(addr).IsScanner = true
}

// Get returns a copy of addr's state without creating one.
func (t *Tracker) Get(addr string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.cache.Peek(addr)
	if !ok {
		return State{}, false
	}
	return *s, true
}

// Len returns the number of tracked addresses.
func (t *Tracker) Len() int {
	return t.cache.Len()
}
