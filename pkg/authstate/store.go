package authstate

import (
	"sync"

	"github.com/dmitrymomot/authsession/pkg/identity"
)

// State is an immutable snapshot of the store.
type State struct {
	Identity   *identity.Identity
	Resolving  bool
	Generation uint64
}

// Authenticated reports whether the snapshot carries an identity.
func (s State) Authenticated() bool { return s.Identity != nil }

// ChangeFunc observes an applied mutation.
type ChangeFunc func(prev, next State)

// Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	state State

	hooksMu sync.RWMutex
	hooks   []ChangeFunc

	// dispatch orders mutations together with their hook calls.
	dispatch sync.Mutex
}

// New returns a store in the initial "resolving, nobody signed in" state.
func New() *Store {
	return &Store{state: State{Resolving: true}}
}

// Begin starts a new write epoch and marks the store as resolving.
func (s *Store) Begin() uint64 {
	var gen uint64
	s.apply(func(st *State) bool {
		st.Generation++
		st.Resolving = true
		gen = st.Generation
		return true
	})
	return gen
}

// Commit stores id (nil means absent) and clears the resolving flag when gen
// is still current. It reports whether the write was applied.
func (s *Store) Commit(gen uint64, id *identity.Identity) bool {
	return s.apply(func(st *State) bool {
		if st.Generation != gen {
			return false
		}
		st.Identity = id.Clone()
		st.Resolving = false
		return true
	})
}

// Update replaces the identity when gen is still current and leaves the
// resolving flag to whichever operation set it.
func (s *Store) Update(gen uint64, id *identity.Identity) bool {
	return s.apply(func(st *State) bool {
		if st.Generation != gen {
			return false
		}
		st.Identity = id.Clone()
		return true
	})
}

// Settle clears the resolving flag without touching the identity when gen is
// still current.
func (s *Store) Settle(gen uint64) bool {
	return s.apply(func(st *State) bool {
		if st.Generation != gen {
			return false
		}
		st.Resolving = false
		return true
	})
}

// Invalidate clears the identity and the resolving flag unconditionally and
// starts a new epoch so that every in-flight write becomes stale.
func (s *Store) Invalidate() uint64 {
	var gen uint64
	s.apply(func(st *State) bool {
		st.Generation++
		st.Identity = nil
		st.Resolving = false
		gen = st.Generation
		return true
	})
	return gen
}

// Current reports whether gen is the latest generation.
func (s *Store) Current(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Generation == gen
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Identity = st.Identity.Clone()
	return st
}

// Identity returns a copy of the current identity, or nil.
func (s *Store) Identity() *identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Identity.Clone()
}

func (s *Store) Resolving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Resolving
}

func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Generation
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Identity != nil
}

// OnChange registers fn to run after every applied mutation.
func (s *Store) OnChange(fn ChangeFunc) {
	if fn == nil {
		return
	}
	s.hooksMu.Lock()
	s.hooks = append(s.hooks, fn)
	s.hooksMu.Unlock()
}

// apply runs mutate under the lock and, when it reports a change, notifies
// hooks with copies of the before and after states. Hooks see mutations in
// the order they were applied; a hook may read the store but must not write
// to it.
func (s *Store) apply(mutate func(*State) bool) bool {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.mu.Lock()
	prev := s.state
	if !mutate(&s.state) {
		s.mu.Unlock()
		return false
	}
	next := s.state
	s.mu.Unlock()

	s.hooksMu.RLock()
	hooks := append([]ChangeFunc(nil), s.hooks...)
	s.hooksMu.RUnlock()

	for _, fn := range hooks {
		fn(copyState(prev), copyState(next))
	}
	return true
}

func copyState(st State) State {
	st.Identity = st.Identity.Clone()
	return st
}
