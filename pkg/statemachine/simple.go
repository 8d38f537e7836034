package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// SimpleStateMachine is an in-memory Machine. Transitions are indexed as
// [fromState][event][]Transition.
type SimpleStateMachine struct {
	initial     State
	current     State
	transitions map[string]map[string][]Transition
	terminal    map[string]struct{}
	mu          sync.RWMutex
}

func newSimpleStateMachine(initial State) *SimpleStateMachine {
	return &SimpleStateMachine{
		initial:     initial,
		current:     initial,
		transitions: make(map[string]map[string][]Transition),
		terminal:    make(map[string]struct{}),
	}
}

func (sm *SimpleStateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Is reports whether the machine is in state.
func (sm *SimpleStateMachine) Is(state State) bool {
	if state == nil {
		return false
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current.Name() == state.Name()
}

// Terminal reports whether the current state was registered as terminal.
func (sm *SimpleStateMachine) Terminal() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.terminal[sm.current.Name()]
	return ok
}

func (sm *SimpleStateMachine) AddTransition(from, to State, event Event, guards []Guard, actions []Action) error {
	if from == nil || to == nil || event == nil {
		return ErrInvalidTransition
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	byEvent, ok := sm.transitions[from.Name()]
	if !ok {
		byEvent = make(map[string][]Transition)
		sm.transitions[from.Name()] = byEvent
	}
	byEvent[event.Name()] = append(byEvent[event.Name()], Transition{
		From:    from,
		To:      to,
		Event:   event,
		Guards:  guards,
		Actions: actions,
	})
	return nil
}

func (sm *SimpleStateMachine) addTerminal(states ...State) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, s := range states {
		if s != nil {
			sm.terminal[s.Name()] = struct{}{}
		}
	}
}

func (sm *SimpleStateMachine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	from := sm.current.Name()
	if _, ok := sm.terminal[from]; ok {
		return NewErrNoTransitionAvailable(from, event.Name())
	}

	candidates := sm.transitions[from][event.Name()]
	if len(candidates) == 0 {
		return NewErrNoTransitionAvailable(from, event.Name())
	}

	t, ok := sm.firstAllowed(ctx, candidates, event, data)
	if !ok {
		return NewErrTransitionRejected(from, event.Name())
	}

	for _, action := range t.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, sm.current, t.To, event, data); err != nil {
			return fmt.Errorf("action failed: %w", err)
		}
	}

	sm.current = t.To
	return nil
}

func (sm *SimpleStateMachine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if _, ok := sm.terminal[sm.current.Name()]; ok {
		return false
	}
	_, ok := sm.firstAllowed(ctx, sm.transitions[sm.current.Name()][event.Name()], event, data)
	return ok
}

// firstAllowed returns the first transition whose guards all pass. Callers hold the lock.
func (sm *SimpleStateMachine) firstAllowed(ctx context.Context, candidates []Transition, event Event, data any) (Transition, bool) {
	for _, t := range candidates {
		allowed := true
		for _, guard := range t.Guards {
			if guard != nil && !guard(ctx, sm.current, event, data) {
				allowed = false
				break
			}
		}
		if allowed {
			return t, true
		}
	}
	return Transition{}, false
}

// Reset returns the machine to its initial state.
func (sm *SimpleStateMachine) Reset() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.current = sm.initial
	return nil
}
