package statemachine

import "errors"

// Option configures a state machine during construction.
type Option func(*SimpleStateMachine) error

// TransitionOption attaches guards or actions to a single transition.
type TransitionOption func(*transitionConfig)

type transitionConfig struct {
	guards  []Guard
	actions []Action
}

// New creates a state machine starting in initial.
func New(initial State, opts ...Option) (*SimpleStateMachine, error) {
	if initial == nil {
		return nil, errors.New("initial state cannot be nil")
	}

	sm := newSimpleStateMachine(initial)
	for _, opt := range opts {
		if err := opt(sm); err != nil {
			return nil, err
		}
	}
	return sm, nil
}

// MustNew is like New but panics on error.
func MustNew(initial State, opts ...Option) *SimpleStateMachine {
	sm, err := New(initial, opts...)
	if err != nil {
		panic(err)
	}
	return sm
}

// WithTransition registers a transition.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(sm *SimpleStateMachine) error {
		cfg := &transitionConfig{}
		for _, opt := range opts {
			opt(cfg)
		}
		return sm.AddTransition(from, to, event, cfg.guards, cfg.actions)
	}
}

// WithTerminal marks states that accept no further events.
func WithTerminal(states ...State) Option {
	return func(sm *SimpleStateMachine) error {
		sm.addTerminal(states...)
		return nil
	}
}

func WithGuard(guard Guard) TransitionOption {
	return func(c *transitionConfig) {
		if guard != nil {
			c.guards = append(c.guards, guard)
		}
	}
}

func WithAction(action Action) TransitionOption {
	return func(c *transitionConfig) {
		if action != nil {
			c.actions = append(c.actions, action)
		}
	}
}
