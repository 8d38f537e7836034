// Package statemachine implements a small, thread-safe finite state machine
// with guarded transitions and side-effect actions.
//
// Transitions are registered per (from state, event) pair. Several
// transitions may share a pair; the first whose guards all pass wins, which
// allows guard-based branching. Actions run before the state changes and any
// action error aborts the transition. States marked terminal accept no
// further events.
//
//	sm := statemachine.MustNew(Idle,
//	    statemachine.WithTransition(Idle, Running, Start),
//	    statemachine.WithTransition(Running, Done, Finish),
//	    statemachine.WithTerminal(Done),
//	)
//	if err := sm.Fire(ctx, Start, nil); err != nil {
//	    // statemachine.IsNoTransitionAvailableError(err)
//	}
package statemachine
