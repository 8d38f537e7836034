package statemachine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsession/pkg/statemachine"
)

const (
	idle    = statemachine.StringState("idle")
	running = statemachine.StringState("running")
	done    = statemachine.StringState("done")
	failed  = statemachine.StringState("failed")

	start  = statemachine.StringEvent("start")
	finish = statemachine.StringEvent("finish")
)

func TestFire(t *testing.T) {
	t.Parallel()

	sm := statemachine.MustNew(idle,
		statemachine.WithTransition(idle, running, start),
		statemachine.WithTransition(running, done, finish),
		statemachine.WithTerminal(done),
	)
	ctx := context.Background()

	assert.True(t, sm.Is(idle))
	assert.True(t, sm.CanFire(ctx, start, nil))
	assert.False(t, sm.CanFire(ctx, finish, nil))

	require.NoError(t, sm.Fire(ctx, start, nil))
	require.NoError(t, sm.Fire(ctx, finish, nil))
	assert.Equal(t, done, sm.Current())
	assert.True(t, sm.Terminal())

	err := sm.Fire(ctx, start, nil)
	assert.True(t, statemachine.IsNoTransitionAvailableError(err))
	assert.False(t, sm.CanFire(ctx, start, nil))

	require.NoError(t, sm.Reset())
	assert.True(t, sm.Is(idle))
	assert.False(t, sm.Terminal())
}

func TestGuardBranching(t *testing.T) {
	t.Parallel()

	ok := func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
		return data == true
	}
	notOK := func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
		return data == false
	}

	newMachine := func() *statemachine.SimpleStateMachine {
		return statemachine.MustNew(running,
			statemachine.WithTransition(running, done, finish, statemachine.WithGuard(ok)),
			statemachine.WithTransition(running, failed, finish, statemachine.WithGuard(notOK)),
		)
	}

	sm := newMachine()
	require.NoError(t, sm.Fire(context.Background(), finish, true))
	assert.Equal(t, done, sm.Current())

	sm = newMachine()
	require.NoError(t, sm.Fire(context.Background(), finish, false))
	assert.Equal(t, failed, sm.Current())

	sm = newMachine()
	err := sm.Fire(context.Background(), finish, "neither")
	assert.True(t, statemachine.IsTransitionRejectedError(err))
	assert.Equal(t, running, sm.Current())
}

func TestActions(t *testing.T) {
	t.Parallel()

	var trail []string
	record := func(_ context.Context, from, to statemachine.State, ev statemachine.Event, _ any) error {
		trail = append(trail, from.Name()+">"+to.Name()+"@"+ev.Name())
		return nil
	}
	boom := errors.New("boom")
	fail := func(context.Context, statemachine.State, statemachine.State, statemachine.Event, any) error {
		return boom
	}

	sm := statemachine.MustNew(idle,
		statemachine.WithTransition(idle, running, start, statemachine.WithAction(record)),
		statemachine.WithTransition(running, done, finish, statemachine.WithAction(fail)),
	)

	require.NoError(t, sm.Fire(context.Background(), start, nil))
	assert.Equal(t, []string{"idle>running@start"}, trail)

	err := sm.Fire(context.Background(), finish, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, running, sm.Current(), "failed action keeps the state")
}

func TestInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New(nil)
	assert.Error(t, err)

	_, err = statemachine.New(idle, statemachine.WithTransition(nil, running, start))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	sm := statemachine.MustNew(idle)
	assert.ErrorIs(t, sm.Fire(context.Background(), nil, nil), statemachine.ErrInvalidEvent)
	assert.False(t, sm.Is(nil))
	assert.Panics(t, func() { statemachine.MustNew(nil) })
}
