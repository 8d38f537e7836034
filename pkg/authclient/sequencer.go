package authclient

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/authsession/pkg/authstate"
	"github.com/dmitrymomot/authsession/pkg/identity"
	"github.com/dmitrymomot/authsession/pkg/logger"
	"github.com/dmitrymomot/authsession/pkg/statemachine"
)

// Initialization phases.
const (
	PhaseIdle            = statemachine.StringState("idle")
	PhaseStarting        = statemachine.StringState("starting")
	PhaseResolving       = statemachine.StringState("resolving")
	PhaseRefreshing      = statemachine.StringState("refreshing")
	PhaseResolved        = statemachine.StringState("resolved")
	PhaseUnauthenticated = statemachine.StringState("unauthenticated")
	PhaseTimedOut        = statemachine.StringState("timed_out")
	PhaseCancelled       = statemachine.StringState("cancelled")
)

const (
	eventResolve = statemachine.StringEvent("resolve")
	eventFound   = statemachine.StringEvent("identity_found")
	eventAbsent  = statemachine.StringEvent("identity_absent")
	eventTimeout = statemachine.StringEvent("timeout")
	eventCancel  = statemachine.StringEvent("cancel")
)

// Outcome is how an initialization run ended.
type Outcome string

const (
	OutcomeResolved        Outcome = "resolved"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeTimedOut        Outcome = "timed_out"
	OutcomeCancelled       Outcome = "cancelled"
)

type sequenceResult struct {
	outcome  Outcome
	identity *identity.Identity
}

// Sequencer runs the startup sequence: resolve, refresh once on failure,
// resolve again, all bounded by a single timeout. Once a run starts the
// guard stays taken until Reset, unless the run was cancelled.
type Sequencer struct {
	store     *authstate.Store
	resolver  *Resolver
	refresher *Refresher
	timeout   time.Duration
	logger    *slog.Logger

	mu        sync.Mutex
	running   bool
	completed bool
	runID     uint64
	cancel  context.CancelFunc
	machine *statemachine.SimpleStateMachine
	wg      sync.WaitGroup
}

func NewSequencer(store *authstate.Store, resolver *Resolver, refresher *Refresher, timeout time.Duration, log *slog.Logger) *Sequencer {
	if timeout <= 0 {
		timeout = DefaultConfig().InitTimeout
	}
	return &Sequencer{
		store:     store,
		resolver:  resolver,
		refresher: refresher,
		timeout:   timeout,
		logger:    logger.OrDiscard(log).With(logger.Component("sequencer")),
	}
}

// Run executes the sequence and blocks until it ends.
func (s *Sequencer) Run(ctx context.Context) (Outcome, error) {
	done, err := s.Start(ctx)
	if err != nil {
		return "", err
	}
	return <-done, nil
}

// Start launches the sequence in the background. The channel yields the
// outcome once the store has been updated. It returns ErrAlreadyRunning while
// a previous run is active and ErrAlreadyInitialized after one reached a
// verdict, until Reset.
func (s *Sequencer) Start(ctx context.Context) (<-chan Outcome, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	if s.completed {
		s.mu.Unlock()
		return nil, ErrAlreadyInitialized
	}
	s.running = true
	s.runID++
	id := s.runID
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	machine := s.newMachine()
	s.machine = machine
	s.wg.Add(1)
	s.mu.Unlock()

	done := make(chan Outcome, 1)
	go func() {
		defer s.wg.Done()
		outcome := s.run(runCtx, machine)
		cancel()
		s.finish(id, outcome)
		done <- outcome
	}()
	return done, nil
}

// Reset cancels the active run, if any, and allows a new one to start.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	cancel := s.cancel
	s.running = false
	s.completed = false
	s.cancel = nil
	s.runID++
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Wait blocks until every started run has returned.
func (s *Sequencer) Wait() {
	s.wg.Wait()
}

// Running reports whether a run is in progress.
func (s *Sequencer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Phase returns the phase of the most recent run.
func (s *Sequencer) Phase() statemachine.State {
	s.mu.Lock()
	machine := s.machine
	s.mu.Unlock()

	if machine == nil {
		return PhaseIdle
	}
	return machine.Current()
}

func (s *Sequencer) finish(id uint64, outcome Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID == id {
		s.running = false
		s.completed = outcome != OutcomeCancelled
		s.cancel = nil
	}
}

func (s *Sequencer) run(ctx context.Context, machine statemachine.Machine) Outcome {
	start := time.Now()
	gen := s.store.Begin()

	scope, stop := context.WithTimeout(ctx, s.timeout)
	defer stop()

	result := make(chan sequenceResult, 1)
	go func() {
		result <- s.sequence(scope, machine)
	}()

	select {
	case res := <-result:
		if res.outcome != "" {
			if !s.store.Commit(gen, res.identity) {
				s.logger.DebugContext(ctx, "initialization result discarded", logger.Generation(gen))
			}
			event := eventFound
			if res.outcome == OutcomeUnauthenticated {
				event = eventAbsent
			}
			s.fire(scope, machine, event)
			s.logger.DebugContext(ctx, "initialization finished",
				logger.Phase(string(res.outcome)),
				logger.UserID(identityID(res.identity)),
				logger.Duration(time.Since(start)),
			)
			return res.outcome
		}
	case <-scope.Done():
	}

	if ctx.Err() != nil {
		s.store.Settle(gen)
		s.fire(context.WithoutCancel(ctx), machine, eventCancel)
		s.logger.DebugContext(ctx, "initialization cancelled", logger.Duration(time.Since(start)))
		return OutcomeCancelled
	}

	s.store.Commit(gen, nil)
	s.fire(context.WithoutCancel(ctx), machine, eventTimeout)
	s.logger.WarnContext(ctx, "initialization timed out", logger.Duration(s.timeout))
	return OutcomeTimedOut
}

// sequence returns a zero result when ctx ends before it reaches a verdict.
func (s *Sequencer) sequence(ctx context.Context, machine statemachine.Machine) sequenceResult {
	s.fire(ctx, machine, eventResolve)
	id, err := s.resolver.Resolve(ctx)
	if ctx.Err() != nil {
		return sequenceResult{}
	}
	if err == nil {
		return sequenceResult{outcome: OutcomeResolved, identity: id}
	}

	s.fire(ctx, machine, eventAbsent)
	if !s.refresher.Refresh(ctx) {
		if ctx.Err() != nil {
			return sequenceResult{}
		}
		return sequenceResult{outcome: OutcomeUnauthenticated}
	}

	id, err = s.resolver.Resolve(ctx)
	if ctx.Err() != nil {
		return sequenceResult{}
	}
	if err != nil {
		return sequenceResult{outcome: OutcomeUnauthenticated}
	}
	return sequenceResult{outcome: OutcomeResolved, identity: id}
}

func (s *Sequencer) fire(ctx context.Context, machine statemachine.Machine, event statemachine.Event) {
	if err := machine.Fire(ctx, event, nil); err != nil {
		s.logger.DebugContext(ctx, "initialization event ignored",
			logger.Phase(machine.Current().Name()),
			slog.String("event", event.Name()),
		)
	}
}

func (s *Sequencer) newMachine() *statemachine.SimpleStateMachine {
	trace := statemachine.WithAction(func(ctx context.Context, from, to statemachine.State, _ statemachine.Event, _ any) error {
		s.logger.DebugContext(ctx, "initialization phase changed",
			slog.String("from", from.Name()),
			logger.Phase(to.Name()),
		)
		return nil
	})

	return statemachine.MustNew(PhaseStarting,
		statemachine.WithTransition(PhaseStarting, PhaseResolving, eventResolve, trace),
		statemachine.WithTransition(PhaseResolving, PhaseResolved, eventFound, trace),
		statemachine.WithTransition(PhaseResolving, PhaseRefreshing, eventAbsent, trace),
		statemachine.WithTransition(PhaseRefreshing, PhaseResolved, eventFound, trace),
		statemachine.WithTransition(PhaseRefreshing, PhaseUnauthenticated, eventAbsent, trace),
		statemachine.WithTransition(PhaseStarting, PhaseTimedOut, eventTimeout, trace),
		statemachine.WithTransition(PhaseResolving, PhaseTimedOut, eventTimeout, trace),
		statemachine.WithTransition(PhaseRefreshing, PhaseTimedOut, eventTimeout, trace),
		statemachine.WithTransition(PhaseStarting, PhaseCancelled, eventCancel, trace),
		statemachine.WithTransition(PhaseResolving, PhaseCancelled, eventCancel, trace),
		statemachine.WithTransition(PhaseRefreshing, PhaseCancelled, eventCancel, trace),
		statemachine.WithTerminal(PhaseResolved, PhaseUnauthenticated, PhaseTimedOut, PhaseCancelled),
	)
}

func identityID(id *identity.Identity) string {
	if id == nil {
		return ""
	}
	return id.ID
}
