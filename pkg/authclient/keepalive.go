package authclient

import (
	"context"
	"sync"
	"time"
)

// KeepAlive calls tick every interval between Start and Stop. Start and Stop
// never block, so both are safe to call from store change hooks.
type KeepAlive struct {
	parent   context.Context
	interval time.Duration
	tick     func(context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

func NewKeepAlive(parent context.Context, interval time.Duration, tick func(context.Context)) *KeepAlive {
	return &KeepAlive{parent: parent, interval: interval, tick: tick}
}

// Start launches the ticker unless it is already running.
func (k *KeepAlive) Start() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed || k.cancel != nil || k.parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithCancel(k.parent)
	k.cancel = cancel
	k.wg.Add(1)
	go k.loop(ctx)
}

// Stop cancels the ticker and any tick in progress.
func (k *KeepAlive) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.cancel != nil {
		k.cancel()
		k.cancel = nil
	}
}

func (k *KeepAlive) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cancel != nil
}

// Shutdown stops the ticker for good and waits for the loop to exit.
func (k *KeepAlive) Shutdown() {
	k.mu.Lock()
	k.closed = true
	if k.cancel != nil {
		k.cancel()
		k.cancel = nil
	}
	k.mu.Unlock()

	k.wg.Wait()
}

func (k *KeepAlive) loop(ctx context.Context) {
	defer k.wg.Done()

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.tick(ctx)
		}
	}
}
