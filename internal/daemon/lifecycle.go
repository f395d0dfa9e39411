package daemon

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Lifecycle merges the two ways the daemon stops, SIGINT/SIGTERM and a
// remote shutdown command, into one context. Whichever arrives first
// wins; later requests are no-ops.
type Lifecycle struct {
	ctx    context.Context
	cancel context.CancelFunc
	stop   context.CancelFunc
	grace  time.Duration

	once   sync.Once
	mu     sync.Mutex
	reason string
}

// NewLifecycle installs the signal handlers and returns the lifecycle.
// grace bounds how long shutdown waits for in-flight work.
func NewLifecycle(parent context.Context, grace time.Duration) *Lifecycle {
	sigCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(sigCtx)

	return &Lifecycle{
		ctx:    ctx,
		cancel: cancel,
		stop:   stop,
		grace:  grace,
	}
}

// Context is done once any shutdown trigger fired.
func (l *Lifecycle) Context() context.Context { return l.ctx }

// RequestShutdown cancels the context with the given reason. Only the
// first call records its reason.
func (l *Lifecycle) RequestShutdown(reason string) {
	l.once.Do(func() {
		l.mu.Lock()
		l.reason = reason
		l.mu.Unlock()
		l.cancel()
	})
}

// Wait blocks until shutdown and returns the reason. A shutdown caused
// by a signal rather than [Lifecycle.RequestShutdown] reports "signal".
func (l *Lifecycle) Wait() string {
	<-l.ctx.Done()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reason == "" {
		return "signal"
	}
	return l.reason
}

// GracePeriod is how long shutdown waits for in-flight work to drain.
func (l *Lifecycle) GracePeriod() time.Duration { return l.grace }

// Close releases the signal handlers.
func (l *Lifecycle) Close() {
	l.stop()
	l.cancel()
}
