package session

import (
	"fmt"
	"sync"
	"time"

	"quizhub-service/internal/domain"
)

// Ticker is the scheduling primitive behind Timer.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

// NewRealTicker wraps time.Ticker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()                { r.t.Stop() }

// Timer is a one-second resolution countdown.
// onTick runs after every decrement and onExpire runs exactly once when remaining reaches zero.
// Both callbacks run without the timer lock held.
type Timer struct {
	newTicker TickerFactory
	onTick    func(remaining int)
	onExpire  func()

	mu        sync.Mutex
	remaining int
	started   bool
	running   bool
	expired   bool
	stop      chan struct{}
}

func NewTimer(newTicker TickerFactory, onTick func(remaining int), onExpire func()) *Timer {
	if newTicker == nil {
		newTicker = NewRealTicker
	}
	return &Timer{
		newTicker: newTicker,
		onTick:    onTick,
		onExpire:  onExpire,
	}
}

// Start begins the countdown. A timer can only be started once.
func (t *Timer) Start(durationSeconds int) error {
	if durationSeconds <= 0 {
		return fmt.Errorf("%w: timer duration must be positive, got %d", domain.ErrConfiguration, durationSeconds)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return fmt.Errorf("%w: timer already started", domain.ErrInvalidState)
	}
	t.started = true
	t.running = true
	t.remaining = durationSeconds
	t.stop = make(chan struct{})

	go t.run(t.newTicker(time.Second), t.stop)
	return nil
}

func (t *Timer) run(ticker Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if done := t.tick(); done {
				return
			}
		}
	}
}

// tick accounts for one elapsed second and reports whether the timer is done.
func (t *Timer) tick() bool {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return true
	}
	if t.remaining > 0 {
		t.remaining--
	}
	remaining := t.remaining
	expired := remaining == 0
	if expired {
		t.running = false
		t.expired = true
		close(t.stop)
	}
	t.mu.Unlock()

	if t.onTick != nil {
		t.onTick(remaining)
	}
	if expired && t.onExpire != nil {
		t.onExpire()
	}
	return expired
}

// Stop cancels ticking. It is a no-op before Start, after expiry, or after a prior Stop.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	close(t.stop)
}

// Remaining returns the seconds left.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Expired reports whether the countdown reached zero.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

// Running reports whether the timer is still ticking.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
