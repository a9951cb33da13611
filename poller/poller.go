// Package poller drives periodic address recomputation on its own goroutine.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// DefaultInterval bounds polling overhead; it is not a correctness requirement.
const DefaultInterval = 450 * time.Millisecond

// State of a Loop. Stopped is terminal.
type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// ErrNotIdle is returned by Start on a loop that already ran.
var ErrNotIdle = errors.New("poller: loop is not idle")

// Recomputer is the work done every cycle.
type Recomputer interface {
	Recompute() error
}

// Publisher announces a finished cycle.
type Publisher interface {
	SendWork()
}

// Loop sleeps, recomputes and publishes a work tick, forever, until stopped.
// Recompute errors are logged and never end the loop.
type Loop struct {
	work     Recomputer
	bus      Publisher
	interval time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	state   State
	started bool
	stop    chan struct{}
	done    chan struct{}

	lastErr string
}

// New creates an idle loop. A non-positive interval selects DefaultInterval.
func New(work Recomputer, bus Publisher, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		work:     work,
		bus:      bus,
		interval: interval,
		log:      logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "poller")),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// State returns the current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Interval returns the time slept before each cycle.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Start moves the loop from Idle to Running. Cancelling ctx has the same
// effect as Stop, without waiting.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Idle {
		return ErrNotIdle
	}
	l.state = Running
	l.started = true

	go l.run(ctx)

	l.log.Infoln("Polling every", l.interval)
	return nil
}

// Stop ends the loop and waits for an in-flight cycle to finish. No work tick
// fires after Stop returns. Stopping an idle loop makes it unusable.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.state != Stopped {
		l.state = Stopped
		close(l.stop)
	}
	started := l.started
	l.mu.Unlock()

	if started {
		<-l.done
	}
}

// Done is closed once the polling goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	defer l.markStopped()

	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// stop may have raced with the timer, do not begin a new cycle
		select {
		case <-l.stop:
			return
		default:
		}

		l.cycle()
		timer.Reset(l.interval)
	}
}

func (l *Loop) cycle() {
	err := l.work.Recompute()
	l.report(err)

	// consumers re-read the last good snapshot even when this cycle failed
	l.bus.SendWork()
}

// report logs a cycle error once per change so a dead target does not flood the log.
func (l *Loop) report(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == l.lastErr {
		return
	}
	l.lastErr = msg

	if err != nil {
		l.log.Warn("Recompute failed: ", err)
		return
	}
	l.log.Infoln("Recompute recovered")
}

func (l *Loop) markStopped() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Stopped {
		l.state = Stopped
		close(l.stop)
	}
}
