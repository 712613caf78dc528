// Package loop runs the capture → classify → dispatch cycle.
//
// The loop is a timer-driven state machine with three states:
//
//	Idle     — disabled, nothing scheduled
//	Armed    — enabled, waiting for the next tick
//	InFlight — a classification is in progress
//
// At most one classification is ever in flight; a tick that finds the loop
// busy or the camera unready is a no-op tick that only reschedules itself.
// Disabling the loop cancels the next scheduled tick. An in-flight
// classification is never aborted: its result is still applied to state
// when it resolves, but it does not reschedule.
package loop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/binsight/go-binsight/internal/log"
	"github.com/binsight/go-binsight/pkg/camera"
	"github.com/binsight/go-binsight/pkg/classify"
)

// DefaultInterval is the delay between loop iterations.
const DefaultInterval = 3 * time.Second

// State is the loop's scheduling state.
type State int

// Loop states.
const (
	StateIdle State = iota
	StateArmed
	StateInFlight
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateInFlight:
		return "in_flight"
	default:
		return "unknown"
	}
}

// Dispatcher signals a bin category to the sorter and reports a status.
type Dispatcher interface {
	Dispatch(ctx context.Context, category classify.Category) string
}

// Snapshot is a point-in-time view of loop state for the dashboard.
type Snapshot struct {
	State      string           `json:"state"`
	Enabled    bool             `json:"enabled"`
	Busy       bool             `json:"busy"`
	LastResult *classify.Result `json:"last_result,omitempty"`
	LastError  string           `json:"last_error,omitempty"`
	LastSignal string           `json:"last_signal,omitempty"`
	Ticks      uint64           `json:"ticks"`
	NoOpTicks  uint64           `json:"noop_ticks"`
	Completed  uint64           `json:"classifications"`
}

// Loop orchestrates capture, classification, and dispatch on a fixed
// interval. Create with New, then Enable/Disable from any goroutine.
type Loop struct {
	source     camera.Provider
	classifier classify.Classifier
	dispatcher Dispatcher
	interval   time.Duration
	baseCtx    context.Context

	// OnUpdate is invoked after every state change with a fresh snapshot.
	// Set before Enable; not safe to change while running.
	OnUpdate func(Snapshot)

	// OnFrame receives every captured JPEG, for the live preview.
	// Set before Enable; not safe to change while running.
	OnFrame func(jpeg []byte)

	mu      sync.Mutex
	state   State
	enabled bool
	gen     uint64 // bumped on Disable; stale timers and flights check it
	timer   *time.Timer

	lastResult *classify.Result
	lastError  string
	lastSignal string
	ticks      uint64
	noops      uint64
	completed  uint64
}

// New creates a loop. A non-positive interval falls back to DefaultInterval.
func New(source camera.Provider, classifier classify.Classifier, dispatcher Dispatcher, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		source:     source,
		classifier: classifier,
		dispatcher: dispatcher,
		interval:   interval,
		baseCtx:    context.Background(),
	}
}

// Enable arms the loop and schedules an immediate first tick.
// Enabling an already-enabled loop is a no-op. If called while a drained
// classification is still resolving, the loop re-arms when it completes.
func (l *Loop) Enable() {
	l.mu.Lock()
	if l.enabled {
		l.mu.Unlock()
		return
	}
	l.enabled = true
	if l.state == StateIdle {
		l.setStateLocked(StateArmed)
		l.scheduleLocked(0)
	}
	l.mu.Unlock()

	log.Info("loop enabled", "interval", l.interval)
	l.notify()
}

// Disable cancels the next scheduled tick. An in-flight classification is
// allowed to complete; its result is applied but nothing is rescheduled.
func (l *Loop) Disable() {
	l.mu.Lock()
	if !l.enabled {
		l.mu.Unlock()
		return
	}
	l.enabled = false
	l.gen++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.state == StateArmed {
		l.setStateLocked(StateIdle)
	}
	l.mu.Unlock()

	log.Info("loop disabled")
	l.notify()
}

// Enabled reports whether the loop is enabled.
func (l *Loop) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Snapshot returns the current loop state.
func (l *Loop) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Loop) snapshotLocked() Snapshot {
	return Snapshot{
		State:      l.state.String(),
		Enabled:    l.enabled,
		Busy:       l.state == StateInFlight,
		LastResult: l.lastResult,
		LastError:  l.lastError,
		LastSignal: l.lastSignal,
		Ticks:      l.ticks,
		NoOpTicks:  l.noops,
		Completed:  l.completed,
	}
}

// setStateLocked is the single transition point. Callers hold l.mu.
func (l *Loop) setStateLocked(to State) {
	if l.state == to {
		return
	}
	log.Debug("loop transition", "from", l.state, "to", to)
	l.state = to
}

// scheduleLocked arms the tick timer. Callers hold l.mu. The captured
// generation lets Disable invalidate a timer that has already fired but
// not yet acquired the lock.
func (l *Loop) scheduleLocked(d time.Duration) {
	if l.timer != nil {
		l.timer.Stop()
	}
	gen := l.gen
	l.timer = time.AfterFunc(d, func() { l.tick(gen) })
}

// tick runs one loop iteration.
func (l *Loop) tick(gen uint64) {
	l.mu.Lock()
	if gen != l.gen || !l.enabled {
		// Stale timer from before a Disable.
		l.mu.Unlock()
		return
	}
	l.ticks++

	// Preconditions: not already busy, camera ready. A failed precondition
	// while enabled is a no-op tick: exactly one reschedule, no work.
	if l.state != StateArmed || !l.source.Ready() {
		l.noops++
		l.scheduleLocked(l.interval)
		l.mu.Unlock()
		l.notify()
		return
	}

	l.setStateLocked(StateInFlight)
	l.mu.Unlock()
	l.notify()

	l.process()
}

// process performs capture → classify → dispatch for one iteration.
// Runs outside the lock; resolve applies the outcome.
func (l *Loop) process() {
	frame, err := l.source.CaptureFrame()
	if err != nil {
		l.resolve(nil, fmt.Errorf("capture: %w", err), "")
		return
	}
	if l.OnFrame != nil {
		l.OnFrame(frame)
	}

	result, err := l.classifier.Classify(l.baseCtx, frame)
	if err != nil {
		l.resolve(nil, err, "")
		return
	}

	var status string
	if result.Category.Dispatchable() {
		status = l.dispatcher.Dispatch(l.baseCtx, result.Category)
	} else {
		// NotApplicable or Error from the model: no signal, keep the
		// model's reason visible.
		status = fmt.Sprintf("no dispatch (%s): %s", result.Category, result.Reason)
	}

	l.resolve(&result, nil, status)
}

// resolve applies an iteration's outcome and decides the next state.
// If the loop was disabled mid-flight the result is still recorded, but
// nothing is rescheduled.
func (l *Loop) resolve(result *classify.Result, err error, status string) {
	l.mu.Lock()
	l.completed++
	if result != nil {
		l.lastResult = result
		l.lastError = ""
	}
	if err != nil {
		l.lastError = err.Error()
		log.Warn("classification failed", "error", err)
	}
	if status != "" {
		l.lastSignal = status
	}

	if l.enabled {
		l.setStateLocked(StateArmed)
		l.scheduleLocked(l.interval)
	} else {
		l.setStateLocked(StateIdle)
	}
	l.mu.Unlock()
	l.notify()
}

// notify pushes a snapshot to OnUpdate. Called outside the lock.
func (l *Loop) notify() {
	if l.OnUpdate == nil {
		return
	}
	l.OnUpdate(l.Snapshot())
}
