package loop

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/binsight/go-binsight/pkg/camera"
	"github.com/binsight/go-binsight/pkg/classify"
)

// mockDispatcher records dispatched categories.
type mockDispatcher struct {
	mu    sync.Mutex
	calls []classify.Category
}

func (m *mockDispatcher) Dispatch(ctx context.Context, c classify.Category) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	return "signaled " + c.Bin() + " bin"
}

func (m *mockDispatcher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestLoop_EnableRunsCycle(t *testing.T) {
	cam := camera.NewMock()
	cls := classify.NewMock()
	disp := &mockDispatcher{}

	l := New(cam, cls, disp, 10*time.Millisecond)
	l.Enable()
	defer l.Disable()

	waitFor(t, time.Second, func() bool { return disp.count() >= 1 }, "first dispatch")

	snap := l.Snapshot()
	if snap.LastResult == nil {
		t.Fatal("LastResult not recorded")
	}
	if snap.LastResult.Category != classify.CategoryRecycle {
		t.Errorf("Category: got %v", snap.LastResult.Category)
	}
	if snap.LastSignal == "" {
		t.Error("LastSignal not recorded")
	}
	if snap.LastError != "" {
		t.Errorf("LastError: got %q, want empty", snap.LastError)
	}
}

func TestLoop_SingleFlightInvariant(t *testing.T) {
	var inFlight, maxInFlight atomic.Int64

	cam := camera.NewMock()
	cls := &classify.Mock{
		ClassifyFunc: func(ctx context.Context, jpeg []byte) (classify.Result, error) {
			n := inFlight.Add(1)
			for {
				cur := maxInFlight.Load()
				if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(3 * time.Millisecond)
			inFlight.Add(-1)
			return classify.Result{Category: classify.CategoryCompost}, nil
		},
	}
	disp := &mockDispatcher{}

	l := New(cam, cls, disp, time.Millisecond)

	// Random enable/disable churn while the loop runs.
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		if rng.Intn(2) == 0 {
			l.Enable()
		} else {
			l.Disable()
		}
		time.Sleep(time.Duration(rng.Intn(4)) * time.Millisecond)
	}
	l.Disable()
	waitFor(t, time.Second, func() bool { return !l.Snapshot().Busy }, "in-flight drain")

	if got := maxInFlight.Load(); got > 1 {
		t.Fatalf("max concurrent classifications: got %d, want at most 1", got)
	}
}

func TestLoop_DisableDuringFlight_NoReschedule(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	cam := camera.NewMock()
	cls := &classify.Mock{
		ClassifyFunc: func(ctx context.Context, jpeg []byte) (classify.Result, error) {
			started <- struct{}{}
			<-release
			return classify.Result{Object: "bottle", Category: classify.CategoryRecycle}, nil
		},
	}
	disp := &mockDispatcher{}

	l := New(cam, cls, disp, 5*time.Millisecond)
	l.Enable()

	<-started
	if !l.Snapshot().Busy {
		t.Fatal("loop should be busy while classification is in flight")
	}

	l.Disable()
	close(release)

	waitFor(t, time.Second, func() bool { return !l.Snapshot().Busy }, "flight resolution")

	// The in-flight result is still applied to state.
	snap := l.Snapshot()
	if snap.LastResult == nil || snap.LastResult.Object != "bottle" {
		t.Errorf("late result not applied: %+v", snap.LastResult)
	}
	if snap.State != "idle" {
		t.Errorf("State: got %q, want idle", snap.State)
	}

	// No new tick may fire after the flight resolves.
	before := cls.CallCount()
	time.Sleep(50 * time.Millisecond)
	if after := cls.CallCount(); after != before {
		t.Errorf("classifications after disable: got %d, want %d", after, before)
	}
}

func TestLoop_NoOpTicks_WhileSourceUnready(t *testing.T) {
	cam := camera.NewMock()
	cam.SetReady(false)
	cls := classify.NewMock()
	disp := &mockDispatcher{}

	l := New(cam, cls, disp, 10*time.Millisecond)
	l.Enable()

	// Unready source degrades to no-op ticks; the loop keeps ticking.
	waitFor(t, time.Second, func() bool { return l.Snapshot().NoOpTicks >= 3 }, "no-op ticks")
	l.Disable()

	snap := l.Snapshot()
	if snap.NoOpTicks != snap.Ticks {
		t.Errorf("every tick should be a no-op: ticks=%d noops=%d", snap.Ticks, snap.NoOpTicks)
	}
	if cls.CallCount() != 0 {
		t.Errorf("classifier called %d times with unready source", cls.CallCount())
	}
	if disp.count() != 0 {
		t.Errorf("dispatcher called %d times with unready source", disp.count())
	}

	// Exactly one future tick per no-op tick: after disable, ticking stops.
	ticks := l.Snapshot().Ticks
	time.Sleep(50 * time.Millisecond)
	if got := l.Snapshot().Ticks; got != ticks {
		t.Errorf("ticks after disable: got %d, want %d", got, ticks)
	}
}

func TestLoop_SourceRecoversMidRun(t *testing.T) {
	cam := camera.NewMock()
	cam.SetReady(false)
	cls := classify.NewMock()
	disp := &mockDispatcher{}

	l := New(cam, cls, disp, 5*time.Millisecond)
	l.Enable()
	defer l.Disable()

	waitFor(t, time.Second, func() bool { return l.Snapshot().NoOpTicks >= 2 }, "no-op ticks")

	cam.SetReady(true)
	waitFor(t, time.Second, func() bool { return disp.count() >= 1 }, "dispatch after recovery")
}

func TestLoop_NeverDispatchesNonDispatchable(t *testing.T) {
	for _, category := range []classify.Category{classify.CategoryNotApplicable, classify.CategoryError} {
		cam := camera.NewMock()
		cls := classify.WithResult(classify.Result{Object: "person", Category: category, Reason: "not a waste object"})
		disp := &mockDispatcher{}

		l := New(cam, cls, disp, 5*time.Millisecond)
		l.Enable()

		waitFor(t, time.Second, func() bool { return cls.CallCount() >= 3 }, "classifications")
		l.Disable()
		waitFor(t, time.Second, func() bool { return !l.Snapshot().Busy }, "drain")

		if disp.count() != 0 {
			t.Errorf("%v: dispatcher invoked %d times, want 0", category, disp.count())
		}
		snap := l.Snapshot()
		if snap.LastSignal == "" {
			t.Errorf("%v: skip status not recorded", category)
		}
	}
}

func TestLoop_DispatchesOncePerSuccess(t *testing.T) {
	cam := camera.NewMock()
	cls := classify.NewMock()
	disp := &mockDispatcher{}

	l := New(cam, cls, disp, 5*time.Millisecond)
	l.Enable()

	waitFor(t, time.Second, func() bool { return cls.CallCount() >= 4 }, "classifications")
	l.Disable()
	waitFor(t, time.Second, func() bool { return !l.Snapshot().Busy }, "drain")

	if disp.count() != cls.CallCount() {
		t.Errorf("dispatches: got %d, want %d (one per successful classification)",
			disp.count(), cls.CallCount())
	}
}

func TestLoop_ClassifierFailure_LoopContinues(t *testing.T) {
	cam := camera.NewMock()
	cls := classify.WithError(errors.New("network down"))
	disp := &mockDispatcher{}

	l := New(cam, cls, disp, 5*time.Millisecond)
	l.Enable()
	defer l.Disable()

	waitFor(t, time.Second, func() bool { return cls.CallCount() >= 3 }, "repeated attempts")

	snap := l.Snapshot()
	if snap.LastError == "" {
		t.Error("LastError not recorded")
	}
	if disp.count() != 0 {
		t.Errorf("dispatcher invoked %d times on failures", disp.count())
	}
	if !snap.Enabled {
		t.Error("loop must stay enabled through classifier failures")
	}
}

func TestLoop_CaptureFailure_LoopContinues(t *testing.T) {
	cam := camera.NewMock()
	cam.CaptureFunc = func() ([]byte, error) { return nil, errors.New("device stalled") }
	cls := classify.NewMock()
	disp := &mockDispatcher{}

	l := New(cam, cls, disp, 5*time.Millisecond)
	l.Enable()
	defer l.Disable()

	waitFor(t, time.Second, func() bool { return l.Snapshot().Completed >= 2 }, "failed cycles")

	snap := l.Snapshot()
	if snap.LastError == "" {
		t.Error("capture error not recorded")
	}
	if cls.CallCount() != 0 {
		t.Errorf("classifier called %d times despite capture failures", cls.CallCount())
	}
}

func TestLoop_EnableIsIdempotent(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})

	cam := camera.NewMock()
	cls := &classify.Mock{
		ClassifyFunc: func(ctx context.Context, jpeg []byte) (classify.Result, error) {
			started <- struct{}{}
			<-release
			return classify.Result{Category: classify.CategoryLandfill}, nil
		},
	}

	l := New(cam, cls, &mockDispatcher{}, time.Hour)
	l.Enable()
	l.Enable()
	l.Enable()

	<-started
	select {
	case <-started:
		t.Fatal("double Enable started a second classification")
	case <-time.After(30 * time.Millisecond):
	}

	l.Disable()
	close(release)
	waitFor(t, time.Second, func() bool { return !l.Snapshot().Busy }, "drain")
}

func TestLoop_OnFrameAndOnUpdate(t *testing.T) {
	cam := camera.NewMock()
	cls := classify.NewMock()
	disp := &mockDispatcher{}

	var frames, updates atomic.Int64

	l := New(cam, cls, disp, 5*time.Millisecond)
	l.OnFrame = func(jpeg []byte) {
		if len(jpeg) == 0 {
			t.Error("OnFrame received empty frame")
		}
		frames.Add(1)
	}
	l.OnUpdate = func(s Snapshot) { updates.Add(1) }

	l.Enable()
	waitFor(t, time.Second, func() bool { return frames.Load() >= 2 }, "preview frames")
	l.Disable()

	if updates.Load() == 0 {
		t.Error("OnUpdate never invoked")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateIdle, "idle"},
		{StateArmed, "armed"},
		{StateInFlight, "in_flight"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String(): got %q, want %q", tt.s, got, tt.want)
		}
	}
}
