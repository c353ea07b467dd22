package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	cb := New(Config{})

	if cb.threshold != 5 {
		t.Errorf("Expected default threshold 5, got %d", cb.threshold)
	}
	if cb.cooldown != 5*time.Minute {
		t.Errorf("Expected default cooldown 5m, got %v", cb.cooldown)
	}
	if cb.halfOpenTimeout != 30*time.Second {
		t.Errorf("Expected default halfOpenTimeout 30s, got %v", cb.halfOpenTimeout)
	}
	if cb.Name() != "default" {
		t.Errorf("Expected default name 'default', got %q", cb.Name())
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected initial state CLOSED, got %s", cb.State())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "CLOSED"},
		{StateOpen, "OPEN"},
		{StateHalfOpen, "HALF-OPEN"},
		{State(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New(Config{Threshold: 3, Cooldown: time.Minute})

	for i := 1; i < 3; i++ {
		cb.RecordFailure()
		if cb.State() != StateClosed {
			t.Fatalf("Expected CLOSED after %d failures, got %s", i, cb.State())
		}
	}

	cb.RecordFailure()
	if !cb.IsOpen() {
		t.Fatalf("Expected OPEN after 3 failures, got %s", cb.State())
	}
	if cb.Allow() {
		t.Error("Expected Allow() to be false while OPEN")
	}
	if cb.TimeUntilRetry() <= 0 {
		t.Error("Expected positive TimeUntilRetry while OPEN")
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := New(Config{Threshold: 3})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	if cb.Failures() != 0 {
		t.Errorf("Expected failures reset to 0, got %d", cb.Failures())
	}
	cb.RecordFailure()
	if cb.State() != StateClosed {
		t.Errorf("Expected CLOSED after reset streak, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	tests := []struct {
		name      string
		probeOK   bool
		wantState State
	}{
		{"probe succeeds", true, StateClosed},
		{"probe fails", false, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := New(Config{Threshold: 1, Cooldown: 10 * time.Millisecond})
			cb.RecordFailure()
			time.Sleep(20 * time.Millisecond)

			if !cb.Allow() {
				t.Fatal("Expected probe to be allowed after cooldown")
			}
			if !cb.IsHalfOpen() {
				t.Fatalf("Expected HALF-OPEN, got %s", cb.State())
			}
			if cb.Allow() {
				t.Error("Expected second caller to be blocked while probing")
			}

			if tt.probeOK {
				cb.RecordSuccess()
			} else {
				cb.RecordFailure()
			}
			if cb.State() != tt.wantState {
				t.Errorf("Expected %s, got %s", tt.wantState, cb.State())
			}
		})
	}
}

func TestCircuitBreaker_HalfOpenTimeout(t *testing.T) {
	cb := New(Config{Threshold: 1, Cooldown: 10 * time.Millisecond, HalfOpenTimeout: 10 * time.Millisecond})
	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("Expected probe to be allowed")
	}
	time.Sleep(20 * time.Millisecond)

	if cb.Allow() {
		t.Error("Expected Allow() false once the probe window expired")
	}
	if !cb.IsOpen() {
		t.Errorf("Expected OPEN after probe timeout, got %s", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := New(Config{Threshold: 1, Cooldown: time.Hour})
	cb.RecordFailure()
	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("Expected CLOSED after Reset, got %s", cb.State())
	}
	if cb.Failures() != 0 {
		t.Errorf("Expected 0 failures after Reset, got %d", cb.Failures())
	}
	if cb.TimeUntilRetry() != 0 {
		t.Errorf("Expected 0 TimeUntilRetry after Reset, got %v", cb.TimeUntilRetry())
	}
}

func TestCircuitBreaker_Do(t *testing.T) {
	errUpstream := errors.New("upstream down")
	errNotFound := errors.New("not found")
	ignore := func(err error) bool { return errors.Is(err, errNotFound) }

	cb := New(Config{Threshold: 2, Cooldown: time.Hour})

	if err := cb.Do(func() error { return nil }, ignore); err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}

	if err := cb.Do(func() error { return errNotFound }, ignore); !errors.Is(err, errNotFound) {
		t.Fatalf("Expected errNotFound, got %v", err)
	}
	if cb.Failures() != 0 {
		t.Errorf("Ignored errors should not count, got %d failures", cb.Failures())
	}

	_ = cb.Do(func() error { return errUpstream }, ignore)
	_ = cb.Do(func() error { return errUpstream }, ignore)
	if !cb.IsOpen() {
		t.Fatalf("Expected OPEN after 2 upstream failures, got %s", cb.State())
	}

	called := false
	err := cb.Do(func() error { called = true; return nil }, ignore)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("fn must not run while OPEN")
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var mu sync.Mutex
	var transitions []string

	cb := New(Config{
		Name:      "youtube",
		Threshold: 1,
		Cooldown:  10 * time.Millisecond,
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	cb.Allow()
	cb.RecordSuccess()

	want := []string{
		"youtube:CLOSED->OPEN",
		"youtube:OPEN->HALF-OPEN",
		"youtube:HALF-OPEN->CLOSED",
	}
	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != len(want) {
		t.Fatalf("Expected %d transitions, got %v", len(want), transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_Snapshot(t *testing.T) {
	cb := New(Config{Name: "youtube", Threshold: 2, Cooldown: time.Minute})
	cb.RecordFailure()

	snap := cb.Snapshot()
	if snap.Name != "youtube" || snap.State != "CLOSED" || snap.Failures != 1 || snap.Threshold != 2 {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
	if snap.LastFailure.IsZero() {
		t.Error("Expected LastFailure to be set")
	}

	cb.RecordFailure()
	snap = cb.Snapshot()
	if snap.State != "OPEN" || snap.RetryInSeconds <= 0 {
		t.Errorf("Expected OPEN snapshot with retry time, got %+v", snap)
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := New(Config{Threshold: 1000, Cooldown: time.Second})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				cb.Allow()
				if (i+j)%2 == 0 {
					cb.RecordFailure()
				} else {
					cb.RecordSuccess()
				}
				_ = cb.Snapshot()
			}
		}(i)
	}
	wg.Wait()
}
