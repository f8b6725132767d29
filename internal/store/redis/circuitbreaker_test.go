package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ta-engine/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

var errStore = errors.New("connection reset")

// fakeClock drives the breaker's reset timeout without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(maxFailures, 10*time.Second)
	cb.now = clock.now
	return cb, clock
}

func fail(context.Context) error { return errStore }
func ok(context.Context) error   { return nil }

func trip(t *testing.T, cb *CircuitBreaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		cb.Execute(context.Background(), fail)
	}
	if cb.CurrentState() != StateOpen {
		t.Fatalf("expected Open after %d failures, got %v", n, cb.CurrentState())
	}
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb, _ := newTestBreaker(3)
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb, clock := newTestBreaker(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Execute(ctx, fail); !errors.Is(err, errStore) {
			t.Fatalf("call %d: expected store error, got %v", i, err)
		}
	}
	if cb.CurrentState() != StateOpen {
		t.Fatalf("expected Open, got %v", cb.CurrentState())
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("open breaker: err=%v called=%v", err, called)
	}

	clock.advance(9 * time.Second)
	if err := cb.Execute(ctx, ok); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("before reset timeout: err=%v", err)
	}
}

func TestCircuitBreaker_CallerCancellationIsNotAFailure(t *testing.T) {
	cb, _ := newTestBreaker(2)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		err := cb.Execute(cancelled, func(context.Context) error {
			t.Fatal("fn must not run with a cancelled context")
			return nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	}

	// The context expires while the call is in flight.
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cb.Execute(ctx, func(ctx context.Context) error {
			cancel()
			return fmt.Errorf("xrange: %w", ctx.Err())
		})
	}
	// A deadline error reported by fn, with the caller's ctx still live.
	for i := 0; i < 5; i++ {
		cb.Execute(context.Background(), func(context.Context) error {
			return fmt.Errorf("read: %w", context.DeadlineExceeded)
		})
	}

	if cb.CurrentState() != StateClosed {
		t.Fatalf("expected Closed, got %v", cb.CurrentState())
	}
	if err := cb.Execute(context.Background(), ok); err != nil {
		t.Errorf("fresh call: %v", err)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(2)
	trip(t, cb, 2)

	clock.advance(11 * time.Second)
	if err := cb.Execute(context.Background(), ok); err != nil {
		t.Fatalf("trial call: %v", err)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed after successful trial, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(2)
	trip(t, cb, 2)

	clock.advance(11 * time.Second)
	cb.Execute(context.Background(), fail)
	if cb.CurrentState() != StateOpen {
		t.Fatalf("expected Open after failed trial, got %v", cb.CurrentState())
	}
	// The reset timeout restarts from the failed trial.
	clock.advance(5 * time.Second)
	if err := cb.Execute(context.Background(), ok); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_HalfOpenAdmitsSingleTrial(t *testing.T) {
	cb, clock := newTestBreaker(1)
	trip(t, cb, 1)
	clock.advance(11 * time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	for i := 0; i < 3; i++ {
		if err := cb.Execute(context.Background(), ok); !errors.Is(err, ErrCircuitOpen) {
			t.Errorf("concurrent call %d during trial: err = %v, want ErrCircuitOpen", i, err)
		}
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("trial: %v", err)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_AbandonedTrialStaysHalfOpen(t *testing.T) {
	cb, clock := newTestBreaker(1)
	trip(t, cb, 1)
	clock.advance(11 * time.Second)

	cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	if cb.CurrentState() != StateHalfOpen {
		t.Fatalf("expected HalfOpen, got %v", cb.CurrentState())
	}
	if err := cb.Execute(context.Background(), ok); err != nil {
		t.Fatalf("next trial should run: %v", err)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(3)
	ctx := context.Background()

	cb.Execute(ctx, fail)
	cb.Execute(ctx, fail)
	cb.Execute(ctx, ok)
	cb.Execute(ctx, fail)
	cb.Execute(ctx, fail)

	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed (count reset by success), got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_OnStateChangeCallback(t *testing.T) {
	cb, clock := newTestBreaker(1)
	var transitions []State
	cb.OnStateChange = func(from, to State) {
		transitions = append(transitions, to)
	}

	cb.Execute(context.Background(), fail)
	clock.advance(11 * time.Second)
	cb.Execute(context.Background(), ok)

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions = %v, want %v", transitions, want)
			break
		}
	}
}

func TestStore_CancelledReadsDoNotTripBreaker(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	s := &Store{client: client, cb: NewCircuitBreaker(defaultMaxFailures, time.Minute), maxLen: defaultStreamMaxLen}
	q := model.CandleQuery{Exchange: "NSE", Symbol: "SBIN", TF: 60}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < defaultMaxFailures; i++ {
		if _, err := s.ReadCandles(cancelled, q); !errors.Is(err, context.Canceled) {
			t.Fatalf("read %d: err = %v, want context.Canceled", i, err)
		}
	}

	_, err := s.ReadCandles(context.Background(), q)
	if errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("fresh read rejected by breaker: %v", err)
	}
	if s.Breaker().CurrentState() != StateClosed {
		t.Errorf("breaker state = %v, want Closed", s.Breaker().CurrentState())
	}
}
