package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestCircuitBreakerSuccess(t *testing.T) {
	config := DefaultConfig("test")
	config.OnStateChange = nil
	cb := New(config)

	result, err := cb.Execute(func() (any, error) {
		return "success", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %v", result)
	}
}

func TestCircuitBreakerOpensOnRepeatedFailure(t *testing.T) {
	config := DefaultConfig("test")
	config.OnStateChange = nil
	config.MaxFailures = 2
	cb := New(config)

	expectedErr := errors.New("test error")
	for i := 0; i < 5; i++ {
		if _, err := cb.Execute(func() (any, error) {
			return nil, expectedErr
		}); err == nil {
			t.Error("expected error, got nil")
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Errorf("expected state Open, got %v", cb.State())
	}
}

func TestCircuitBreakerIsSuccessfulExemptsClassifiedErrors(t *testing.T) {
	sentinel := errors.New("bad request")
	config := DefaultConfig("test")
	config.OnStateChange = nil
	config.MaxFailures = 2
	config.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, sentinel)
	}
	cb := New(config)

	// A classified error repeated well past MaxFailures must not trip the
	// breaker, since IsSuccessful tells gobreaker it isn't a real failure.
	for i := 0; i < 10; i++ {
		if _, err := cb.Execute(func() (any, error) {
			return nil, sentinel
		}); err == nil {
			t.Error("expected error, got nil")
		}
	}

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected state Closed, got %v", cb.State())
	}

	// An unclassified error still counts normally.
	for i := 0; i < 5; i++ {
		cb.Execute(func() (any, error) {
			return nil, errors.New("transient")
		})
	}
	if cb.State() != gobreaker.StateOpen {
		t.Errorf("expected state Open, got %v", cb.State())
	}
}

func TestCircuitBreakerStateTransitions(t *testing.T) {
	config := DefaultConfig("test")
	config.MaxFailures = 2
	config.Timeout = 100 * time.Millisecond
	config.OnStateChange = nil

	var stateChanges []string
	config.OnStateChange = func(name string, from gobreaker.State, to gobreaker.State) {
		stateChanges = append(stateChanges, to.String())
	}

	cb := New(config)

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected initial state Closed, got %v", cb.State())
	}

	for i := 0; i < 5; i++ {
		cb.Execute(func() (any, error) {
			return nil, errors.New("fail")
		})
	}

	if cb.State() != gobreaker.StateOpen {
		t.Errorf("expected state Open, got %v", cb.State())
	}

	time.Sleep(150 * time.Millisecond)

	cb.Execute(func() (any, error) {
		return "success", nil
	})

	if len(stateChanges) < 1 {
		t.Error("expected state changes, got none")
	}
}

func TestCircuitBreakerExecuteWithContext(t *testing.T) {
	config := DefaultConfig("test")
	config.OnStateChange = nil
	cb := New(config)

	result, err := cb.ExecuteWithContext(context.Background(), func() (any, error) {
		return "success", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %v", result)
	}
}

func TestCircuitBreakerExecuteWithContextCanceled(t *testing.T) {
	config := DefaultConfig("test")
	config.OnStateChange = nil
	cb := New(config)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cb.ExecuteWithContext(ctx, func() (any, error) {
		return "should not execute", nil
	})

	if err != context.Canceled {
		t.Errorf("expected context.Canceled error, got %v", err)
	}
}

func TestCircuitBreakerCounts(t *testing.T) {
	config := DefaultConfig("test")
	config.OnStateChange = nil
	cb := New(config)

	cb.Execute(func() (any, error) { return "ok", nil })
	cb.Execute(func() (any, error) { return nil, errors.New("fail") })
	cb.Execute(func() (any, error) { return "ok", nil })

	counts := cb.Counts()
	if counts.Requests != 3 {
		t.Errorf("expected 3 requests, got %d", counts.Requests)
	}
}
