package scheduler

import (
	"testing"
	"time"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	for _, expr := range []string{"* * * * *", "@hourly", "@every 1m"} {
		if err := s.AddJob(expr, func() {}); err != nil {
			t.Errorf("AddJob(%q) returned error: %v", expr, err)
		}
	}
	if s.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", s.Len())
	}
}

func TestSchedulerRejectsInvalidExpression(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	for _, expr := range []string{"", "every minute", "* * * * * *", "@every nope"} {
		if err := s.AddJob(expr, func() {}); err == nil {
			t.Errorf("AddJob(%q): expected error", expr)
		}
	}
	if s.Len() != 0 {
		t.Errorf("invalid jobs must not be scheduled, got %d", s.Len())
	}
}

func TestSchedulerRecoversPanics(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	ran := make(chan struct{}, 4)
	if err := s.AddJob("@every 1s", func() {
		ran <- struct{}{}
		panic("boom")
	}); err != nil {
		t.Fatal(err)
	}

	// A panic in the first run must not stop the second.
	for i := 0; i < 2; i++ {
		select {
		case <-ran:
		case <-time.After(5 * time.Second):
			t.Fatalf("job run %d did not happen", i+1)
		}
	}
}
