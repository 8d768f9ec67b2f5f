package jobqueue

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestQueueRunsSubmittedJobs(t *testing.T) {
	clk := clock.New()
	q := New(clk, map[JobType]Limits{
		JobNSWrite: {MaxConcurrent: 2, TargetLatency: time.Second},
	})
	q.Start(2)
	defer q.Close()

	var done int32
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		err := q.Submit(Job{Type: JobNSWrite, Run: func() {
			atomic.AddInt32(&done, 1)
			wg.Done()
		}})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	wg.Wait()
	if atomic.LoadInt32(&done) != 5 {
		t.Fatalf("expected 5 jobs run, got %d", done)
	}
}

func TestShedsLowerPriorityWhenHigherPriorityIsHot(t *testing.T) {
	clk := clock.New()
	q := New(clk, map[JobType]Limits{
		JobValidation:  {MaxConcurrent: 1, TargetLatency: 10 * time.Millisecond},
		JobNSAsyncRead: {MaxConcurrent: 1, TargetLatency: time.Second},
	})
	q.Start(1)
	defer q.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	if err := q.Submit(Job{Type: JobValidation, Run: func() {
		time.Sleep(30 * time.Millisecond) // exceeds its 10ms target
		wg.Done()
	}}); err != nil {
		t.Fatalf("submit validation: %v", err)
	}
	wg.Wait()

	// Give the worker a moment to record the latency sample.
	deadline := time.Now().Add(time.Second)
	for {
		q.mu.Lock()
		hot := q.isHotLocked(JobValidation)
		q.mu.Unlock()
		if hot || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if err := q.Submit(Job{Type: JobNSAsyncRead, Run: func() {}}); err != ErrShed {
		t.Fatalf("expected ErrShed for lower-priority submission while VALIDATION is hot, got %v", err)
	}
}

func TestTimekeeperAcceptsWithinTolerance(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Unix(1_700_000_000, 0))
	offset := &ManualOffsetSource{}
	tk := NewTimekeeper(clk, offset, 2*time.Second)

	if !tk.Accept(clk.Now()) {
		t.Fatalf("expected exact-match time to be accepted")
	}
	if !tk.Accept(clk.Now().Add(1 * time.Second)) {
		t.Fatalf("expected a 1s-off proposal within a 2s tolerance to be accepted")
	}
	if tk.Accept(clk.Now().Add(5 * time.Second)) {
		t.Fatalf("expected a 5s-off proposal to be rejected under a 2s tolerance")
	}

	offset.Set(3 * time.Second)
	if tk.Now().Sub(clk.Now()) != 3*time.Second {
		t.Fatalf("expected Now() to apply the offset")
	}
}
