package ingest

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Scheduler runs ingestion cycles on a fixed interval in a background
// goroutine. At most one cycle runs at a time: a manual trigger that
// arrives while a cycle is in flight is refused, not queued, and the
// caller is expected to retry after the current cycle finishes.
type Scheduler struct {
	Orchestrator *Orchestrator
	Interval     time.Duration
	StopChan     chan struct{}

	running atomic.Bool // a cycle is executing right now
	lastRun atomic.Int64
	stopped atomic.Bool
}

// NewScheduler creates a scheduler with the given cycle interval.
func NewScheduler(orch *Orchestrator, interval time.Duration) *Scheduler {
	return &Scheduler{
		Orchestrator: orch,
		Interval:     interval,
		StopChan:     make(chan struct{}),
	}
}

// Start launches the periodic loop. The first cycle runs immediately,
// then every Interval until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		log.Printf("ingestion scheduler started (interval %s)", s.Interval)

		s.runGuarded(ctx)

		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runGuarded(ctx)
			case <-s.StopChan:
				log.Printf("ingestion scheduler stopped")
				return
			case <-ctx.Done():
				log.Printf("ingestion scheduler context cancelled")
				return
			}
		}
	}()
}

// Stop terminates the periodic loop. An in-flight cycle is not
// interrupted; it finishes its current object and writes lineage.
func (s *Scheduler) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.StopChan)
	}
}

// TriggerNow starts a cycle immediately. Returns false if a cycle is
// already running, in which case nothing is scheduled.
func (s *Scheduler) TriggerNow(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer s.running.Store(false)
		s.Orchestrator.RunCycle(ctx)
		s.lastRun.Store(time.Now().Unix())
	}()
	return true
}

// Running reports whether a cycle is currently executing.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// LastRun returns the completion time of the most recent cycle, or the
// zero time when none has finished yet.
func (s *Scheduler) LastRun() time.Time {
	unix := s.lastRun.Load()
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0).UTC()
}

// runGuarded executes one cycle synchronously unless one is already in
// flight (e.g. a manual trigger racing the ticker).
func (s *Scheduler) runGuarded(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		log.Printf("skipping scheduled cycle: previous cycle still running")
		return
	}
	defer s.running.Store(false)
	s.Orchestrator.RunCycle(ctx)
	s.lastRun.Store(time.Now().Unix())
}
