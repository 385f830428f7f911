package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
)

// Job represents a recurring task owned by the engine's lifecycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry binds a job to its cadence.
type Entry struct {
	Job   Job
	Every time.Duration
}

// ServiceParams configure the scheduler.
type ServiceParams struct {
	Logger  *logger.Logger
	Metrics *metrics.JobMetrics
	Entries []Entry
}

// Service runs each registered job on its own cadence until stopped. Both
// tickers are torn down together so a closed engine never leaks timers.
type Service struct {
	logg    *logger.Logger
	metrics *metrics.JobMetrics
	entries []Entry

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService builds a scheduler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	for _, entry := range params.Entries {
		if entry.Job == nil {
			return nil, fmt.Errorf("scheduler entry missing job")
		}
		if entry.Every <= 0 {
			return nil, fmt.Errorf("scheduler entry %q missing interval", entry.Job.Name())
		}
	}
	return &Service{
		logg:    params.Logger,
		metrics: params.Metrics,
		entries: params.Entries,
	}, nil
}

// Start launches one ticker loop per entry. Calling Start twice is a no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done

	var wg sync.WaitGroup
	for _, entry := range s.entries {
		wg.Add(1)
		go func(entry Entry) {
			defer wg.Done()
			s.loop(runCtx, entry)
		}(entry)
	}
	go func() {
		wg.Wait()
		close(done)
	}()
}

// Stop cancels the ticker loops and waits for in-flight runs to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Service) loop(ctx context.Context, entry Entry) {
	ticker := time.NewTicker(entry.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runJob(ctx, entry.Job)
		}
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	if err != nil {
		s.logg.Error(jobCtx, "scheduled job failed", err)
		s.metrics.IncFailure(job.Name())
		return
	}
	s.metrics.IncSuccess(job.Name())
}
