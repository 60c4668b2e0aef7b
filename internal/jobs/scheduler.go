// Package jobs schedules recurring pipeline work with cron.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmarsh/strider/pkg/logger"
)

// Job is a named, schedulable unit of work.
type Job interface {
	Name() string
	Schedule() string // standard 5-field cron expression
	Run(ctx context.Context) error
}

// Result records one job execution.
type Result struct {
	JobName   string
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string
}

// Scheduler owns the cron loop and a bounded execution history.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	jobs    map[string]Job
	history map[string][]Result
	mu      sync.RWMutex

	maxRetries int
	retryDelay time.Duration
}

const historyDepth = 20

func NewScheduler(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		logger:     log.WithField("module", "jobs"),
		jobs:       make(map[string]Job),
		history:    make(map[string][]Result),
		maxRetries: 2,
		retryDelay: time.Minute,
	}
}

func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}
	if _, err := s.cron.AddFunc(job.Schedule(), func() { s.runJob(job) }); err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}
	s.jobs[name] = job

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")
	return nil
}

func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunNow executes a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	s.runJob(job)
	return nil
}

// History returns the recorded executions of a job, newest last.
func (s *Scheduler) History(name string) []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Result, len(s.history[name]))
	copy(out, s.history[name])
	return out
}

func (s *Scheduler) runJob(job Job) {
	name := job.Name()
	start := time.Now()
	s.logger.WithField("job", name).Info("Job started")

	var lastErr error
	success := false
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := job.Run(context.Background()); err == nil {
			success = true
			break
		} else {
			lastErr = err
		}
		s.logger.WithFields(map[string]interface{}{
			"job":     name,
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		}).Warn("Job execution failed")
		if attempt < s.maxRetries {
			time.Sleep(s.retryDelay)
		}
	}

	result := Result{
		JobName:   name,
		StartTime: start,
		Duration:  time.Since(start),
		Success:   success,
	}
	if !success && lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	h := append(s.history[name], result)
	if len(h) > historyDepth {
		h = h[len(h)-historyDepth:]
	}
	s.history[name] = h
	s.mu.Unlock()

	if success {
		s.logger.WithFields(map[string]interface{}{
			"job":      name,
			"duration": result.Duration,
		}).Info("Job completed")
	} else {
		s.logger.WithFields(map[string]interface{}{
			"job":      name,
			"duration": result.Duration,
			"error":    result.Error,
		}).Error("Job failed after all retries")
	}
}
