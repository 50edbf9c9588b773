package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	ErrJobExists   = errors.New("job already registered")
	ErrJobNotFound = errors.New("job not found")
	ErrJobRunning  = errors.New("job is already running")
)

// Job is a named unit of background work run on a cron schedule such as
// "@every 1h" or "0 3 * * *".
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) (string, error)
}

// JobStatus is the in-memory run history of a job.
type JobStatus struct {
	Name         string     `json:"name"`
	Spec         string     `json:"spec"`
	Running      bool       `json:"running"`
	Runs         int        `json:"runs"`
	LastRunAt    *time.Time `json:"lastRunAt,omitempty"`
	LastDuration string     `json:"lastDuration,omitempty"`
	LastResult   string     `json:"lastResult,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
	NextRunAt    *time.Time `json:"nextRunAt,omitempty"`
}

type jobState struct {
	job     Job
	entryID cron.EntryID
	status  JobStatus
}

// Service manages scheduled task execution
type Service struct {
	cron *cron.Cron

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	jobs    map[string]*jobState
}

func NewService() *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default())))),
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*jobState),
	}
}

// Register adds a job. Jobs may be registered before or after Start.
func (s *Service) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("register job: name and run func are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("register %s: %w", job.Name, ErrJobExists)
	}

	state := &jobState{job: job, status: JobStatus{Name: job.Name, Spec: job.Spec}}
	id, err := s.cron.AddFunc(job.Spec, func() {
		if _, err := s.execute(state); err != nil && !errors.Is(err, ErrJobRunning) {
			log.Printf("[scheduler] %s failed: %v", job.Name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("register %s: parse schedule %q: %w", job.Name, job.Spec, err)
	}
	state.entryID = id
	s.jobs[job.Name] = state
	return nil
}

// Start begins running jobs on their schedules.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.cron.Start()

	log.Printf("[scheduler] Scheduler service started with %d jobs", len(s.jobs))
	return nil
}

// Stop halts scheduling and waits for running jobs or ctx, whichever ends first.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		log.Println("[scheduler] Scheduler service stopped gracefully")
	case <-ctx.Done():
		log.Println("[scheduler] Scheduler service stopped (timeout)")
	}
	return nil
}

// RunNow runs a job immediately in the caller's goroutine and returns its result.
func (s *Service) RunNow(name string) (string, error) {
	s.mu.RLock()
	state, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("run %s: %w", name, ErrJobNotFound)
	}
	return s.execute(state)
}

func (s *Service) execute(state *jobState) (string, error) {
	s.mu.Lock()
	if state.status.Running {
		s.mu.Unlock()
		return "", ErrJobRunning
	}
	state.status.Running = true
	ctx := s.ctx
	s.mu.Unlock()

	start := time.Now()
	result, err := state.job.Run(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	state.status.Running = false
	state.status.Runs++
	state.status.LastRunAt = &start
	state.status.LastDuration = elapsed.Round(time.Millisecond).String()
	state.status.LastResult = result
	state.status.LastError = ""
	if err != nil {
		state.status.LastError = err.Error()
	}
	s.mu.Unlock()

	if err == nil && result != "" {
		log.Printf("[scheduler] %s: %s", state.job.Name, result)
	}
	return result, err
}

// Jobs returns the status of every registered job sorted by name.
func (s *Service) Jobs() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, state := range s.jobs {
		status := state.status
		if s.running {
			if next := s.cron.Entry(state.entryID).Next; !next.IsZero() {
				status.NextRunAt = &next
			}
		}
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
