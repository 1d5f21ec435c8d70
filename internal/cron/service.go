package cron

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/attoclaw/gateway/internal/idgen"
	"github.com/attoclaw/gateway/internal/observability"
)

// OnJob fires a job's payload. A non-nil error is recorded as the job's
// last_error/last_status but never stops the scheduler.
type OnJob func(Job) error

const pollInterval = 500 * time.Millisecond

// Service is the persistent job scheduler, grounded on cron.hpp's
// CronService: a mutex-guarded job list, a JSON-file store rewritten
// whole on every mutation, and a single worker goroutine woken either by
// a timer bounded to the nearest next_run_at_ms or by a wake signal sent
// on every mutation (the Go equivalent of the original's
// condition_variable).
type Service struct {
	storePath string
	onJob     OnJob
	log       *observability.Logger
	metrics   *observability.Metrics

	running atomic.Bool
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}

	mu   sync.Mutex
	jobs []Job
}

// New loads the job store at storePath (creating none if absent).
func New(storePath string, onJob OnJob, log *observability.Logger, metrics *observability.Metrics) (*Service, error) {
	jobs, err := loadJobs(storePath)
	if err != nil {
		log.Warnf("cron: failed to load store %q: %v", storePath, err)
		jobs = nil
	}
	return &Service{
		storePath: storePath,
		onJob:     onJob,
		log:       log,
		metrics:   metrics,
		wake:      make(chan struct{}, 1),
		jobs:      jobs,
	}, nil
}

// SetOnJob assigns the fire callback after construction (mirrors
// cron.hpp's set_on_job, used when the agent worker isn't wired yet at
// scheduler construction time).
func (s *Service) SetOnJob(cb OnJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onJob = cb
}

// Start recomputes next-run times for enabled jobs and launches the
// worker loop. Calling Start twice is a no-op.
func (s *Service) Start() {
	if s.running.Swap(true) {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	s.mu.Lock()
	now := nowMs()
	for i := range s.jobs {
		if s.jobs[i].Enabled {
			s.jobs[i].State.NextRunAtMs = computeNextRunMs(s.jobs[i].Schedule, now)
		}
	}
	_ = saveJobs(s.storePath, s.jobs)
	s.mu.Unlock()

	go s.runLoop()
}

// Stop signals the worker loop and waits for it to exit.
func (s *Service) Stop() {
	if !s.running.Swap(false) {
		return
	}
	close(s.stop)
	<-s.done
}

func nowMs() int64 { return time.Now().UnixMilli() }

func computeNextRunMs(sch Schedule, now int64) int64 {
	switch sch.Kind {
	case "at":
		if sch.AtMs > now {
			return sch.AtMs
		}
		return 0
	case "every":
		if sch.EveryMs > 0 {
			return now + sch.EveryMs
		}
		return 0
	case "cron":
		return computeNextCronRunMs(sch.Expr, now)
	default:
		return 0
	}
}

func (s *Service) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) runLoop() {
	defer close(s.done)
	for {
		s.mu.Lock()
		var nextWake int64
		for _, j := range s.jobs {
			if !j.Enabled || j.State.NextRunAtMs <= 0 {
				continue
			}
			if nextWake == 0 || j.State.NextRunAtMs < nextWake {
				nextWake = j.State.NextRunAtMs
			}
		}
		s.mu.Unlock()

		var wait time.Duration
		if nextWake == 0 {
			wait = pollInterval
		} else if delta := nextWake - nowMs(); delta > 0 {
			wait = time.Duration(delta) * time.Millisecond
		} else {
			wait = 0
		}

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-s.stop:
				timer.Stop()
				return
			case <-s.wake:
				timer.Stop()
				continue
			case <-timer.C:
			}
		} else {
			select {
			case <-s.stop:
				return
			default:
			}
		}

		s.fireDue()
	}
}

func (s *Service) fireDue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowMs()
	for i := range s.jobs {
		j := &s.jobs[i]
		if j.Enabled && j.State.NextRunAtMs > 0 && now >= j.State.NextRunAtMs {
			s.executeLocked(j)
		}
	}

	kept := s.jobs[:0]
	for _, j := range s.jobs {
		if j.Schedule.Kind == "at" && j.DeleteAfterRun && j.State.LastStatus == "ok" {
			continue
		}
		kept = append(kept, j)
	}
	s.jobs = kept

	if err := saveJobs(s.storePath, s.jobs); err != nil {
		s.log.Errorf("cron: failed to save store: %v", err)
	}
}

// executeLocked fires job and rearms it. Caller must hold s.mu.
func (s *Service) executeLocked(j *Job) {
	start := nowMs()
	var status, lastErr string
	if s.onJob != nil {
		if err := s.onJob(*j); err != nil {
			status, lastErr = "error", err.Error()
		} else {
			status = "ok"
		}
	} else {
		status = "ok"
	}
	j.State.LastStatus = status
	j.State.LastError = lastErr
	j.State.LastRunAtMs = start
	j.UpdatedAtMs = nowMs()

	if s.metrics != nil {
		s.metrics.CronFires.WithLabelValues(j.ID, status).Inc()
	}

	if j.Schedule.Kind == "at" {
		if !j.DeleteAfterRun {
			j.Enabled = false
			j.State.NextRunAtMs = 0
		}
	} else {
		j.State.NextRunAtMs = computeNextRunMs(j.Schedule, nowMs())
	}
}

// AddJob validates and inserts a new job. Per the add_job precedence
// rule, every_seconds is checked before cron_expr before at_unix_ms.
func (s *Service) AddJob(name string, everySeconds int64, cronExpr string, atUnixMs int64, message string, deliver bool, channel, chatID string) (string, error) {
	var sch Schedule
	switch {
	case everySeconds > 0:
		sch = Schedule{Kind: "every", EveryMs: everySeconds * 1000}
	case cronExpr != "":
		if !ValidateExprSyntax(cronExpr) {
			return "", fmt.Errorf("invalid cron expression %q", cronExpr)
		}
		sch = Schedule{Kind: "cron", Expr: cronExpr}
	case atUnixMs > 0:
		sch = Schedule{Kind: "at", AtMs: atUnixMs}
	default:
		return "", fmt.Errorf("one of every_seconds, cron_expr, or at_unix_ms is required")
	}

	now := nowMs()
	job := Job{
		ID:       idgen.Random(8),
		Name:     name,
		Enabled:  true,
		Schedule: sch,
		Payload: Payload{
			Kind:    "agent_turn",
			Message: message,
			Deliver: deliver,
			Channel: channel,
			To:      chatID,
		},
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}
	job.State.NextRunAtMs = computeNextRunMs(sch, now)

	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	err := saveJobs(s.storePath, s.jobs)
	s.mu.Unlock()
	if err != nil {
		s.log.Errorf("cron: failed to save store after add: %v", err)
	}
	s.notify()

	return fmt.Sprintf("Scheduled job %q (id=%s).", name, job.ID), nil
}

// ListJobsSummary renders enabled and disabled jobs sorted by
// next_run_at_ms ascending; disabled jobs, whose next_run_at_ms is 0, come
// first.
func (s *Service) ListJobsSummary() string {
	s.mu.Lock()
	jobs := make([]Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].State.NextRunAtMs < jobs[j].State.NextRunAtMs })

	if len(jobs) == 0 {
		return "No scheduled jobs."
	}
	var b strings.Builder
	for _, j := range jobs {
		status := "enabled"
		if !j.Enabled {
			status = "disabled"
		}
		fmt.Fprintf(&b, "%s (%s) [%s] schedule=%s next_run_at_ms=%d last_status=%s\n",
			j.ID, j.Name, status, j.Schedule.Kind, j.State.NextRunAtMs, j.State.LastStatus)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RemoveJob deletes a job by id.
func (s *Service) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.jobs[:0]
	found := false
	for _, j := range s.jobs {
		if j.ID == id {
			found = true
			continue
		}
		kept = append(kept, j)
	}
	if !found {
		return fmt.Errorf("no such job %q", id)
	}
	s.jobs = kept
	if err := saveJobs(s.storePath, s.jobs); err != nil {
		return err
	}
	s.notify()
	return nil
}

// EnableJob flips a job's enabled flag, recomputing next_run_at_ms on
// enable and zeroing it on disable.
func (s *Service) EnableJob(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.jobs {
		if s.jobs[i].ID != id {
			continue
		}
		s.jobs[i].Enabled = enabled
		s.jobs[i].UpdatedAtMs = nowMs()
		if enabled {
			s.jobs[i].State.NextRunAtMs = computeNextRunMs(s.jobs[i].Schedule, nowMs())
		} else {
			s.jobs[i].State.NextRunAtMs = 0
		}
		if err := saveJobs(s.storePath, s.jobs); err != nil {
			return err
		}
		s.notify()
		return nil
	}
	return fmt.Errorf("no such job %q", id)
}

// RunJobNow fires a job immediately regardless of its schedule, even if
// disabled (mirrors cron.hpp's run_job_now(id, force=true) path as used
// by the cron tool).
func (s *Service) RunJobNow(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.jobs {
		if s.jobs[i].ID != id {
			continue
		}
		s.executeLocked(&s.jobs[i])
		if err := saveJobs(s.storePath, s.jobs); err != nil {
			return err
		}
		s.notify()
		return nil
	}
	return fmt.Errorf("no such job %q", id)
}
