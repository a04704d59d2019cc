// Package jobs runs long computations off the caller's goroutine and hands
// back a Job the caller can watch, wait on or abandon.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a job's lifecycle stage.
type State string

const (
	StateRunning   State = "running"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// ErrNotFound is returned for unknown job IDs.
var ErrNotFound = errors.New("jobs: not found")

// Progress is the most recent progress report of a job.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Func is the work a job runs. report may be called from fn's goroutine as
// often as needed; it never blocks.
type Func func(ctx context.Context, report func(current, total int)) (any, error)

// Job is a running or finished computation.
type Job struct {
	ID      string
	Name    string
	Started time.Time

	progress chan Progress
	done     chan struct{}
	cancel   context.CancelFunc

	mu       sync.Mutex
	state    State
	last     Progress
	result   any
	err      error
	finished time.Time
}

// Progress delivers progress reports. Slow readers see only the latest one.
// The channel is closed when the job finishes.
func (j *Job) Progress() <-chan Progress { return j.progress }

// Done is closed when the job finishes.
func (j *Job) Done() <-chan struct{} { return j.done }

// Cancel abandons the job. The job's context is cancelled; fn decides how
// quickly to return.
func (j *Job) Cancel() { j.cancel() }

// Wait blocks until the job finishes or ctx ends.
func (j *Job) Wait(ctx context.Context) (any, error) {
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshot is a point-in-time view of a job, safe to serialize.
type Snapshot struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	State    State         `json:"state"`
	Progress Progress      `json:"progress"`
	Started  time.Time     `json:"started"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	Error    string        `json:"error,omitempty"`
}

// Snapshot returns the job's current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	end := j.finished
	if end.IsZero() {
		end = time.Now()
	}
	s := Snapshot{
		ID:       j.ID,
		Name:     j.Name,
		State:    j.state,
		Progress: j.last,
		Started:  j.Started,
		Elapsed:  end.Sub(j.Started),
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	return s
}

func (j *Job) report(current, total int) {
	p := Progress{Current: current, Total: total}

	j.mu.Lock()
	j.last = p
	j.mu.Unlock()

	select {
	case j.progress <- p:
		return
	default:
	}
	// Drop the stale report and retry once.
	select {
	case <-j.progress:
	default:
	}
	select {
	case j.progress <- p:
	default:
	}
}

func (j *Job) finish(ctx context.Context, result any, err error) {
	j.mu.Lock()
	j.result, j.err = result, err
	j.finished = time.Now()
	switch {
	case err == nil:
		j.state = StateDone
	case ctx.Err() != nil:
		j.state = StateCancelled
	default:
		j.state = StateFailed
	}
	j.mu.Unlock()

	close(j.progress)
	close(j.done)
}

// Runner starts jobs and keeps the most recent ones for lookup.
type Runner struct {
	keep int

	mu   sync.Mutex
	jobs map[string]*Job
}

// NewRunner returns a runner remembering up to keep finished jobs.
func NewRunner(keep int) *Runner {
	if keep < 1 {
		keep = 32
	}
	return &Runner{keep: keep, jobs: make(map[string]*Job)}
}

// Submit starts fn on its own goroutine. The job's context derives from ctx.
func (r *Runner) Submit(ctx context.Context, name string, fn Func) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{
		ID:       uuid.New().String(),
		Name:     name,
		Started:  time.Now(),
		progress: make(chan Progress, 1),
		done:     make(chan struct{}),
		cancel:   cancel,
		state:    StateRunning,
	}

	r.mu.Lock()
	r.jobs[j.ID] = j
	r.pruneLocked()
	r.mu.Unlock()

	go func() {
		defer cancel()
		var (
			result any
			err    error
		)
		func() {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("jobs: %s panicked: %v", name, p)
				}
			}()
			result, err = fn(ctx, j.report)
		}()
		j.finish(ctx, result, err)
	}()
	return j
}

// Get returns the job with the given ID.
func (r *Runner) Get(id string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j, nil
}

// List returns snapshots of all remembered jobs, newest first.
func (r *Runner) List() []Snapshot {
	r.mu.Lock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Started.After(out[b].Started) })
	return out
}

// pruneLocked forgets the oldest finished jobs beyond the keep limit.
func (r *Runner) pruneLocked() {
	var finished []*Job
	for _, j := range r.jobs {
		select {
		case <-j.done:
			finished = append(finished, j)
		default:
		}
	}
	if len(finished) <= r.keep {
		return
	}
	sort.Slice(finished, func(a, b int) bool { return finished[a].Started.Before(finished[b].Started) })
	for _, j := range finished[:len(finished)-r.keep] {
		delete(r.jobs, j.ID)
	}
}
