package sync

import (
	"context"
	"io"
	"sort"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// JobState represents the current state of a refresh job.
type JobState int

const (
	JobIdle JobState = iota
	JobRunning
	JobError
)

func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobError:
		return "error"
	default:
		return "idle"
	}
}

// Well-known job names.
const (
	JobSession   = "session"
	JobTodoStats = "todo-stats"
)

// JobFunc does one round of work for a job.
type JobFunc func(ctx context.Context) error

// JobStatus holds the state of a single job.
type JobStatus struct {
	Name    string
	State   JobState
	LastRun time.Time
	Error   error
}

// RefreshResultMsg is a tea.Msg sent when a job run completes.
type RefreshResultMsg struct {
	Job   string
	Error error
	At    time.Time
}

// DefaultInterval applies when New is given a non-positive interval.
const DefaultInterval = 120 * time.Second

// jobTimeout is the maximum time allowed for a single job run.
const jobTimeout = 30 * time.Second

type job struct {
	name    string
	fn      JobFunc
	trigger chan struct{}
}

// Refresher runs registered jobs on a shared interval and on demand, and
// hands every result to the Bubble Tea runtime.
type Refresher struct {
	interval time.Duration
	logger   logrus.FieldLogger

	mu       gosync.Mutex
	jobs     []*job
	statuses map[string]*JobStatus
	resultCh chan RefreshResultMsg
	stopCh   chan struct{}
	running  bool
	wg       gosync.WaitGroup
}

// New creates a Refresher. A nil logger discards output.
func New(interval time.Duration, logger logrus.FieldLogger) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Refresher{
		interval: interval,
		logger:   logger.WithField("component", "refresher"),
		statuses: make(map[string]*JobStatus),
		resultCh: make(chan RefreshResultMsg, 16),
		stopCh:   make(chan struct{}),
	}
}

// Register adds a job. Jobs registered after Start are not run.
func (r *Refresher) Register(name string, fn JobFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs = append(r.jobs, &job{name: name, fn: fn, trigger: make(chan struct{}, 1)})
	r.statuses[name] = &JobStatus{Name: name, State: JobIdle}
}

// Start launches one goroutine per job and returns a command that delivers
// the first result. Calling Start twice returns nil.
func (r *Refresher) Start() tea.Cmd {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	jobs := append([]*job(nil), r.jobs...)
	stop := r.stopCh
	r.mu.Unlock()

	for _, j := range jobs {
		r.wg.Add(1)
		go r.loop(j, stop)
	}

	return r.WaitForNextResult()
}

// Stop halts all job goroutines and waits for them to exit. The refresher
// can be started again afterwards.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	close(r.stopCh)
	r.stopCh = make(chan struct{})
	r.running = false
	r.mu.Unlock()

	r.wg.Wait()
}

// RefreshAll triggers an immediate run of every job.
func (r *Refresher) RefreshAll() {
	r.mu.Lock()
	jobs := append([]*job(nil), r.jobs...)
	r.mu.Unlock()

	for _, j := range jobs {
		poke(j)
	}
}

// Refresh triggers an immediate run of the named job. It reports whether
// such a job exists.
func (r *Refresher) Refresh(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.name == name {
			poke(j)
			return true
		}
	}
	return false
}

// poke queues a run unless one is already queued.
func poke(j *job) {
	select {
	case j.trigger <- struct{}{}:
	default:
	}
}

// Statuses returns the status of every job ordered by name.
func (r *Refresher) Statuses() []JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]JobStatus, 0, len(r.statuses))
	for _, s := range r.statuses {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Refresher) loop(j *job, stop <-chan struct{}) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run once immediately.
	r.run(j)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.run(j)
		case <-j.trigger:
			r.run(j)
		}
	}
}

func (r *Refresher) run(j *job) {
	r.setStatus(j.name, JobRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	err := j.fn(ctx)
	if err != nil {
		r.logger.WithError(err).WithField("job", j.name).Debug("refresh failed")
		r.setStatus(j.name, JobError, err)
	} else {
		r.setStatus(j.name, JobIdle, nil)
	}
	r.sendResult(RefreshResultMsg{Job: j.name, Error: err, At: time.Now()})
}

func (r *Refresher) setStatus(name string, state JobState, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.statuses[name]
	if !ok {
		return
	}
	status.State = state
	status.Error = err
	if state == JobIdle {
		status.LastRun = time.Now()
	}
}

// sendResult never blocks; results are dropped while the buffer is full.
func (r *Refresher) sendResult(msg RefreshResultMsg) {
	select {
	case r.resultCh <- msg:
	default:
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next job result.
// Call it again after handling a RefreshResultMsg to keep listening. The
// command yields nil once the refresher is stopped.
func (r *Refresher) WaitForNextResult() tea.Cmd {
	r.mu.Lock()
	stop, running := r.stopCh, r.running
	r.mu.Unlock()

	if !running {
		return func() tea.Msg { return nil }
	}
	return func() tea.Msg {
		select {
		case result := <-r.resultCh:
			return result
		case <-stop:
			return nil
		}
	}
}
