package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/autoapply/internal/apperr"
	"github.com/blackwell-systems/autoapply/internal/model"
)

// ErrBusy is returned when a run is requested while another is in progress.
var ErrBusy = apperr.New(apperr.KindBusy, "a session is already running")

// maxRuns bounds how many finished runs are remembered.
const maxRuns = 20

// Runner executes one session.
type Runner interface {
	Run(ctx context.Context) (model.SessionRecord, error)
}

// RunState is the lifecycle of a background run.
type RunState string

const (
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// Run is a snapshot of a background run.
type Run struct {
	ID         string               `json:"id"`
	State      RunState             `json:"state"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
	Session    *model.SessionRecord `json:"session,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Manager admits one run at a time and tracks runs by id.
type Manager struct {
	runner Runner
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time

	mu     sync.Mutex
	runs   map[string]*Run
	active string
	closed bool
	wg     sync.WaitGroup
}

// NewManager creates a Manager. Runs are cancelled when ctx is done or
// Shutdown is called.
func NewManager(ctx context.Context, runner Runner) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		runner: runner,
		ctx:    ctx,
		cancel: cancel,
		now:    time.Now,
		runs:   make(map[string]*Run),
	}
}

// Start launches a run in the background and returns its initial snapshot.
// It returns ErrBusy when a run is already in progress.
func (m *Manager) Start() (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != "" {
		return Run{}, ErrBusy
	}
	if m.closed {
		return Run{}, apperr.New(apperr.KindBusy, "manager is shutting down")
	}
	if err := m.ctx.Err(); err != nil {
		return Run{}, apperr.Wrap(apperr.KindBusy, err, "manager is shutting down")
	}

	run := &Run{
		ID:        uuid.NewString(),
		State:     RunRunning,
		StartedAt: m.now(),
	}
	m.runs[run.ID] = run
	m.active = run.ID
	m.pruneLocked()

	m.wg.Add(1)
	go m.execute(run.ID)

	return *run, nil
}

func (m *Manager) execute(id string) {
	defer m.wg.Done()

	rec, err := m.runner.Run(m.ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	run := m.runs[id]
	finished := m.now()
	run.FinishedAt = &finished
	if err != nil {
		run.State = RunFailed
		run.Error = err.Error()
	} else {
		run.State = RunCompleted
		run.Session = &rec
	}
	m.active = ""
}

// Get returns the snapshot of run id.
func (m *Manager) Get(id string) (Run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// Busy reports whether a run is in progress.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != ""
}

// WhenIdle calls fn while no run is in progress, holding off Start until fn
// returns. It returns ErrBusy without calling fn when a run is active.
func (m *Manager) WhenIdle(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != "" {
		return ErrBusy
	}
	return fn()
}

// Wait blocks until no run is in progress.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown cancels any run in progress and waits for it to finish.
func (m *Manager) Shutdown() {
	// Start adds to wg under mu, so no run can be added once closed is set.
	m.mu.Lock()
	m.closed = true
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()
}

// pruneLocked drops the oldest finished runs beyond maxRuns.
func (m *Manager) pruneLocked() {
	if len(m.runs) <= maxRuns {
		return
	}
	var finished []*Run
	for _, r := range m.runs {
		if r.State != RunRunning {
			finished = append(finished, r)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].StartedAt.Before(finished[j].StartedAt)
	})
	for _, r := range finished {
		if len(m.runs) <= maxRuns {
			return
		}
		delete(m.runs, r.ID)
	}
}
