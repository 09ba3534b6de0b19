package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blackwell-systems/autoapply/internal/apperr"
	"github.com/blackwell-systems/autoapply/internal/model"
)

// blockingRunner returns once release is closed or ctx is cancelled.
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	err     error
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) Run(ctx context.Context) (model.SessionRecord, error) {
	r.started <- struct{}{}
	select {
	case <-r.release:
		if r.err != nil {
			return model.SessionRecord{}, r.err
		}
		return model.SessionRecord{SessionID: "session_20250101_090000", Total: 2, Successful: 2, SuccessRate: 100}, nil
	case <-ctx.Done():
		return model.SessionRecord{}, ctx.Err()
	}
}

func waitStarted(t *testing.T, r *blockingRunner) {
	t.Helper()
	select {
	case <-r.started:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not start")
	}
}

func TestManagerStartCompletes(t *testing.T) {
	runner := newBlockingRunner()
	m := NewManager(context.Background(), runner)

	run, err := m.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if run.ID == "" || run.State != RunRunning {
		t.Fatalf("unexpected initial run: %+v", run)
	}
	waitStarted(t, runner)

	if !m.Busy() {
		t.Error("expected manager to be busy")
	}

	close(runner.release)
	m.Wait()

	got, ok := m.Get(run.ID)
	if !ok {
		t.Fatal("run not found")
	}
	if got.State != RunCompleted {
		t.Errorf("expected completed, got %s", got.State)
	}
	if got.Session == nil || got.Session.Total != 2 {
		t.Errorf("expected session with 2 applications, got %+v", got.Session)
	}
	if got.FinishedAt == nil {
		t.Error("expected FinishedAt to be set")
	}
	if m.Busy() {
		t.Error("manager should be idle after completion")
	}
}

func TestManagerRejectsConcurrentRun(t *testing.T) {
	runner := newBlockingRunner()
	m := NewManager(context.Background(), runner)

	if _, err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, runner)

	_, err := m.Start()
	if !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindBusy {
		t.Errorf("expected BUSY kind, got %s", apperr.KindOf(err))
	}

	close(runner.release)
	m.Wait()
}

func TestManagerRecordsFailure(t *testing.T) {
	runner := newBlockingRunner()
	runner.err = apperr.New(apperr.KindLogin, "login failed")
	m := NewManager(context.Background(), runner)

	run, err := m.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	close(runner.release)
	m.Wait()

	got, _ := m.Get(run.ID)
	if got.State != RunFailed {
		t.Errorf("expected failed, got %s", got.State)
	}
	if got.Error != "login failed" {
		t.Errorf("expected error message, got %q", got.Error)
	}
	if got.Session != nil {
		t.Error("failed run should carry no session")
	}
}

func TestManagerShutdownCancelsRun(t *testing.T) {
	runner := newBlockingRunner()
	m := NewManager(context.Background(), runner)

	run, err := m.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, runner)

	m.Shutdown()

	got, _ := m.Get(run.ID)
	if got.State != RunFailed {
		t.Errorf("expected cancelled run to fail, got %s", got.State)
	}

	if _, err := m.Start(); !apperr.IsKind(err, apperr.KindBusy) {
		t.Errorf("expected BUSY after shutdown, got %v", err)
	}
}

func TestManagerGetUnknown(t *testing.T) {
	m := NewManager(context.Background(), newBlockingRunner())
	if _, ok := m.Get("missing"); ok {
		t.Error("expected unknown run to be absent")
	}
}

// ctxRunner runs until its context is cancelled.
type ctxRunner struct{}

func (ctxRunner) Run(ctx context.Context) (model.SessionRecord, error) {
	<-ctx.Done()
	return model.SessionRecord{}, ctx.Err()
}

func TestManagerStartRacingShutdown(t *testing.T) {
	for i := 0; i < 20; i++ {
		m := NewManager(context.Background(), ctxRunner{})

		done := make(chan struct{})
		go func() {
			defer close(done)
			for j := 0; j < 100; j++ {
				m.Start()
			}
		}()

		m.Shutdown()
		if m.Busy() {
			t.Fatal("run still active after Shutdown returned")
		}
		<-done

		if _, err := m.Start(); !apperr.IsKind(err, apperr.KindBusy) {
			t.Fatalf("expected BUSY after shutdown, got %v", err)
		}
		if m.Busy() {
			t.Fatal("Start after Shutdown launched a run")
		}
	}
}

func TestManagerWhenIdleRejectsActiveRun(t *testing.T) {
	runner := newBlockingRunner()
	m := NewManager(context.Background(), runner)

	if _, err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, runner)

	called := false
	err := m.WhenIdle(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if called {
		t.Error("fn ran while a session was active")
	}

	close(runner.release)
	m.Wait()
}

func TestManagerWhenIdleHoldsOffStart(t *testing.T) {
	runner := newBlockingRunner()
	m := NewManager(context.Background(), runner)
	defer m.Shutdown()

	started := make(chan error, 1)
	err := m.WhenIdle(func() error {
		go func() {
			_, err := m.Start()
			started <- err
		}()
		select {
		case err := <-started:
			t.Errorf("Start returned while fn was running: %v", err)
		case <-time.After(50 * time.Millisecond):
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WhenIdle failed: %v", err)
	}

	select {
	case err := <-started:
		if err != nil {
			t.Fatalf("Start after WhenIdle failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start never returned")
	}
	waitStarted(t, runner)
	close(runner.release)
	m.Wait()
}

func TestManagerWhenIdleReturnsFnError(t *testing.T) {
	m := NewManager(context.Background(), newBlockingRunner())
	want := errors.New("disk full")
	if err := m.WhenIdle(func() error { return want }); !errors.Is(err, want) {
		t.Errorf("expected fn error, got %v", err)
	}
}
