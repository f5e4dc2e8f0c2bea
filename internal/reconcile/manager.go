package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
)

type OutcomeRecorder interface {
	Record(ctx context.Context, outcome domain.ReconciliationOutcome) error
}

type runner interface {
	Run(ctx context.Context, job Job) (int, error)
}

// Manager owns the detached reconciliation goroutines, one per withdrawal
// reference. Jobs outlive the request that started them and stop only on a
// terminal status, their own timeout, Cancel or Shutdown.
type Manager struct {
	runner   runner
	recorder OutcomeRecorder
	logger   *slog.Logger

	root   context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]context.CancelFunc
	wg   sync.WaitGroup
}

func NewManager(r runner, recorder OutcomeRecorder, logger *slog.Logger) *Manager {
	root, cancel := context.WithCancel(context.Background())
	return &Manager{
		runner:   r,
		recorder: recorder,
		logger:   logger,
		root:     root,
		cancel:   cancel,
		jobs:     make(map[string]context.CancelFunc),
	}
}

// Start launches job unless one is already running for the same reference
// or the manager has shut down.
func (m *Manager) Start(job Job) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.root.Err() != nil {
		m.logger.Warn("reconciliation not started, manager stopped", "reference", job.Reference)
		return false
	}
	if _, running := m.jobs[job.Reference]; running {
		m.logger.Warn("reconciliation already running", "reference", job.Reference)
		return false
	}

	ctx, cancel := context.WithCancel(m.root)
	m.jobs[job.Reference] = cancel
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		defer m.finish(job.Reference)

		attempts, err := m.runner.Run(ctx, job)
		m.record(job, attempts, err)
	}()

	m.logger.Info("reconciliation started", "reference", job.Reference, "max_wait", job.MaxWait)
	return true
}

func (m *Manager) Cancel(reference string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cancel, ok := m.jobs[reference]
	if ok {
		cancel()
	}
	return ok
}

func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// References lists the withdrawals currently being reconciled, sorted.
func (m *Manager) References() []string {
	m.mu.Lock()
	refs := make([]string, 0, len(m.jobs))
	for ref := range m.jobs {
		refs = append(refs, ref)
	}
	m.mu.Unlock()

	sort.Strings(refs)
	return refs
}

// Shutdown cancels every running job and waits for them to exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) finish(reference string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel, ok := m.jobs[reference]; ok {
		cancel()
		delete(m.jobs, reference)
	}
}

func resultFor(err error) domain.ReconciliationResult {
	switch {
	case err == nil:
		return domain.ReconciliationCompleted
	case errors.Is(err, domain.ErrTransactionFailed):
		return domain.ReconciliationFailed
	case errors.Is(err, domain.ErrPollTimeout):
		return domain.ReconciliationTimedOut
	default:
		return domain.ReconciliationCancelled
	}
}

func (m *Manager) record(job Job, attempts int, err error) {
	outcome := domain.ReconciliationOutcome{
		ID:          uuid.New(),
		Reference:   job.Reference,
		Phone:       job.Phone,
		Result:      resultFor(err),
		Attempts:    attempts,
		InitiatedAt: job.InitiatedAt,
		FinishedAt:  time.Now().UTC(),
	}
	if err != nil {
		outcome.Detail = err.Error()
	}

	log := m.logger.With("reference", job.Reference, "result", outcome.Result, "attempts", attempts)
	if outcome.Result.Unresolved() {
		log.Warn("reconciliation ended without notifying user", "error", err)
	} else {
		log.Info("reconciliation finished")
	}

	if m.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.recorder.Record(ctx, outcome); err != nil {
		log.Error("failed to record reconciliation outcome", "error", err)
	}
}
