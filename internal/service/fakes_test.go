package service

import (
	"context"
	"sync"

	"github.com/kursadbilgin/terminal-registry/internal/domain"
	"github.com/kursadbilgin/terminal-registry/internal/queue"
	"github.com/kursadbilgin/terminal-registry/internal/repository"
)

type fakeTerminalRepo struct {
	mu        sync.Mutex
	created   []domain.Terminal
	createFn  func(ctx context.Context, t *domain.Terminal) error
	getByIDFn func(ctx context.Context, id string) (*domain.Terminal, error)
	listFn    func(ctx context.Context, params repository.ListParams) ([]domain.Terminal, int64, error)
}

func (f *fakeTerminalRepo) Create(ctx context.Context, t *domain.Terminal) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, t); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *t)
	return nil
}

func (f *fakeTerminalRepo) GetByID(ctx context.Context, id string) (*domain.Terminal, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTerminalRepo) List(ctx context.Context, params repository.ListParams) ([]domain.Terminal, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (f *fakeTerminalRepo) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// fakeOutcomeRepo keeps snapshots in memory unless createFn overrides it.
type fakeOutcomeRepo struct {
	mu        sync.Mutex
	outcomes  map[string]domain.BatchOutcome
	reads     int
	createFn  func(ctx context.Context, o *domain.BatchOutcome) error
	getByIDFn func(ctx context.Context, batchID string) (*domain.BatchOutcome, error)
}

func (f *fakeOutcomeRepo) Create(ctx context.Context, o *domain.BatchOutcome) error {
	if f.createFn != nil {
		return f.createFn(ctx, o)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outcomes == nil {
		f.outcomes = make(map[string]domain.BatchOutcome)
	}
	if _, ok := f.outcomes[o.BatchID]; ok {
		return domain.ErrConflict
	}
	f.outcomes[o.BatchID] = *o
	return nil
}

func (f *fakeOutcomeRepo) GetByBatchID(ctx context.Context, batchID string) (*domain.BatchOutcome, error) {
	f.mu.Lock()
	f.reads++
	f.mu.Unlock()

	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, batchID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	outcome, ok := f.outcomes[batchID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &outcome, nil
}

type fakeOutcomeCache struct {
	mu       sync.Mutex
	outcomes map[string]domain.BatchOutcome
	getErr   error
	setErr   error
	sets     int
}

func (f *fakeOutcomeCache) Get(ctx context.Context, batchID string) (*domain.BatchOutcome, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	outcome, ok := f.outcomes[batchID]
	if !ok {
		return nil, nil
	}
	return &outcome, nil
}

func (f *fakeOutcomeCache) Set(ctx context.Context, outcome *domain.BatchOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	if f.outcomes == nil {
		f.outcomes = make(map[string]domain.BatchOutcome)
	}
	f.outcomes[outcome.BatchID] = *outcome
	return nil
}

type fakeOutcomeSaver struct {
	saveFn func(ctx context.Context, outcome *domain.BatchOutcome) error
	saved  []domain.BatchOutcome
}

func (f *fakeOutcomeSaver) Save(ctx context.Context, outcome *domain.BatchOutcome) error {
	if f.saveFn != nil {
		if err := f.saveFn(ctx, outcome); err != nil {
			return err
		}
	}
	f.saved = append(f.saved, *outcome)
	return nil
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, providerID string) (bool, error)
	waitFn  func(ctx context.Context, providerID string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, providerID string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, providerID)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, providerID string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, providerID)
	}
	return nil
}

type fakePublisher struct {
	publishFn func(ctx context.Context, msg queue.BatchCompletedMessage) error
	closeFn   func() error
	published []queue.BatchCompletedMessage
}

func (f *fakePublisher) PublishBatchCompleted(ctx context.Context, msg queue.BatchCompletedMessage) error {
	f.published = append(f.published, msg)
	if f.publishFn != nil {
		return f.publishFn(ctx, msg)
	}
	return nil
}

func (f *fakePublisher) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

func validDescriptor(terminalID string) domain.TerminalDescriptor {
	return domain.TerminalDescriptor{
		ProviderID:   "acme-pos",
		TerminalID:   terminalID,
		Enabled:      true,
		PayeeCode:    "12345678901",
		Workstations: []string{"ws-1"},
	}
}
