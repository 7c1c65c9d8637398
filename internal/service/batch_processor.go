package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/terminal-registry/internal/domain"
	"github.com/kursadbilgin/terminal-registry/internal/observability"
	"github.com/kursadbilgin/terminal-registry/internal/queue"
	"github.com/kursadbilgin/terminal-registry/internal/ratelimit"
	"github.com/kursadbilgin/terminal-registry/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minBatchConcurrency   = 1
	defaultPublishTimeout = 5 * time.Second
)

// BatchOutcomeSaver persists a completed batch snapshot.
type BatchOutcomeSaver interface {
	Save(ctx context.Context, outcome *domain.BatchOutcome) error
}

// BatchProcessor provisions a batch of terminals. Each item is persisted
// independently; a failed item is recorded in the outcome and never stops
// the batch.
type BatchProcessor struct {
	terminals   repository.TerminalRepository
	outcomes    BatchOutcomeSaver
	builder     *TerminalBuilder
	rateLimiter ratelimit.RateLimiter
	publisher   queue.Publisher
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	// publishTimeout bounds the completion event publish, which runs on a
	// context the caller cannot cancel.
	publishTimeout time.Duration
	newBatchID     func() string
	now            func() time.Time
}

type itemResult struct {
	terminal *domain.Terminal
	err      error
}

func NewBatchProcessor(
	terminals repository.TerminalRepository,
	outcomes BatchOutcomeSaver,
	builder *TerminalBuilder,
	concurrency int,
	logger *zap.Logger,
) (*BatchProcessor, error) {
	if terminals == nil {
		return nil, fmt.Errorf("terminal repository is required")
	}
	if outcomes == nil {
		return nil, fmt.Errorf("batch outcome saver is required")
	}
	if builder == nil {
		builder = NewTerminalBuilder()
	}
	if concurrency < minBatchConcurrency {
		concurrency = minBatchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchProcessor{
		terminals:      terminals,
		outcomes:       outcomes,
		builder:        builder,
		logger:         logger,
		concurrency:    concurrency,
		publishTimeout: defaultPublishTimeout,
		newBatchID:     uuid.NewString,
		now:            time.Now,
	}, nil
}

func (p *BatchProcessor) SetRateLimiter(limiter ratelimit.RateLimiter) {
	if p == nil {
		return
	}
	p.rateLimiter = limiter
}

func (p *BatchProcessor) SetPublisher(publisher queue.Publisher) {
	if p == nil {
		return
	}
	p.publisher = publisher
}

func (p *BatchProcessor) SetMetrics(metrics *observability.Metrics) {
	if p == nil {
		return
	}
	p.metrics = metrics
}

// Process attempts every descriptor, then persists the outcome snapshot.
// Only a failed snapshot write is returned as an error; item failures live
// in the outcome. Terminals persisted before a snapshot failure stay.
func (p *BatchProcessor) Process(ctx context.Context, descriptors []domain.TerminalDescriptor) (*domain.BatchOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("%w: batch must include at least one terminal", domain.ErrEmptyBatch)
	}

	// Accepted batches run to completion even if the caller goes away.
	runCtx := context.WithoutCancel(ctx)

	start := p.now()
	p.metrics.IncBatchInFlight()
	defer p.metrics.DecBatchInFlight()

	outcome := domain.NewBatchOutcome(p.newBatchID(), len(descriptors))
	logger := observability.WithContextLogger(p.logger, ctx).With(zap.String("batchId", outcome.BatchID))
	logger.Info("batch accepted", zap.Int("totalRecords", outcome.TotalRecords))

	results := p.persistAll(runCtx, descriptors)

	// Single owner: only this goroutine mutates the outcome, in input order.
	for i, result := range results {
		if result.err != nil {
			outcome.RecordFailure(result.err.Error())
			p.metrics.IncBatchItem(observability.ItemResultFailure)
			logger.Warn("batch item failed",
				zap.Int("index", i),
				zap.String("providerId", descriptors[i].ProviderID),
				zap.String("terminalId", descriptors[i].TerminalID),
				zap.Error(result.err),
			)
			continue
		}
		outcome.RecordSuccess()
		p.metrics.IncBatchItem(observability.ItemResultSuccess)
	}

	if err := outcome.Complete(); err != nil {
		return nil, err
	}
	// Postgres keeps microseconds; the cached copy must match the stored row.
	outcome.CreatedAt = p.now().UTC().Truncate(time.Microsecond)

	if err := p.outcomes.Save(runCtx, outcome); err != nil {
		p.metrics.IncSnapshotWriteFailure()
		logger.Error("failed to persist batch outcome",
			zap.Int("successRecords", outcome.SuccessRecords),
			zap.Int("failedRecords", outcome.FailedRecords),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: failed to save outcome of batch %s: %v", domain.ErrPersistence, outcome.BatchID, err)
	}

	p.metrics.ObserveBatch(outcome.Status.String(), p.now().Sub(start))
	logger.Info("batch processed",
		zap.String("status", outcome.Status.String()),
		zap.Int("totalRecords", outcome.TotalRecords),
		zap.Int("successRecords", outcome.SuccessRecords),
		zap.Int("failedRecords", outcome.FailedRecords),
	)

	p.publishCompleted(runCtx, outcome, logger)

	return outcome, nil
}

// persistAll runs item persistence on a bounded worker pool. Workers only
// write their own result slot.
func (p *BatchProcessor) persistAll(ctx context.Context, descriptors []domain.TerminalDescriptor) []itemResult {
	results := make([]itemResult, len(descriptors))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range descriptors {
		g.Go(func() error {
			results[i] = p.persistOne(ctx, descriptors[i])
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *BatchProcessor) persistOne(ctx context.Context, desc domain.TerminalDescriptor) itemResult {
	terminal := p.builder.Build(desc)

	// Limiter errors fail open; only the insert decides the item result.
	if p.rateLimiter != nil {
		if err := p.rateLimiter.Wait(ctx, desc.ProviderID); err != nil {
			p.metrics.IncRateLimiterError()
			p.logger.Warn("rate limiter unavailable, persisting without throttling",
				zap.String("providerId", desc.ProviderID),
				zap.Error(err),
			)
		}
	}

	start := p.now()
	err := p.terminals.Create(ctx, &terminal)
	p.metrics.ObserveItemPersistDuration(p.now().Sub(start))
	if err != nil {
		return itemResult{err: err}
	}

	return itemResult{terminal: &terminal}
}

func (p *BatchProcessor) publishCompleted(ctx context.Context, outcome *domain.BatchOutcome, logger *zap.Logger) {
	if p.publisher == nil {
		return
	}

	requestID, _ := observability.RequestIDFromContext(ctx)
	msg := queue.NewBatchCompletedMessage(outcome, requestID, p.now().UTC())

	publishCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()

	if err := p.publisher.PublishBatchCompleted(publishCtx, msg); err != nil {
		logger.Error("failed to publish batch completed event", zap.Error(err))
	}
}
