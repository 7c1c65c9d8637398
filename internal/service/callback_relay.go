package service

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/terminal-registry/internal/observability"
	"github.com/kursadbilgin/terminal-registry/internal/provider"
	"github.com/kursadbilgin/terminal-registry/internal/queue"
	"go.uber.org/zap"
)

// CallbackRelay forwards batch-completed events to the provider callback
// endpoint. Its Handle method plugs into the queue consumer.
type CallbackRelay struct {
	notifier provider.Notifier
	logger   *zap.Logger
	metrics  *observability.Metrics
}

func NewCallbackRelay(notifier provider.Notifier, logger *zap.Logger) (*CallbackRelay, error) {
	if notifier == nil {
		return nil, fmt.Errorf("callback notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CallbackRelay{
		notifier: notifier,
		logger:   logger,
	}, nil
}

func (r *CallbackRelay) SetMetrics(metrics *observability.Metrics) {
	if r == nil {
		return
	}
	r.metrics = metrics
}

// Handle delivers one event. Transient failures are returned as-is so the
// broker redelivers; permanent ones wrap queue.ErrDiscard.
func (r *CallbackRelay) Handle(ctx context.Context, msg queue.BatchCompletedMessage) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := r.logger.With(zap.String("batchId", msg.BatchID))
	if msg.RequestID != "" {
		logger = logger.With(zap.String("requestId", msg.RequestID))
	}

	resp, err := r.notifier.NotifyBatchCompleted(ctx, provider.BatchCallback{
		BatchID:        msg.BatchID,
		RequestID:      msg.RequestID,
		Status:         msg.Status.String(),
		TotalRecords:   msg.TotalRecords,
		SuccessRecords: msg.SuccessRecords,
		FailedRecords:  msg.FailedRecords,
		CompletedAt:    msg.CompletedAt,
	})
	if err != nil {
		if provider.IsTransient(err) {
			r.metrics.IncCallback(observability.CallbackResultRetried)
			logger.Warn("batch callback failed, will retry", zap.Error(err))
			return err
		}

		r.metrics.IncCallback(observability.CallbackResultDropped)
		logger.Error("batch callback rejected, dropping event", zap.Error(err))
		return fmt.Errorf("%w: %v", queue.ErrDiscard, err)
	}

	r.metrics.IncCallback(observability.CallbackResultDelivered)
	logger.Info("batch callback delivered",
		zap.Int("statusCode", resp.StatusCode),
		zap.String("receiptId", resp.ReceiptID),
	)
	return nil
}
