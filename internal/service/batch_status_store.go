package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/terminal-registry/internal/domain"
	"github.com/kursadbilgin/terminal-registry/internal/repository"
	"go.uber.org/zap"
)

// BatchOutcomeCache is a read-through cache in front of the outcome table.
// Get returns (nil, nil) on a miss.
type BatchOutcomeCache interface {
	Get(ctx context.Context, batchID string) (*domain.BatchOutcome, error)
	Set(ctx context.Context, outcome *domain.BatchOutcome) error
}

// BatchStatusStore persists completed batch snapshots and answers status
// lookups by batch id.
type BatchStatusStore struct {
	outcomes repository.BatchOutcomeRepository
	cache    BatchOutcomeCache
	logger   *zap.Logger
}

func NewBatchStatusStore(
	outcomes repository.BatchOutcomeRepository,
	cache BatchOutcomeCache,
	logger *zap.Logger,
) (*BatchStatusStore, error) {
	if outcomes == nil {
		return nil, fmt.Errorf("batch outcome repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchStatusStore{
		outcomes: outcomes,
		cache:    cache,
		logger:   logger,
	}, nil
}

// Save writes the snapshot once. Only completed outcomes are accepted.
func (s *BatchStatusStore) Save(ctx context.Context, outcome *domain.BatchOutcome) error {
	if outcome == nil {
		return fmt.Errorf("batch outcome is required")
	}
	if !outcome.IsComplete() || outcome.Status == domain.BatchStatusProcessing {
		return fmt.Errorf("batch %s is not complete", outcome.BatchID)
	}

	if err := s.outcomes.Create(ctx, outcome); err != nil {
		return err
	}

	s.populateCache(ctx, outcome)
	return nil
}

func (s *BatchStatusStore) FindByBatchID(ctx context.Context, batchID string) (*domain.BatchOutcome, error) {
	batchID = strings.TrimSpace(batchID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, batchID)
		if err != nil {
			s.logger.Warn("batch outcome cache read failed, falling back to store",
				zap.String("batchId", batchID),
				zap.Error(err),
			)
		}
		if cached != nil {
			return cached, nil
		}
	}

	outcome, err := s.outcomes.GetByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	s.populateCache(ctx, outcome)
	return outcome, nil
}

func (s *BatchStatusStore) populateCache(ctx context.Context, outcome *domain.BatchOutcome) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, outcome); err != nil {
		s.logger.Warn("failed to cache batch outcome",
			zap.String("batchId", outcome.BatchID),
			zap.Error(err),
		)
	}
}
