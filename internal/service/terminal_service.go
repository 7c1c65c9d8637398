package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/terminal-registry/internal/domain"
	"github.com/kursadbilgin/terminal-registry/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultMaxBatchSize = 1000
	defaultPageSize     = 50
	maxPageSize         = 100
)

type TerminalService struct {
	terminals    repository.TerminalRepository
	processor    *BatchProcessor
	statuses     *BatchStatusStore
	builder      *TerminalBuilder
	maxBatchSize int
	logger       *zap.Logger
}

func NewTerminalService(
	terminals repository.TerminalRepository,
	processor *BatchProcessor,
	statuses *BatchStatusStore,
	maxBatchSize int,
	logger *zap.Logger,
) (*TerminalService, error) {
	if terminals == nil {
		return nil, fmt.Errorf("terminal repository is required")
	}
	if processor == nil {
		return nil, fmt.Errorf("batch processor is required")
	}
	if statuses == nil {
		return nil, fmt.Errorf("batch status store is required")
	}
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TerminalService{
		terminals:    terminals,
		processor:    processor,
		statuses:     statuses,
		builder:      processor.builder,
		maxBatchSize: maxBatchSize,
		logger:       logger,
	}, nil
}

// SubmitBatch validates the whole batch up front, then runs it. A returned
// outcome may still carry failed items.
func (s *TerminalService) SubmitBatch(ctx context.Context, descriptors []domain.TerminalDescriptor) (*domain.BatchOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("%w: batch must include at least one terminal", domain.ErrEmptyBatch)
	}
	if len(descriptors) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: batch size %d exceeds limit %d", domain.ErrValidation, len(descriptors), s.maxBatchSize)
	}

	for i := range descriptors {
		if err := descriptors[i].Validate(); err != nil {
			return nil, fmt.Errorf("terminals[%d]: %w", i, err)
		}
	}

	return s.processor.Process(ctx, descriptors)
}

func (s *TerminalService) GetBatchStatus(ctx context.Context, batchID string) (*domain.BatchOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}

	return s.statuses.FindByBatchID(ctx, batchID)
}

func (s *TerminalService) Create(ctx context.Context, desc domain.TerminalDescriptor) (*domain.Terminal, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	terminal := s.builder.Build(desc)
	if err := s.terminals.Create(ctx, &terminal); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%w: terminal %s already exists for provider %s", domain.ErrConflict, desc.TerminalID, desc.ProviderID)
		}
		return nil, err
	}

	s.logger.Info("terminal created",
		zap.String("id", terminal.ID),
		zap.String("providerId", terminal.ProviderID),
		zap.String("terminalId", terminal.TerminalID),
	)

	return &terminal, nil
}

func (s *TerminalService) GetByID(ctx context.Context, id string) (*domain.Terminal, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: terminal id is required", domain.ErrValidation)
	}

	return s.terminals.GetByID(ctx, id)
}

func (s *TerminalService) List(ctx context.Context, params repository.ListParams) ([]domain.Terminal, int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if params.Page == 0 {
		params.Page = 1
	}
	if params.PageSize == 0 {
		params.PageSize = defaultPageSize
	}
	if params.Page < 1 {
		return nil, 0, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return nil, 0, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}
	if params.ProviderID != nil {
		providerID := strings.TrimSpace(*params.ProviderID)
		if providerID == "" {
			params.ProviderID = nil
		} else {
			params.ProviderID = &providerID
		}
	}

	return s.terminals.List(ctx, params)
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
