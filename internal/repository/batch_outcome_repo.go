package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kursadbilgin/terminal-registry/internal/domain"
	"gorm.io/gorm"
)

// BatchOutcomeRepository stores completed batch snapshots. Each batch id is
// written once; there is no update path.
type BatchOutcomeRepository interface {
	Create(ctx context.Context, o *domain.BatchOutcome) error
	GetByBatchID(ctx context.Context, batchID string) (*domain.BatchOutcome, error)
}

type GormBatchOutcomeRepo struct {
	db *gorm.DB
}

func NewGormBatchOutcomeRepo(db *gorm.DB) *GormBatchOutcomeRepo {
	return &GormBatchOutcomeRepo{db: db}
}

func (r *GormBatchOutcomeRepo) Create(ctx context.Context, o *domain.BatchOutcome) error {
	model := batchOutcomeModelFromDomain(o)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if o != nil {
		*o = *batchOutcomeModelToDomain(model)
	}
	return nil
}

func (r *GormBatchOutcomeRepo) GetByBatchID(ctx context.Context, batchID string) (*domain.BatchOutcome, error) {
	// Malformed ids cannot exist in a uuid column; postgres would reject the cast.
	if _, err := uuid.Parse(batchID); err != nil {
		return nil, domain.ErrNotFound
	}

	var model BatchOutcomeModel
	err := r.db.WithContext(ctx).First(&model, "batch_id = ?", batchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return batchOutcomeModelToDomain(&model), nil
}
