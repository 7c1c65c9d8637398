package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kursadbilgin/terminal-registry/internal/domain"
	"gorm.io/gorm"
)

type ListParams struct {
	ProviderID *string
	Enabled    *bool
	Page       int
	PageSize   int
}

type TerminalRepository interface {
	Create(ctx context.Context, t *domain.Terminal) error
	GetByID(ctx context.Context, id string) (*domain.Terminal, error)
	List(ctx context.Context, params ListParams) ([]domain.Terminal, int64, error)
}

type GormTerminalRepo struct {
	db *gorm.DB
}

func NewGormTerminalRepo(db *gorm.DB) *GormTerminalRepo {
	return &GormTerminalRepo{db: db}
}

// Create inserts one terminal. Driver errors are returned unwrapped.
func (r *GormTerminalRepo) Create(ctx context.Context, t *domain.Terminal) error {
	model := terminalModelFromDomain(t)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if t != nil {
		*t = *terminalModelToDomain(model)
	}
	return nil
}

func (r *GormTerminalRepo) GetByID(ctx context.Context, id string) (*domain.Terminal, error) {
	// Malformed ids cannot exist in a uuid column; postgres would reject the cast.
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	var model TerminalModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return terminalModelToDomain(&model), nil
}

func (r *GormTerminalRepo) List(ctx context.Context, params ListParams) ([]domain.Terminal, int64, error) {
	query := r.db.WithContext(ctx).Model(&TerminalModel{})

	if params.ProviderID != nil {
		query = query.Where("provider_id = ?", *params.ProviderID)
	}
	if params.Enabled != nil {
		query = query.Where("enabled = ?", *params.Enabled)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []TerminalModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	terminals := make([]domain.Terminal, 0, len(models))
	for i := range models {
		terminals = append(terminals, *terminalModelToDomain(&models[i]))
	}

	return terminals, total, nil
}
