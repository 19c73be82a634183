package upload

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, u *Upload) error
	GetByID(ctx context.Context, id string) (*Upload, error)
	ListRecent(ctx context.Context, modelID string, limit int) ([]*Upload, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, u *Upload) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *repository) GetByID(ctx context.Context, id string) (*Upload, error) {
	var u Upload
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) ListRecent(ctx context.Context, modelID string, limit int) ([]*Upload, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if modelID != "" {
		q = q.Where("model_id = ?", modelID)
	}
	var uploads []*Upload
	err := q.Find(&uploads).Error
	return uploads, err
}
