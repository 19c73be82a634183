package snapshot

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

type Repository interface {
	Create(ctx context.Context, s *Snapshot) error
	Latest(ctx context.Context, kind Kind) (*Snapshot, error)
	List(ctx context.Context, limit int) ([]*Snapshot, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time, keepID string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *Snapshot) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *repository) Latest(ctx context.Context, kind Kind) (*Snapshot, error) {
	var s Snapshot
	err := r.db.WithContext(ctx).
		Where("kind = ? AND dry_run = ?", kind, false).
		Order("created_at DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) List(ctx context.Context, limit int) ([]*Snapshot, error) {
	var out []*Snapshot
	err := r.db.WithContext(ctx).
		Omit("document").
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *repository) DeleteOlderThan(ctx context.Context, cutoff time.Time, keepID string) (int64, error) {
	q := r.db.WithContext(ctx).Where("created_at < ?", cutoff)
	if keepID != "" {
		q = q.Where("id <> ?", keepID)
	}
	res := q.Delete(&Snapshot{})
	return res.RowsAffected, res.Error
}
