package eventlog

import (
	"context"

	"gorm.io/gorm"
)

// Repository exposes persistence helpers for the funnel event log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, event *Event) error
	List(ctx context.Context, filters Filters) ([]Event, error)
	Count(ctx context.Context) (int64, error)
	TrimToNewest(ctx context.Context, keep int) error
	DeleteAll(ctx context.Context) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an event log repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Insert(ctx context.Context, event *Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repositoryImpl) List(ctx context.Context, filters Filters) ([]Event, error) {
	query := r.db.WithContext(ctx).Model(&Event{})
	if !filters.Start.IsZero() {
		query = query.Where("occurred_at >= ?", filters.Start)
	}
	if !filters.End.IsZero() {
		query = query.Where("occurred_at <= ?", filters.End)
	}
	if filters.EventName != "" {
		query = query.Where("event_name = ?", filters.EventName)
	}

	var events []Event
	if err := query.Order("occurred_at ASC, id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Event{}).Count(&count).Error
	return count, err
}

// TrimToNewest evicts the oldest rows until only keep remain.
func (r *repositoryImpl) TrimToNewest(ctx context.Context, keep int) error {
	subquery := r.db.WithContext(ctx).
		Model(&Event{}).
		Select("id").
		Order("occurred_at DESC, id DESC").
		Limit(keep)
	return r.db.WithContext(ctx).
		Where("id NOT IN (?)", subquery).
		Delete(&Event{}).Error
}

func (r *repositoryImpl) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&Event{}).Error
}
