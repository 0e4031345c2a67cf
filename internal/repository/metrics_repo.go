package repository

import (
	"context"
	"time"

	"github.com/citygallery/citygallery/internal/model"
	"gorm.io/gorm"
)

// GroupSizeRow pairs a group name with its member count.
type GroupSizeRow struct {
	Name string
	N    int64
}

type MetricsRepository interface {
	PostTimesSince(ctx context.Context, from time.Time) ([]time.Time, error)
	TopGroupsBySize(ctx context.Context, limit int) ([]GroupSizeRow, error)
}

type metricsRepository struct {
	db *gorm.DB
}

func NewMetricsRepository(db *gorm.DB) MetricsRepository {
	return &metricsRepository{db: db}
}

func (r *metricsRepository) PostTimesSince(ctx context.Context, from time.Time) ([]time.Time, error) {
	var times []time.Time
	if err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("created_at >= ?", from).
		Order("created_at ASC").
		Pluck("created_at", &times).Error; err != nil {
		return nil, err
	}
	return times, nil
}

func (r *metricsRepository) TopGroupsBySize(ctx context.Context, limit int) ([]GroupSizeRow, error) {
	var rows []GroupSizeRow
	if err := r.db.WithContext(ctx).
		Model(&model.GroupMember{}).
		Select("groups.name AS name", "COUNT(*) AS n").
		Joins("JOIN groups ON groups.id = group_members.group_id").
		Group("groups.name").
		Order("n DESC").
		Order("groups.name ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
