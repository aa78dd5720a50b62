package repository

import (
	"context"

	"gorm.io/gorm"

	"buildstate/internal/model"
)

// BuildStateRepository 状态历史仓储接口, 只追加
type BuildStateRepository interface {
	Create(ctx context.Context, state *model.BuildState) error
	ListByBuild(ctx context.Context, buildID int64) ([]*model.BuildState, error)
	// LatestWithStatus 查询最近一条指定状态的历史
	LatestWithStatus(ctx context.Context, buildID int64, statuses ...string) (*model.BuildState, error)
	ListRecent(ctx context.Context, limit int) ([]*model.BuildState, error)
}

type buildStateRepository struct {
	db *gorm.DB
}

func NewBuildStateRepository(db *gorm.DB) BuildStateRepository {
	return &buildStateRepository{db: db}
}

func (r *buildStateRepository) Create(ctx context.Context, state *model.BuildState) error {
	return wrapDB(r.db.WithContext(ctx).Create(state).Error, "写入状态历史失败")
}

// ListByBuild 按时间正序返回历史
func (r *buildStateRepository) ListByBuild(ctx context.Context, buildID int64) ([]*model.BuildState, error) {
	var list []*model.BuildState
	err := r.db.WithContext(ctx).Preload("StateCode").
		Where("build_id = ?", buildID).
		Order("created_at ASC").Order("id ASC").
		Find(&list).Error
	return list, wrapDB(err, "查询状态历史失败")
}

func (r *buildStateRepository) LatestWithStatus(ctx context.Context, buildID int64, statuses ...string) (*model.BuildState, error) {
	var state model.BuildState
	err := r.db.WithContext(ctx).Preload("StateCode").
		Where("build_id = ? AND status IN ?", buildID, statuses).
		Order("created_at DESC").Order("id DESC").
		First(&state).Error
	if err != nil {
		return nil, wrapFind(err, "状态历史不存在", "查询状态历史失败")
	}
	return &state, nil
}

func (r *buildStateRepository) ListRecent(ctx context.Context, limit int) ([]*model.BuildState, error) {
	var list []*model.BuildState
	err := r.db.WithContext(ctx).Preload("StateCode").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&list).Error
	return list, wrapDB(err, "查询最近状态变更失败")
}
