package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"buildstate/internal/model"
)

// BuildFailureRepository 带外失败记录仓储接口
type BuildFailureRepository interface {
	Create(ctx context.Context, failure *model.BuildFailure) error
	FindByID(ctx context.Context, id int64) (*model.BuildFailure, error)
	ListByBuild(ctx context.Context, buildID int64, unresolvedOnly bool) ([]*model.BuildFailure, error)
	Resolve(ctx context.Context, id int64, resolvedBy string, at time.Time) error
}

type buildFailureRepository struct {
	db *gorm.DB
}

func NewBuildFailureRepository(db *gorm.DB) BuildFailureRepository {
	return &buildFailureRepository{db: db}
}

func (r *buildFailureRepository) Create(ctx context.Context, failure *model.BuildFailure) error {
	return wrapDB(r.db.WithContext(ctx).Create(failure).Error, "记录失败信息失败")
}

func (r *buildFailureRepository) FindByID(ctx context.Context, id int64) (*model.BuildFailure, error) {
	var failure model.BuildFailure
	if err := r.db.WithContext(ctx).First(&failure, id).Error; err != nil {
		return nil, wrapFind(err, "失败记录不存在", "查询失败记录失败")
	}
	return &failure, nil
}

func (r *buildFailureRepository) ListByBuild(ctx context.Context, buildID int64, unresolvedOnly bool) ([]*model.BuildFailure, error) {
	var list []*model.BuildFailure
	query := r.db.WithContext(ctx).Where("build_id = ?", buildID)
	if unresolvedOnly {
		query = query.Where("resolved = ?", false)
	}
	err := query.Order("created_at DESC").Order("id DESC").Find(&list).Error
	return list, wrapDB(err, "查询失败记录失败")
}

func (r *buildFailureRepository) Resolve(ctx context.Context, id int64, resolvedBy string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.BuildFailure{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"resolved":    true,
			"resolved_at": at,
			"resolved_by": resolvedBy,
		}).Error
	return wrapDB(err, "更新失败记录失败")
}
