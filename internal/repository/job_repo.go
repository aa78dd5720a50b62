package repository

import (
	"context"

	"gorm.io/gorm"

	"buildstate/internal/model"
)

// BuildJobRepository CI任务仓储接口
type BuildJobRepository interface {
	Create(ctx context.Context, job *model.BuildJob) error
	Update(ctx context.Context, job *model.BuildJob) error
	FindByID(ctx context.Context, id int64) (*model.BuildJob, error)
	ListByBuild(ctx context.Context, buildID int64) ([]*model.BuildJob, error)
}

type buildJobRepository struct {
	db *gorm.DB
}

func NewBuildJobRepository(db *gorm.DB) BuildJobRepository {
	return &buildJobRepository{db: db}
}

func (r *buildJobRepository) Create(ctx context.Context, job *model.BuildJob) error {
	return wrapDB(r.db.WithContext(ctx).Create(job).Error, "登记CI任务失败")
}

func (r *buildJobRepository) Update(ctx context.Context, job *model.BuildJob) error {
	return wrapDB(r.db.WithContext(ctx).Save(job).Error, "更新CI任务失败")
}

func (r *buildJobRepository) FindByID(ctx context.Context, id int64) (*model.BuildJob, error) {
	var job model.BuildJob
	if err := r.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, wrapFind(err, "CI任务不存在", "查询CI任务失败")
	}
	return &job, nil
}

func (r *buildJobRepository) ListByBuild(ctx context.Context, buildID int64) ([]*model.BuildJob, error) {
	var list []*model.BuildJob
	err := r.db.WithContext(ctx).Where("build_id = ?", buildID).
		Order("created_at DESC").Order("id DESC").
		Find(&list).Error
	return list, wrapDB(err, "查询CI任务失败")
}
