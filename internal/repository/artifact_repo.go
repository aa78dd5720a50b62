package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"buildstate/internal/model"
)

// ArtifactFilter 产物查询条件
type ArtifactFilter struct {
	IsResumable  *bool
	IsFinal      *bool
	StateCode    *int
	ArtifactType string
}

// ArtifactRepository 构建产物仓储接口, 所有读路径排除软删除行
type ArtifactRepository interface {
	Create(ctx context.Context, artifact *model.BuildArtifact) error
	FindByID(ctx context.Context, id int64) (*model.BuildArtifact, error)
	FindActiveByName(ctx context.Context, buildID int64, name string) (*model.BuildArtifact, error)
	// ListByBuild 按 (state_code, created_at, id) 升序返回
	ListByBuild(ctx context.Context, buildID int64, filter ArtifactFilter) ([]*model.BuildArtifact, error)
	SoftDelete(ctx context.Context, id int64) error
	// SoftDeleteExpired 软删除已过期产物, 返回删除行数
	SoftDeleteExpired(ctx context.Context, now time.Time) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}

type artifactRepository struct {
	db *gorm.DB
}

func NewArtifactRepository(db *gorm.DB) ArtifactRepository {
	return &artifactRepository{db: db}
}

func (r *artifactRepository) Create(ctx context.Context, artifact *model.BuildArtifact) error {
	return wrapDB(r.db.WithContext(ctx).Create(artifact).Error, "登记产物失败")
}

func (r *artifactRepository) FindByID(ctx context.Context, id int64) (*model.BuildArtifact, error) {
	var artifact model.BuildArtifact
	if err := r.db.WithContext(ctx).First(&artifact, id).Error; err != nil {
		return nil, wrapFind(err, "产物不存在", "查询产物失败")
	}
	return &artifact, nil
}

func (r *artifactRepository) FindActiveByName(ctx context.Context, buildID int64, name string) (*model.BuildArtifact, error) {
	var artifact model.BuildArtifact
	err := r.db.WithContext(ctx).
		Where("build_id = ? AND artifact_name = ?", buildID, name).
		First(&artifact).Error
	if err != nil {
		return nil, wrapFind(err, "产物不存在", "查询产物失败")
	}
	return &artifact, nil
}

func (r *artifactRepository) ListByBuild(ctx context.Context, buildID int64, filter ArtifactFilter) ([]*model.BuildArtifact, error) {
	var list []*model.BuildArtifact
	query := r.db.WithContext(ctx).Where("build_id = ?", buildID)
	if filter.IsResumable != nil {
		query = query.Where("is_resumable = ?", *filter.IsResumable)
	}
	if filter.IsFinal != nil {
		query = query.Where("is_final = ?", *filter.IsFinal)
	}
	if filter.StateCode != nil {
		query = query.Where("state_code = ?", *filter.StateCode)
	}
	if filter.ArtifactType != "" {
		query = query.Where("artifact_type = ?", filter.ArtifactType)
	}
	err := query.Order("state_code ASC").Order("created_at ASC").Order("id ASC").Find(&list).Error
	return list, wrapDB(err, "查询产物列表失败")
}

func (r *artifactRepository) SoftDelete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.BuildArtifact{}, id)
	if result.Error != nil {
		return wrapDB(result.Error, "删除产物失败")
	}
	if result.RowsAffected == 0 {
		return wrapFind(gorm.ErrRecordNotFound, "产物不存在", "")
	}
	return nil
}

func (r *artifactRepository) SoftDeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Delete(&model.BuildArtifact{})
	return result.RowsAffected, wrapDB(result.Error, "清理过期产物失败")
}

func (r *artifactRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.BuildArtifact{}).Count(&count).Error
	return count, wrapDB(err, "统计产物失败")
}
