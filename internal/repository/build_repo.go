package repository

import (
	"context"

	"gorm.io/gorm"

	"buildstate/internal/model"
)

// BuildFilter 构建列表筛选条件
type BuildFilter struct {
	ProjectID   *int64
	PlatformID  *int64
	Status      string
	StateCodeID *int64
	Keyword     string
}

// StatusCount 按状态统计
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// KeyCount 分组统计
type KeyCount struct {
	Name  string
	Count int64
}

// BuildRepository 构建记录仓储接口
type BuildRepository interface {
	Create(ctx context.Context, build *model.Build) error
	FindByID(ctx context.Context, id int64, opts ...QueryOption) (*model.Build, error)
	List(ctx context.Context, filter BuildFilter, page Page) ([]*model.Build, int64, error)
	// UpdateVersioned 基于版本号的条件更新, 返回受影响行数
	UpdateVersioned(ctx context.Context, id, version int64, updates map[string]interface{}) (int64, error)
	CountActiveAtState(ctx context.Context, stateCodeID int64) (int64, error)
	CountByStatus(ctx context.Context, projectID *int64) ([]StatusCount, error)
	CountByPlatform(ctx context.Context) ([]KeyCount, error)
	CountByState(ctx context.Context) ([]KeyCount, error)
}

type buildRepository struct {
	db *gorm.DB
}

// NewBuildRepository 创建构建记录仓储实例
func NewBuildRepository(db *gorm.DB) BuildRepository {
	return &buildRepository{db: db}
}

// Create 创建构建记录
func (r *buildRepository) Create(ctx context.Context, build *model.Build) error {
	return wrapDB(r.db.WithContext(ctx).Create(build).Error, "创建构建记录失败")
}

// FindByID 根据ID查询构建记录
func (r *buildRepository) FindByID(ctx context.Context, id int64, opts ...QueryOption) (*model.Build, error) {
	var build model.Build
	query := applyOptions(r.db.WithContext(ctx), opts)
	if err := query.First(&build, id).Error; err != nil {
		return nil, wrapFind(err, "构建不存在", "查询构建记录失败")
	}
	return &build, nil
}

// List 分页查询构建记录列表
func (r *buildRepository) List(ctx context.Context, filter BuildFilter, page Page) ([]*model.Build, int64, error) {
	var builds []*model.Build
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Build{})

	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.PlatformID != nil {
		query = query.Where("platform_id = ?", *filter.PlatformID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.StateCodeID != nil {
		query = query.Where("current_state_code_id = ?", *filter.StateCodeID)
	}
	if filter.Keyword != "" {
		query = query.Where("description LIKE ?", "%"+filter.Keyword+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapDB(err, "统计构建记录失败")
	}

	// 按创建时间倒序
	err := page.apply(query.Preload("CurrentStateCode")).
		Order("created_at DESC").Order("id DESC").
		Find(&builds).Error
	if err != nil {
		return nil, 0, wrapDB(err, "查询构建记录列表失败")
	}

	return builds, total, nil
}

func (r *buildRepository) UpdateVersioned(ctx context.Context, id, version int64, updates map[string]interface{}) (int64, error) {
	updates["version"] = gorm.Expr("version + 1")
	result := r.db.WithContext(ctx).Model(&model.Build{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if result.Error != nil {
		return 0, wrapDB(result.Error, "更新构建状态失败")
	}
	return result.RowsAffected, nil
}

// CountActiveAtState 统计停留在某状态且未结束的构建数
func (r *buildRepository) CountActiveAtState(ctx context.Context, stateCodeID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Build{}).
		Where("current_state_code_id = ? AND end_time IS NULL", stateCodeID).
		Count(&count).Error
	return count, wrapDB(err, "统计构建失败")
}

func (r *buildRepository) CountByStatus(ctx context.Context, projectID *int64) ([]StatusCount, error) {
	var counts []StatusCount
	query := r.db.WithContext(ctx).Model(&model.Build{})
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}
	err := query.Select("status, COUNT(*) AS count").Group("status").Order("status").Scan(&counts).Error
	return counts, wrapDB(err, "统计构建状态失败")
}

// CountByPlatform 按平台名统计, 未关联平台的记为空字符串
func (r *buildRepository) CountByPlatform(ctx context.Context) ([]KeyCount, error) {
	var counts []KeyCount
	err := r.db.WithContext(ctx).Model(&model.Build{}).
		Select("COALESCE(platforms.name, '') AS name, COUNT(*) AS count").
		Joins("LEFT JOIN platforms ON platforms.id = builds.platform_id").
		Group("platforms.name").Order("count DESC").
		Scan(&counts).Error
	return counts, wrapDB(err, "按平台统计构建失败")
}

// CountByState 按当前状态名统计
func (r *buildRepository) CountByState(ctx context.Context) ([]KeyCount, error) {
	var counts []KeyCount
	err := r.db.WithContext(ctx).Model(&model.Build{}).
		Select("state_codes.name AS name, COUNT(*) AS count").
		Joins("JOIN state_codes ON state_codes.id = builds.current_state_code_id").
		Group("state_codes.name").Order("count DESC").
		Scan(&counts).Error
	return counts, wrapDB(err, "按状态统计构建失败")
}
