package repository

import (
	"context"

	"gorm.io/gorm"

	"buildstate/internal/model"
)

// StateCodeRepository 状态码仓储接口
type StateCodeRepository interface {
	Create(ctx context.Context, sc *model.StateCode) error
	Update(ctx context.Context, sc *model.StateCode) error
	FindByID(ctx context.Context, id int64) (*model.StateCode, error)
	FindActiveByName(ctx context.Context, projectID int64, name string) (*model.StateCode, error)
	FindActiveInitial(ctx context.Context, projectID int64) (*model.StateCode, error)
	FindActiveByCode(ctx context.Context, projectID int64, code int) (*model.StateCode, error)
	List(ctx context.Context, projectID int64, includeInactive bool) ([]*model.StateCode, error)
}

type stateCodeRepository struct {
	db *gorm.DB
}

// NewStateCodeRepository 创建状态码仓储实例
func NewStateCodeRepository(db *gorm.DB) StateCodeRepository {
	return &stateCodeRepository{db: db}
}

func (r *stateCodeRepository) Create(ctx context.Context, sc *model.StateCode) error {
	return wrapDB(r.db.WithContext(ctx).Create(sc).Error, "创建状态码失败")
}

func (r *stateCodeRepository) Update(ctx context.Context, sc *model.StateCode) error {
	return wrapDB(r.db.WithContext(ctx).Save(sc).Error, "更新状态码失败")
}

// FindByID 根据ID查询(包含已停用)
func (r *stateCodeRepository) FindByID(ctx context.Context, id int64) (*model.StateCode, error) {
	var sc model.StateCode
	if err := r.db.WithContext(ctx).First(&sc, id).Error; err != nil {
		return nil, wrapFind(err, "状态码不存在", "查询状态码失败")
	}
	return &sc, nil
}

// FindActiveByName 查询项目内生效的同名状态
func (r *stateCodeRepository) FindActiveByName(ctx context.Context, projectID int64, name string) (*model.StateCode, error) {
	var sc model.StateCode
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND name = ? AND end_time IS NULL", projectID, name).
		Order("id DESC").
		First(&sc).Error
	if err != nil {
		return nil, wrapFind(err, "状态码不存在", "查询状态码失败")
	}
	return &sc, nil
}

// FindActiveInitial 查询项目的初始状态
func (r *stateCodeRepository) FindActiveInitial(ctx context.Context, projectID int64) (*model.StateCode, error) {
	var sc model.StateCode
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND is_initial = ? AND end_time IS NULL", projectID, true).
		Order("id ASC").
		First(&sc).Error
	if err != nil {
		return nil, wrapFind(err, "项目未定义初始状态", "查询初始状态失败")
	}
	return &sc, nil
}

// FindActiveByCode 按数值状态查询项目内生效的状态, 多个时取最早定义的
func (r *stateCodeRepository) FindActiveByCode(ctx context.Context, projectID int64, code int) (*model.StateCode, error) {
	var sc model.StateCode
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND code = ? AND end_time IS NULL", projectID, code).
		Order("id ASC").
		First(&sc).Error
	if err != nil {
		return nil, wrapFind(err, "状态码不存在", "查询状态码失败")
	}
	return &sc, nil
}

// List 列出项目状态码, 按数值状态排序
func (r *stateCodeRepository) List(ctx context.Context, projectID int64, includeInactive bool) ([]*model.StateCode, error) {
	var list []*model.StateCode
	query := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if !includeInactive {
		query = query.Where("end_time IS NULL")
	}
	if err := query.Order("code ASC").Order("id ASC").Find(&list).Error; err != nil {
		return nil, wrapDB(err, "查询状态码列表失败")
	}
	return list, nil
}
