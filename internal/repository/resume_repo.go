package repository

import (
	"context"

	"gorm.io/gorm"

	"buildstate/internal/model"
)

// ResumableStateRepository 恢复策略仓储接口
type ResumableStateRepository interface {
	Create(ctx context.Context, rs *model.ResumableState) error
	Update(ctx context.Context, rs *model.ResumableState) error
	FindByID(ctx context.Context, id int64) (*model.ResumableState, error)
	FindByProjectAndCode(ctx context.Context, projectID int64, stateCode int) (*model.ResumableState, error)
	List(ctx context.Context, projectID int64) ([]*model.ResumableState, error)
}

type resumableStateRepository struct {
	db *gorm.DB
}

func NewResumableStateRepository(db *gorm.DB) ResumableStateRepository {
	return &resumableStateRepository{db: db}
}

func (r *resumableStateRepository) Create(ctx context.Context, rs *model.ResumableState) error {
	return wrapDB(r.db.WithContext(ctx).Create(rs).Error, "创建恢复策略失败")
}

func (r *resumableStateRepository) Update(ctx context.Context, rs *model.ResumableState) error {
	return wrapDB(r.db.WithContext(ctx).Save(rs).Error, "更新恢复策略失败")
}

func (r *resumableStateRepository) FindByID(ctx context.Context, id int64) (*model.ResumableState, error) {
	var rs model.ResumableState
	if err := r.db.WithContext(ctx).First(&rs, id).Error; err != nil {
		return nil, wrapFind(err, "恢复策略不存在", "查询恢复策略失败")
	}
	return &rs, nil
}

func (r *resumableStateRepository) FindByProjectAndCode(ctx context.Context, projectID int64, stateCode int) (*model.ResumableState, error) {
	var rs model.ResumableState
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND state_code = ?", projectID, stateCode).
		First(&rs).Error
	if err != nil {
		return nil, wrapFind(err, "恢复策略不存在", "查询恢复策略失败")
	}
	return &rs, nil
}

func (r *resumableStateRepository) List(ctx context.Context, projectID int64) ([]*model.ResumableState, error) {
	var list []*model.ResumableState
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("state_code ASC").Find(&list).Error
	return list, wrapDB(err, "查询恢复策略列表失败")
}

// ResumeRequestRepository 恢复请求仓储接口
type ResumeRequestRepository interface {
	Create(ctx context.Context, req *model.ResumeRequest) error
	Update(ctx context.Context, req *model.ResumeRequest) error
	FindByID(ctx context.Context, id int64, opts ...QueryOption) (*model.ResumeRequest, error)
	ListByBuild(ctx context.Context, buildID int64) ([]*model.ResumeRequest, error)
	List(ctx context.Context, status string, page Page) ([]*model.ResumeRequest, int64, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type resumeRequestRepository struct {
	db *gorm.DB
}

func NewResumeRequestRepository(db *gorm.DB) ResumeRequestRepository {
	return &resumeRequestRepository{db: db}
}

func (r *resumeRequestRepository) Create(ctx context.Context, req *model.ResumeRequest) error {
	return wrapDB(r.db.WithContext(ctx).Create(req).Error, "创建恢复请求失败")
}

func (r *resumeRequestRepository) Update(ctx context.Context, req *model.ResumeRequest) error {
	return wrapDB(r.db.WithContext(ctx).Save(req).Error, "更新恢复请求失败")
}

func (r *resumeRequestRepository) FindByID(ctx context.Context, id int64, opts ...QueryOption) (*model.ResumeRequest, error) {
	var req model.ResumeRequest
	if err := applyOptions(r.db.WithContext(ctx), opts).First(&req, id).Error; err != nil {
		return nil, wrapFind(err, "恢复请求不存在", "查询恢复请求失败")
	}
	return &req, nil
}

func (r *resumeRequestRepository) ListByBuild(ctx context.Context, buildID int64) ([]*model.ResumeRequest, error) {
	var list []*model.ResumeRequest
	err := r.db.WithContext(ctx).Where("build_id = ?", buildID).
		Order("created_at DESC").Order("id DESC").
		Find(&list).Error
	return list, wrapDB(err, "查询恢复请求失败")
}

func (r *resumeRequestRepository) List(ctx context.Context, status string, page Page) ([]*model.ResumeRequest, int64, error) {
	var list []*model.ResumeRequest
	var total int64
	query := r.db.WithContext(ctx).Model(&model.ResumeRequest{})
	if status != "" {
		query = query.Where("orchestration_status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapDB(err, "统计恢复请求失败")
	}
	err := page.apply(query).Order("created_at DESC").Order("id DESC").Find(&list).Error
	return list, total, wrapDB(err, "查询恢复请求失败")
}

func (r *resumeRequestRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ResumeRequest{}).
		Where("orchestration_status = ?", status).
		Count(&count).Error
	return count, wrapDB(err, "统计恢复请求失败")
}
