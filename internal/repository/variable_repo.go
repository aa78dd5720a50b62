package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"buildstate/internal/model"
)

// VariableRepository 构建变量仓储接口
type VariableRepository interface {
	// Upsert 按 (build_id, variable_key) 插入或覆盖
	Upsert(ctx context.Context, variable *model.BuildVariable) (*model.BuildVariable, error)
	FindByKey(ctx context.Context, buildID int64, key string) (*model.BuildVariable, error)
	ListByBuild(ctx context.Context, buildID int64) ([]*model.BuildVariable, error)
	Delete(ctx context.Context, buildID int64, key string) error
}

type variableRepository struct {
	db *gorm.DB
}

func NewVariableRepository(db *gorm.DB) VariableRepository {
	return &variableRepository{db: db}
}

func (r *variableRepository) Upsert(ctx context.Context, variable *model.BuildVariable) (*model.BuildVariable, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "build_id"}, {Name: "variable_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"variable_value",
			"variable_type",
			"set_at_state",
			"is_sensitive",
			"is_required_for_resume",
			"encrypted",
			"updated_at",
		}),
	}).Create(variable).Error
	if err != nil {
		return nil, wrapDB(err, "写入变量失败")
	}
	// 冲突更新时部分驱动不回填主键, 重新读取
	return r.FindByKey(ctx, variable.BuildID, variable.VariableKey)
}

func (r *variableRepository) FindByKey(ctx context.Context, buildID int64, key string) (*model.BuildVariable, error) {
	var variable model.BuildVariable
	err := r.db.WithContext(ctx).
		Where("build_id = ? AND variable_key = ?", buildID, key).
		First(&variable).Error
	if err != nil {
		return nil, wrapFind(err, "变量不存在", "查询变量失败")
	}
	return &variable, nil
}

func (r *variableRepository) ListByBuild(ctx context.Context, buildID int64) ([]*model.BuildVariable, error) {
	var list []*model.BuildVariable
	err := r.db.WithContext(ctx).Where("build_id = ?", buildID).Order("variable_key ASC").Find(&list).Error
	return list, wrapDB(err, "查询变量列表失败")
}

func (r *variableRepository) Delete(ctx context.Context, buildID int64, key string) error {
	result := r.db.WithContext(ctx).
		Where("build_id = ? AND variable_key = ?", buildID, key).
		Delete(&model.BuildVariable{})
	if result.Error != nil {
		return wrapDB(result.Error, "删除变量失败")
	}
	if result.RowsAffected == 0 {
		return wrapFind(gorm.ErrRecordNotFound, "变量不存在", "")
	}
	return nil
}
