package repository

import (
	"context"

	"gorm.io/gorm"
)

// CatalogRepository 目录类数据(项目/平台/系统版本/镜像类型)通用仓储
type CatalogRepository[T any] interface {
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, item *T) error
	FindByID(ctx context.Context, id int64, opts ...QueryOption) (*T, error)
	List(ctx context.Context, keyword string, page Page) ([]*T, int64, error)
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}

type catalogRepository[T any] struct {
	db    *gorm.DB
	label string
}

// NewCatalogRepository 创建目录仓储, label 用于错误信息
func NewCatalogRepository[T any](db *gorm.DB, label string) CatalogRepository[T] {
	return &catalogRepository[T]{db: db, label: label}
}

func (r *catalogRepository[T]) Create(ctx context.Context, item *T) error {
	return wrapDB(r.db.WithContext(ctx).Create(item).Error, "创建"+r.label+"失败")
}

func (r *catalogRepository[T]) Update(ctx context.Context, item *T) error {
	return wrapDB(r.db.WithContext(ctx).Save(item).Error, "更新"+r.label+"失败")
}

func (r *catalogRepository[T]) FindByID(ctx context.Context, id int64, opts ...QueryOption) (*T, error) {
	var item T
	if err := applyOptions(r.db.WithContext(ctx), opts).First(&item, id).Error; err != nil {
		return nil, wrapFind(err, r.label+"不存在", "查询"+r.label+"失败")
	}
	return &item, nil
}

func (r *catalogRepository[T]) List(ctx context.Context, keyword string, page Page) ([]*T, int64, error) {
	var list []*T
	var total int64
	query := r.db.WithContext(ctx).Model(new(T))
	if keyword != "" {
		query = query.Where("name LIKE ?", "%"+keyword+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapDB(err, "统计"+r.label+"失败")
	}
	err := page.apply(query).Order("id ASC").Find(&list).Error
	return list, total, wrapDB(err, "查询"+r.label+"列表失败")
}

func (r *catalogRepository[T]) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(new(T), id)
	if result.Error != nil {
		return wrapDB(result.Error, "删除"+r.label+"失败")
	}
	if result.RowsAffected == 0 {
		return wrapFind(gorm.ErrRecordNotFound, r.label+"不存在", "")
	}
	return nil
}

func (r *catalogRepository[T]) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error
	return count > 0, wrapDB(err, "查询"+r.label+"失败")
}
