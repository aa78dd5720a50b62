package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgErrors "buildstate/pkg/errors"
)

type QueryOption func(*gorm.DB) *gorm.DB

func WithPreload(association string, conds ...interface{}) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Preload(association, conds...)
	}
}

// WithLock 行锁(SELECT ... FOR UPDATE), 不支持行锁的方言会忽略该子句
func WithLock() QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
}

func applyOptions(db *gorm.DB, opts []QueryOption) *gorm.DB {
	for _, opt := range opts {
		db = opt(db)
	}
	return db
}

// Page 分页参数
type Page struct {
	Offset int
	Limit  int
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	if p.Limit > 0 {
		db = db.Limit(p.Limit)
	}
	if p.Offset > 0 {
		db = db.Offset(p.Offset)
	}
	return db
}

// wrapFind 查询错误转换: 记录不存在 -> NotFound, 其他 -> internal
func wrapFind(err error, notFound string, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgErrors.New(pkgErrors.KindNotFound, notFound)
	}
	return pkgErrors.Wrap(pkgErrors.KindInternal, message, err)
}

func wrapDB(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgErrors.Wrap(pkgErrors.KindConflict, message, err)
	}
	return pkgErrors.Wrap(pkgErrors.KindInternal, message, err)
}
