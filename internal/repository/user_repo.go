package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"buildstate/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context, keyword string, page Page) ([]*model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return wrapDB(r.db.WithContext(ctx).Create(user).Error, "创建用户失败")
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, wrapFind(err, "用户不存在", "查询用户失败")
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, wrapFind(err, "用户不存在", "查询用户失败")
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, keyword string, page Page) ([]*model.User, int64, error) {
	var users []*model.User
	var total int64
	query := r.db.WithContext(ctx).Model(&model.User{})
	if keyword != "" {
		query = query.Where("username LIKE ? OR full_name LIKE ?", "%"+keyword+"%", "%"+keyword+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapDB(err, "统计用户失败")
	}
	err := page.apply(query).Order("id ASC").Find(&users).Error
	return users, total, wrapDB(err, "查询用户列表失败")
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return wrapDB(r.db.WithContext(ctx).Save(user).Error, "更新用户失败")
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("last_login_at", at).Error
	return wrapDB(err, "更新登录时间失败")
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error
	return count, wrapDB(err, "统计用户失败")
}

// APITokenRepository 用户API Token仓储接口
type APITokenRepository interface {
	Create(ctx context.Context, token *model.APIToken) error
	FindByHash(ctx context.Context, hash string) (*model.APIToken, error)
	FindByID(ctx context.Context, id int64) (*model.APIToken, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.APIToken, error)
	Touch(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

type apiTokenRepository struct {
	db *gorm.DB
}

func NewAPITokenRepository(db *gorm.DB) APITokenRepository {
	return &apiTokenRepository{db: db}
}

func (r *apiTokenRepository) Create(ctx context.Context, token *model.APIToken) error {
	return wrapDB(r.db.WithContext(ctx).Create(token).Error, "创建API Token失败")
}

// FindByHash 按摘要查询, 同时加载所属用户
func (r *apiTokenRepository) FindByHash(ctx context.Context, hash string) (*model.APIToken, error) {
	var token model.APIToken
	err := r.db.WithContext(ctx).Preload("User").Where("token_hash = ?", hash).First(&token).Error
	if err != nil {
		return nil, wrapFind(err, "API Token不存在", "查询API Token失败")
	}
	return &token, nil
}

func (r *apiTokenRepository) FindByID(ctx context.Context, id int64) (*model.APIToken, error) {
	var token model.APIToken
	if err := r.db.WithContext(ctx).First(&token, id).Error; err != nil {
		return nil, wrapFind(err, "API Token不存在", "查询API Token失败")
	}
	return &token, nil
}

func (r *apiTokenRepository) ListByUser(ctx context.Context, userID int64) ([]*model.APIToken, error) {
	var list []*model.APIToken
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&list).Error
	return list, wrapDB(err, "查询API Token失败")
}

func (r *apiTokenRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.APIToken{}).Where("id = ?", id).Update("last_used_at", at).Error
	return wrapDB(err, "更新API Token失败")
}

func (r *apiTokenRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.APIToken{}, id)
	if result.Error != nil {
		return wrapDB(result.Error, "删除API Token失败")
	}
	if result.RowsAffected == 0 {
		return wrapFind(gorm.ErrRecordNotFound, "API Token不存在", "")
	}
	return nil
}
