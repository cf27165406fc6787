package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/leonard05717/appointment/internal/model"
)

// UserRepository 用户资料数据访问接口
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByAuthID(ctx context.Context, authID string) (*model.User, error)
	GetByStudentID(ctx context.Context, studentID string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpdateStatus(ctx context.Context, id uint, active bool) error
	// ListStaff 非学生用户，附带凭证
	ListStaff(ctx context.Context) ([]model.User, error)
	// ListStudents 学生用户，附带凭证
	ListStudents(ctx context.Context) ([]model.User, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetByID(ctx context.Context, id uint) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepo) GetByAuthID(ctx context.Context, authID string) (*model.User, error) {
	return r.first(ctx, "auth_id = ?", authID)
}

func (r *userRepo) GetByStudentID(ctx context.Context, studentID string) (*model.User, error) {
	return r.first(ctx, "student_id = ?", studentID)
}

func (r *userRepo) first(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Auth").
		Where(query, arg).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).
		Model(user).
		Select("firstname", "lastname", "gender", "address", "birthday", "student_id", "role", "status", "updated_at").
		Updates(user).Error
}

func (r *userRepo) UpdateStatus(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     active,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) ListStaff(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Preload("Auth").
		Where("role <> ?", model.RoleStudent).
		Order("id DESC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) ListStudents(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Preload("Auth").
		Where("role = ?", model.RoleStudent).
		Order("id DESC").
		Find(&users).Error
	return users, err
}
