package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/leonard05717/appointment/internal/model"
)

// ReasonRepository 事由数据访问接口
type ReasonRepository interface {
	Create(ctx context.Context, reason *model.Reason) error
	GetByID(ctx context.Context, id uint) (*model.Reason, error)
	List(ctx context.Context) ([]model.Reason, error)
	Update(ctx context.Context, reason *model.Reason) error
	Delete(ctx context.Context, id uint) error
}

type reasonRepo struct {
	db *gorm.DB
}

// NewReasonRepo 创建 ReasonRepository 实例
func NewReasonRepo(db *gorm.DB) ReasonRepository {
	return &reasonRepo{db: db}
}

func (r *reasonRepo) Create(ctx context.Context, reason *model.Reason) error {
	return r.db.WithContext(ctx).Create(reason).Error
}

func (r *reasonRepo) GetByID(ctx context.Context, id uint) (*model.Reason, error) {
	var reason model.Reason
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&reason).Error; err != nil {
		return nil, err
	}
	return &reason, nil
}

func (r *reasonRepo) List(ctx context.Context) ([]model.Reason, error) {
	var list []model.Reason
	err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *reasonRepo) Update(ctx context.Context, reason *model.Reason) error {
	return r.db.WithContext(ctx).Save(reason).Error
}

func (r *reasonRepo) Delete(ctx context.Context, id uint) error {
	return deleteByID[model.Reason](ctx, r.db, id)
}
