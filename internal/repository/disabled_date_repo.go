package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/leonard05717/appointment/internal/model"
)

// DisabledDateRepository 停约日期数据访问接口
type DisabledDateRepository interface {
	Create(ctx context.Context, d *model.DisabledDate) error
	GetByID(ctx context.Context, id uint) (*model.DisabledDate, error)
	GetByDate(ctx context.Context, date string) (*model.DisabledDate, error)
	List(ctx context.Context) ([]model.DisabledDate, error)
	// ListBetween 闭区间 [from, to]
	ListBetween(ctx context.Context, from, to string) ([]model.DisabledDate, error)
	Update(ctx context.Context, d *model.DisabledDate) error
	Delete(ctx context.Context, id uint) error
}

type disabledDateRepo struct {
	db *gorm.DB
}

// NewDisabledDateRepo 创建 DisabledDateRepository 实例
func NewDisabledDateRepo(db *gorm.DB) DisabledDateRepository {
	return &disabledDateRepo{db: db}
}

func (r *disabledDateRepo) Create(ctx context.Context, d *model.DisabledDate) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *disabledDateRepo) GetByID(ctx context.Context, id uint) (*model.DisabledDate, error) {
	var d model.DisabledDate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *disabledDateRepo) GetByDate(ctx context.Context, date string) (*model.DisabledDate, error) {
	var d model.DisabledDate
	if err := r.db.WithContext(ctx).Where("date = ?", date).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *disabledDateRepo) List(ctx context.Context) ([]model.DisabledDate, error) {
	var list []model.DisabledDate
	err := r.db.WithContext(ctx).Order("date ASC").Find(&list).Error
	return list, err
}

func (r *disabledDateRepo) ListBetween(ctx context.Context, from, to string) ([]model.DisabledDate, error) {
	var list []model.DisabledDate
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC").
		Find(&list).Error
	return list, err
}

func (r *disabledDateRepo) Update(ctx context.Context, d *model.DisabledDate) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *disabledDateRepo) Delete(ctx context.Context, id uint) error {
	return deleteByID[model.DisabledDate](ctx, r.db, id)
}
