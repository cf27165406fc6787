package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/leonard05717/appointment/internal/model"
)

// AppointmentTimeRepository 时间段数据访问接口
type AppointmentTimeRepository interface {
	Create(ctx context.Context, t *model.AppointmentTime) error
	GetByID(ctx context.Context, id uint) (*model.AppointmentTime, error)
	List(ctx context.Context) ([]model.AppointmentTime, error)
	UpdateMax(ctx context.Context, id uint, capacity int) error
	Delete(ctx context.Context, id uint) error
}

type appointmentTimeRepo struct {
	db *gorm.DB
}

// NewAppointmentTimeRepo 创建 AppointmentTimeRepository 实例
func NewAppointmentTimeRepo(db *gorm.DB) AppointmentTimeRepository {
	return &appointmentTimeRepo{db: db}
}

func (r *appointmentTimeRepo) Create(ctx context.Context, t *model.AppointmentTime) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *appointmentTimeRepo) GetByID(ctx context.Context, id uint) (*model.AppointmentTime, error) {
	var t model.AppointmentTime
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *appointmentTimeRepo) List(ctx context.Context) ([]model.AppointmentTime, error) {
	var list []model.AppointmentTime
	err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *appointmentTimeRepo) UpdateMax(ctx context.Context, id uint, capacity int) error {
	res := r.db.WithContext(ctx).
		Model(&model.AppointmentTime{}).
		Where("id = ?", id).
		Update("max", capacity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *appointmentTimeRepo) Delete(ctx context.Context, id uint) error {
	return deleteByID[model.AppointmentTime](ctx, r.db, id)
}
