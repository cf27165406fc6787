package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/leonard05717/appointment/internal/model"
)

// SectionRepository 班级数据访问接口
type SectionRepository interface {
	Create(ctx context.Context, section *model.Section) error
	GetByID(ctx context.Context, id uint) (*model.Section, error)
	List(ctx context.Context) ([]model.Section, error)
	Update(ctx context.Context, section *model.Section) error
	Delete(ctx context.Context, id uint) error
}

type sectionRepo struct {
	db *gorm.DB
}

// NewSectionRepo 创建 SectionRepository 实例
func NewSectionRepo(db *gorm.DB) SectionRepository {
	return &sectionRepo{db: db}
}

func (r *sectionRepo) Create(ctx context.Context, section *model.Section) error {
	return r.db.WithContext(ctx).Create(section).Error
}

func (r *sectionRepo) GetByID(ctx context.Context, id uint) (*model.Section, error) {
	var section model.Section
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&section).Error; err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *sectionRepo) List(ctx context.Context) ([]model.Section, error) {
	var list []model.Section
	err := r.db.WithContext(ctx).Order("course ASC, year_level ASC, section ASC").Find(&list).Error
	return list, err
}

func (r *sectionRepo) Update(ctx context.Context, section *model.Section) error {
	return r.db.WithContext(ctx).Save(section).Error
}

func (r *sectionRepo) Delete(ctx context.Context, id uint) error {
	return deleteByID[model.Section](ctx, r.db, id)
}

// deleteByID 按主键删除，未命中返回 gorm.ErrRecordNotFound
func deleteByID[T any](ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
