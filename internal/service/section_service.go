package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/internal/realtime"
	"github.com/leonard05717/appointment/internal/repository"
)

var ErrSectionNotFound = errors.New("Section not found")

// SectionService 班级维护
type SectionService interface {
	List(ctx context.Context) ([]dto.SectionResponse, error)
	Create(ctx context.Context, req *dto.SectionRequest) (*dto.SectionResponse, error)
	Update(ctx context.Context, id uint, req *dto.SectionRequest) (*dto.SectionResponse, error)
	Delete(ctx context.Context, id uint) error
}

type sectionService struct {
	repo   *repository.Repository
	pub    *publisher
	logger *zap.Logger
}

// NewSectionService 创建 SectionService 实例
func NewSectionService(repo *repository.Repository, pub *publisher, logger *zap.Logger) SectionService {
	return &sectionService{repo: repo, pub: pub, logger: logger}
}

func (s *sectionService) List(ctx context.Context) ([]dto.SectionResponse, error) {
	sections, err := s.repo.Section.List(ctx)
	if err != nil {
		s.logger.Error("列出班级失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.SectionResponse, 0, len(sections))
	for i := range sections {
		result = append(result, toSectionResponse(&sections[i]))
	}
	return result, nil
}

func (s *sectionService) Create(ctx context.Context, req *dto.SectionRequest) (*dto.SectionResponse, error) {
	section := &model.Section{
		Course:    strings.TrimSpace(req.Course),
		YearLevel: strings.TrimSpace(req.YearLevel),
		Section:   strings.TrimSpace(req.Section),
	}
	if err := s.repo.Section.Create(ctx, section); err != nil {
		s.logger.Error("创建班级失败", zap.Error(err))
		return nil, err
	}
	s.pub.inserted(ctx, realtime.TableSections, section)
	resp := toSectionResponse(section)
	return &resp, nil
}

func (s *sectionService) Update(ctx context.Context, id uint, req *dto.SectionRequest) (*dto.SectionResponse, error) {
	section, err := s.repo.Section.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSectionNotFound
		}
		s.logger.Error("查询班级失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	section.Course = strings.TrimSpace(req.Course)
	section.YearLevel = strings.TrimSpace(req.YearLevel)
	section.Section = strings.TrimSpace(req.Section)

	if err := s.repo.Section.Update(ctx, section); err != nil {
		s.logger.Error("更新班级失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	s.pub.updated(ctx, realtime.TableSections, section)
	resp := toSectionResponse(section)
	return &resp, nil
}

func (s *sectionService) Delete(ctx context.Context, id uint) error {
	section, err := s.repo.Section.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSectionNotFound
		}
		return err
	}
	if err := s.repo.Section.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSectionNotFound
		}
		s.logger.Error("删除班级失败", zap.Uint("id", id), zap.Error(err))
		return err
	}
	s.pub.deleted(ctx, realtime.TableSections, section)
	return nil
}
