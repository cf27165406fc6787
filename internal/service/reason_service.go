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
	"github.com/leonard05717/appointment/pkg/format"
)

var (
	ErrReasonNotFound = errors.New("Reason not found")
	ErrReasonEmpty    = errors.New("Reason is required")
)

// ReasonService 预约事由维护，保存时统一为标题格式
type ReasonService interface {
	List(ctx context.Context) ([]dto.ReasonResponse, error)
	Create(ctx context.Context, req *dto.ReasonRequest) (*dto.ReasonResponse, error)
	Update(ctx context.Context, id uint, req *dto.ReasonRequest) (*dto.ReasonResponse, error)
	Delete(ctx context.Context, id uint) error
}

type reasonService struct {
	repo   *repository.Repository
	pub    *publisher
	logger *zap.Logger
}

// NewReasonService 创建 ReasonService 实例
func NewReasonService(repo *repository.Repository, pub *publisher, logger *zap.Logger) ReasonService {
	return &reasonService{repo: repo, pub: pub, logger: logger}
}

func (s *reasonService) List(ctx context.Context) ([]dto.ReasonResponse, error) {
	reasons, err := s.repo.Reason.List(ctx)
	if err != nil {
		s.logger.Error("列出事由失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.ReasonResponse, 0, len(reasons))
	for _, r := range reasons {
		result = append(result, dto.ReasonResponse{ID: r.ID, Reason: r.Reason})
	}
	return result, nil
}

func (s *reasonService) Create(ctx context.Context, req *dto.ReasonRequest) (*dto.ReasonResponse, error) {
	text := format.ToProper(strings.TrimSpace(req.Reason))
	if text == "" {
		return nil, ErrReasonEmpty
	}
	reason := &model.Reason{Reason: text}
	if err := s.repo.Reason.Create(ctx, reason); err != nil {
		s.logger.Error("创建事由失败", zap.Error(err))
		return nil, err
	}
	s.pub.inserted(ctx, realtime.TableReasons, reason)
	return &dto.ReasonResponse{ID: reason.ID, Reason: reason.Reason}, nil
}

func (s *reasonService) Update(ctx context.Context, id uint, req *dto.ReasonRequest) (*dto.ReasonResponse, error) {
	text := format.ToProper(strings.TrimSpace(req.Reason))
	if text == "" {
		return nil, ErrReasonEmpty
	}
	reason, err := s.repo.Reason.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReasonNotFound
		}
		s.logger.Error("查询事由失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	reason.Reason = text
	if err := s.repo.Reason.Update(ctx, reason); err != nil {
		s.logger.Error("更新事由失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	s.pub.updated(ctx, realtime.TableReasons, reason)
	return &dto.ReasonResponse{ID: reason.ID, Reason: reason.Reason}, nil
}

func (s *reasonService) Delete(ctx context.Context, id uint) error {
	reason, err := s.repo.Reason.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReasonNotFound
		}
		return err
	}
	if err := s.repo.Reason.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReasonNotFound
		}
		s.logger.Error("删除事由失败", zap.Uint("id", id), zap.Error(err))
		return err
	}
	s.pub.deleted(ctx, realtime.TableReasons, reason)
	return nil
}
