package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/internal/realtime"
	"github.com/leonard05717/appointment/internal/repository"
	"github.com/leonard05717/appointment/pkg/format"
)

// ── 设置模块业务错误 ──

var (
	ErrAppointmentTimeNotFound = errors.New("Appointment time not found")
	ErrAppointmentTimeExists   = errors.New("Appointment time already exists")
	ErrDisabledDateNotFound    = errors.New("Disabled date not found")
	ErrDisabledDateExists      = errors.New("The selected date already exists.")
	ErrInvalidDate             = errors.New("Date must be YYYY-MM-DD")
	ErrInvalidCalendar         = errors.New("Calendar file could not be read")
)

// SettingsService 时间段与停约日期维护
type SettingsService interface {
	ListTimes(ctx context.Context) ([]dto.AppointmentTimeResponse, error)
	CreateTime(ctx context.Context, req *dto.CreateAppointmentTimeRequest) (*dto.AppointmentTimeResponse, error)
	UpdateTime(ctx context.Context, id uint, req *dto.UpdateAppointmentTimeRequest) (*dto.AppointmentTimeResponse, error)
	DeleteTime(ctx context.Context, id uint) error

	ListDisabledDates(ctx context.Context) ([]dto.DisabledDateResponse, error)
	CreateDisabledDate(ctx context.Context, req *dto.DisabledDateRequest) (*dto.DisabledDateResponse, error)
	UpdateDisabledDate(ctx context.Context, id uint, req *dto.DisabledDateRequest) (*dto.DisabledDateResponse, error)
	DeleteDisabledDate(ctx context.Context, id uint) error
	ImportDisabledDates(ctx context.Context, r io.Reader) (*dto.ImportDisabledDatesResponse, error)
}

type settingsService struct {
	repo   *repository.Repository
	pub    *publisher
	clock  *clock
	logger *zap.Logger
}

// NewSettingsService 创建 SettingsService 实例
func NewSettingsService(repo *repository.Repository, pub *publisher, clock *clock, logger *zap.Logger) SettingsService {
	return &settingsService{repo: repo, pub: pub, clock: clock, logger: logger}
}

// ────────────────────── 时间段 ──────────────────────

func (s *settingsService) ListTimes(ctx context.Context) ([]dto.AppointmentTimeResponse, error) {
	times, err := s.repo.AppointmentTime.List(ctx)
	if err != nil {
		s.logger.Error("列出时间段失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.AppointmentTimeResponse, 0, len(times))
	for _, t := range times {
		result = append(result, dto.AppointmentTimeResponse{ID: t.ID, Time: t.Time, Max: t.Max})
	}
	return result, nil
}

func (s *settingsService) CreateTime(ctx context.Context, req *dto.CreateAppointmentTimeRequest) (*dto.AppointmentTimeResponse, error) {
	label := strings.TrimSpace(req.Time)
	existing, err := s.repo.AppointmentTime.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range existing {
		if strings.EqualFold(t.Time, label) {
			return nil, ErrAppointmentTimeExists
		}
	}

	slot := &model.AppointmentTime{Time: label, Max: req.Max}
	if err := s.repo.AppointmentTime.Create(ctx, slot); err != nil {
		s.logger.Error("创建时间段失败", zap.Error(err))
		return nil, err
	}
	return &dto.AppointmentTimeResponse{ID: slot.ID, Time: slot.Time, Max: slot.Max}, nil
}

func (s *settingsService) UpdateTime(ctx context.Context, id uint, req *dto.UpdateAppointmentTimeRequest) (*dto.AppointmentTimeResponse, error) {
	if err := s.repo.AppointmentTime.UpdateMax(ctx, id, req.Max); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentTimeNotFound
		}
		s.logger.Error("更新时间段失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	slot, err := s.repo.AppointmentTime.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.AppointmentTimeResponse{ID: slot.ID, Time: slot.Time, Max: slot.Max}, nil
}

func (s *settingsService) DeleteTime(ctx context.Context, id uint) error {
	if err := s.repo.AppointmentTime.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAppointmentTimeNotFound
		}
		s.logger.Error("删除时间段失败", zap.Uint("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── 停约日期 ──────────────────────

func (s *settingsService) ListDisabledDates(ctx context.Context) ([]dto.DisabledDateResponse, error) {
	dates, err := s.repo.DisabledDate.List(ctx)
	if err != nil {
		s.logger.Error("列出停约日期失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.DisabledDateResponse, 0, len(dates))
	for i := range dates {
		result = append(result, toDisabledDateResponse(&dates[i]))
	}
	return result, nil
}

// CreateDisabledDate 日期已存在时不写入
func (s *settingsService) CreateDisabledDate(ctx context.Context, req *dto.DisabledDateRequest) (*dto.DisabledDateResponse, error) {
	date, err := s.normalizeDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := s.ensureDateFree(ctx, date, 0); err != nil {
		return nil, err
	}

	d := &model.DisabledDate{Date: date, Description: strings.TrimSpace(req.Description)}
	if err := s.repo.DisabledDate.Create(ctx, d); err != nil {
		s.logger.Error("创建停约日期失败", zap.String("date", date), zap.Error(err))
		return nil, err
	}
	s.pub.inserted(ctx, realtime.TableDisabledDates, d)
	resp := toDisabledDateResponse(d)
	return &resp, nil
}

func (s *settingsService) UpdateDisabledDate(ctx context.Context, id uint, req *dto.DisabledDateRequest) (*dto.DisabledDateResponse, error) {
	d, err := s.repo.DisabledDate.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDisabledDateNotFound
		}
		s.logger.Error("查询停约日期失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	date, err := s.normalizeDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := s.ensureDateFree(ctx, date, id); err != nil {
		return nil, err
	}

	d.Date = date
	d.Description = strings.TrimSpace(req.Description)
	if err := s.repo.DisabledDate.Update(ctx, d); err != nil {
		s.logger.Error("更新停约日期失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	s.pub.updated(ctx, realtime.TableDisabledDates, d)
	resp := toDisabledDateResponse(d)
	return &resp, nil
}

func (s *settingsService) DeleteDisabledDate(ctx context.Context, id uint) error {
	d, err := s.repo.DisabledDate.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDisabledDateNotFound
		}
		return err
	}
	if err := s.repo.DisabledDate.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDisabledDateNotFound
		}
		s.logger.Error("删除停约日期失败", zap.Uint("id", id), zap.Error(err))
		return err
	}
	s.pub.deleted(ctx, realtime.TableDisabledDates, d)
	return nil
}

// ImportDisabledDates 导入节假日日历；已存在或早于今天的日期跳过
func (s *settingsService) ImportDisabledDates(ctx context.Context, r io.Reader) (*dto.ImportDisabledDatesResponse, error) {
	entries, err := parseHolidayCalendar(r, s.clock.loc)
	if err != nil {
		s.logger.Warn("解析节假日日历失败", zap.Error(err))
		return nil, ErrInvalidCalendar
	}

	existing, err := s.repo.DisabledDate.List(ctx)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(existing))
	for _, d := range existing {
		taken[d.Date] = true
	}

	today := format.Date(s.clock.Today())
	resp := &dto.ImportDisabledDatesResponse{Dates: []string{}}
	for _, e := range entries {
		if taken[e.Date] || e.Date < today {
			resp.Skipped++
			continue
		}
		d := &model.DisabledDate{Date: e.Date, Description: e.Description}
		if err := s.repo.DisabledDate.Create(ctx, d); err != nil {
			s.logger.Error("导入停约日期失败", zap.String("date", e.Date), zap.Error(err))
			return nil, err
		}
		taken[e.Date] = true
		s.pub.inserted(ctx, realtime.TableDisabledDates, d)
		resp.Imported++
		resp.Dates = append(resp.Dates, e.Date)
	}

	s.logger.Info("节假日日历导入完成",
		zap.Int("imported", resp.Imported),
		zap.Int("skipped", resp.Skipped),
	)
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *settingsService) normalizeDate(date string) (string, error) {
	t, err := format.ParseDate(date, s.clock.loc)
	if err != nil {
		return "", ErrInvalidDate
	}
	return format.Date(t), nil
}

// ensureDateFree 日期未被其他记录占用；ownID 为当前记录时视为可用
func (s *settingsService) ensureDateFree(ctx context.Context, date string, ownID uint) error {
	existing, err := s.repo.DisabledDate.GetByDate(ctx, date)
	if err == nil {
		if existing.ID == ownID {
			return nil
		}
		return ErrDisabledDateExists
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func toDisabledDateResponse(d *model.DisabledDate) dto.DisabledDateResponse {
	return dto.DisabledDateResponse{
		ID:          d.ID,
		Date:        d.Date,
		LongDate:    format.LongDate(d.Date),
		Description: d.Description,
	}
}
