package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/leonard05717/appointment/config"
	"github.com/leonard05717/appointment/internal/booking"
	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/internal/realtime"
	"github.com/leonard05717/appointment/internal/repository"
	pkgerrors "github.com/leonard05717/appointment/pkg/errors"
	"github.com/leonard05717/appointment/pkg/format"
	"github.com/leonard05717/appointment/pkg/metrics"
	"github.com/leonard05717/appointment/pkg/qrcode"
)

// ErrQRCodeExhausted 多次生成的随机码均已被占用
var ErrQRCodeExhausted = errors.New("Could not allocate a unique QR code, please try again")

const qrCodeAttempts = 10

// BookingService 学生预约向导：身份 → 事由与班级 → 日期与时间段 → 确认
type BookingService interface {
	Availability(ctx context.Context, userID uint, date string) (*dto.AvailabilityResponse, error)

	GetDraft(ctx context.Context, userID uint) (*dto.DraftResponse, error)
	UpdateDraft(ctx context.Context, userID uint, req *dto.DraftUpdateRequest) (*dto.DraftResponse, error)
	Next(ctx context.Context, userID uint) (*dto.DraftResponse, error)
	Back(ctx context.Context, userID uint) (*dto.DraftResponse, error)
	Reset(ctx context.Context, userID uint) (*dto.DraftResponse, error)
	Commit(ctx context.Context, userID uint) (*dto.BookingResult, error)

	// Book 不经过向导，一次提交全部字段
	Book(ctx context.Context, userID uint, req *dto.BookRequest) (*dto.BookingResult, error)
	// QRCode 重新下载自己预约的二维码
	QRCode(ctx context.Context, userID, appointmentID uint) (*dto.BookingResult, error)
}

type bookingService struct {
	cfg     *config.BookingConfig
	repo    *repository.Repository
	drafts  DraftStore
	pub     *publisher
	clock   *clock
	avail   *availability
	render  func(token string, size int) ([]byte, error)
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewBookingService 创建 BookingService 实例
func NewBookingService(
	cfg *config.Config,
	repo *repository.Repository,
	drafts DraftStore,
	pub *publisher,
	clock *clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) BookingService {
	return &bookingService{
		cfg:     &cfg.Booking,
		repo:    repo,
		drafts:  drafts,
		pub:     pub,
		clock:   clock,
		avail:   newAvailability(repo, clock, cfg.Booking.WindowMonths),
		render:  qrcode.Render,
		metrics: m,
		logger:  logger,
	}
}

// ────────────────────── 可约查询 ──────────────────────

func (s *bookingService) Availability(ctx context.Context, userID uint, date string) (*dto.AvailabilityResponse, error) {
	cal, err := s.avail.calendar(ctx, userID, 0)
	if err != nil {
		s.logger.Error("构造可约日历失败", zap.Uint("user_id", userID), zap.Error(err))
		return nil, err
	}
	first, last := cal.Range()
	resp := &dto.AvailabilityResponse{
		MinDate:  format.Date(first),
		MaxDate:  format.Date(last),
		Excluded: cal.Excluded(true),
		Times:    []booking.SlotOption{},
	}
	if resp.Excluded == nil {
		resp.Excluded = []booking.ExcludedDay{}
	}
	if date == "" {
		return resp, nil
	}

	day, err := s.avail.checkDate(cal, date, true)
	if err != nil {
		return nil, err
	}
	options, err := s.avail.options(ctx, day)
	if err != nil {
		return nil, err
	}
	resp.Date = day
	resp.Times = options
	return resp, nil
}

// ────────────────────── 向导 ──────────────────────

func (s *bookingService) GetDraft(ctx context.Context, userID uint) (*dto.DraftResponse, error) {
	d, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toDraftResponse(d), nil
}

func (s *bookingService) UpdateDraft(ctx context.Context, userID uint, req *dto.DraftUpdateRequest) (*dto.DraftResponse, error) {
	d, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Reasons != nil {
		d.SetReasons(*req.Reasons)
		if len(d.Reasons) > 0 {
			reasons, err := s.avail.checkReasons(ctx, d.Reasons)
			if err != nil {
				return nil, err
			}
			d.Reasons = reasons
		}
	}
	if req.SectionID != nil {
		if *req.SectionID != 0 {
			if err := s.avail.checkSection(ctx, *req.SectionID); err != nil {
				return nil, err
			}
		}
		d.SectionID = *req.SectionID
	}
	if req.Note != nil {
		d.Note = strings.TrimSpace(*req.Note)
	}
	if req.Date != nil {
		date := ""
		if *req.Date != "" {
			cal, err := s.avail.calendar(ctx, userID, 0)
			if err != nil {
				return nil, err
			}
			if date, err = s.avail.checkDate(cal, *req.Date, true); err != nil {
				return nil, err
			}
		}
		d.SetDate(date)
	}
	if req.Time != nil {
		label := strings.TrimSpace(*req.Time)
		if label != "" {
			if d.Date == "" {
				return nil, booking.ErrDateRequired
			}
			if label, err = s.avail.checkTime(ctx, d.Date, label); err != nil {
				return nil, err
			}
		}
		d.Time = label
	}

	return s.save(ctx, userID, d)
}

func (s *bookingService) Next(ctx context.Context, userID uint) (*dto.DraftResponse, error) {
	d, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := d.Next(); err != nil {
		return nil, err
	}
	return s.save(ctx, userID, d)
}

func (s *bookingService) Back(ctx context.Context, userID uint) (*dto.DraftResponse, error) {
	d, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := d.Back(); err != nil {
		return nil, err
	}
	return s.save(ctx, userID, d)
}

func (s *bookingService) Reset(ctx context.Context, userID uint) (*dto.DraftResponse, error) {
	if err := s.drafts.Delete(ctx, userID); err != nil {
		s.logger.Warn("删除预约草稿失败", zap.Uint("user_id", userID), zap.Error(err))
	}
	return s.GetDraft(ctx, userID)
}

func (s *bookingService) Commit(ctx context.Context, userID uint) (*dto.BookingResult, error) {
	d, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := d.ReadyToCommit(); err != nil {
		return nil, err
	}

	a, err := s.insert(ctx, d)
	if err != nil {
		return nil, err
	}

	// 记录已写入，向导回到第一步
	if err := s.drafts.Delete(ctx, userID); err != nil {
		s.logger.Warn("删除预约草稿失败", zap.Uint("user_id", userID), zap.Error(err))
	}
	return s.result(a)
}

func (s *bookingService) Book(ctx context.Context, userID uint, req *dto.BookRequest) (*dto.BookingResult, error) {
	d := booking.NewDraft()
	id, err := s.identity(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.SetIdentity(id)
	d.SetReasons(req.Reasons)
	d.SectionID = req.SectionID
	d.Note = strings.TrimSpace(req.Note)
	d.SetDate(req.Date)
	d.Time = strings.TrimSpace(req.Time)

	for d.Step < booking.StepConfirm {
		if err := d.Next(); err != nil {
			return nil, err
		}
	}
	a, err := s.insert(ctx, d)
	if err != nil {
		return nil, err
	}
	return s.result(a)
}

func (s *bookingService) QRCode(ctx context.Context, userID, appointmentID uint) (*dto.BookingResult, error) {
	a, err := s.repo.Appointment.GetByID(ctx, appointmentID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrAppointmentNotFound
	}
	png, err := s.render(a.QRCode, s.cfg.QRSize)
	if err != nil {
		s.logger.Error("生成二维码失败", zap.Uint("appointment_id", a.ID), zap.Error(err))
		return nil, err
	}
	return &dto.BookingResult{Appointment: toAppointmentResponse(a), FileName: qrcode.FileName, PNG: png}, nil
}

// ── 内部方法 ──

// load 读取草稿，并按账号当前状态刷新身份信息
func (s *bookingService) load(ctx context.Context, userID uint) (*booking.Draft, error) {
	d, err := s.drafts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	id, err := s.identity(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.SetIdentity(id)
	return d, nil
}

func (s *bookingService) save(ctx context.Context, userID uint, d *booking.Draft) (*dto.DraftResponse, error) {
	if err := s.drafts.Save(ctx, userID, d); err != nil {
		s.logger.Error("保存预约草稿失败", zap.Uint("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toDraftResponse(d), nil
}

func (s *bookingService) identity(ctx context.Context, userID uint) (booking.Identity, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return booking.Identity{}, ErrUserNotFound
		}
		return booking.Identity{}, err
	}
	return booking.Identity{
		UserID:    user.ID,
		StudentID: user.StudentID,
		Name:      format.FullName(user.Firstname, user.Lastname),
		Email:     user.Email(),
		Active:    user.Status,
	}, nil
}

// insert 提交前重新校验全部选择，随后写入待处理预约
func (s *bookingService) insert(ctx context.Context, d *booking.Draft) (*model.Appointment, error) {
	reasons, err := s.avail.checkReasons(ctx, d.Reasons)
	if err != nil {
		return nil, err
	}
	if err := s.avail.checkSection(ctx, d.SectionID); err != nil {
		return nil, err
	}
	cal, err := s.avail.calendar(ctx, d.Identity.UserID, 0)
	if err != nil {
		return nil, err
	}
	date, err := s.avail.checkDate(cal, d.Date, true)
	if err != nil {
		return nil, err
	}
	slot, err := s.avail.checkTime(ctx, date, d.Time)
	if err != nil {
		return nil, err
	}
	code, err := s.newQRCode(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sectionID := d.SectionID
	a := &model.Appointment{
		UserID:          d.Identity.UserID,
		SectionID:       &sectionID,
		Reasons:         reasons,
		Note:            d.Note,
		Status:          model.StoredPending,
		QRCode:          code,
		AppointmentDate: date,
		AppointmentTime: slot,
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := s.repo.Appointment.Create(ctx, a); err != nil {
		s.logger.Error("创建预约失败", zap.Uint("student_id", a.UserID), zap.Error(err))
		return nil, err
	}

	// 带上学生与班级信息再返回
	if full, err := s.repo.Appointment.GetByID(ctx, a.ID); err == nil {
		a = full
	}

	s.pub.inserted(ctx, realtime.TableAppointments, a)
	s.metrics.IncBooked()
	s.logger.Info("预约已创建",
		zap.Uint("appointment_id", a.ID),
		zap.Uint("student_id", a.UserID),
		zap.String("date", a.AppointmentDate),
		zap.String("time", a.AppointmentTime),
	)
	return a, nil
}

func (s *bookingService) newQRCode(ctx context.Context) (string, error) {
	for range qrCodeAttempts {
		code, err := qrcode.NewToken(s.cfg.QRCodeLength)
		if err != nil {
			return "", err
		}
		exists, err := s.repo.Appointment.ExistsQRCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrQRCodeExhausted
}

// result 生成二维码；失败时预约仍然有效，返回副作用错误
func (s *bookingService) result(a *model.Appointment) (*dto.BookingResult, error) {
	res := &dto.BookingResult{Appointment: toAppointmentResponse(a), FileName: qrcode.FileName}
	png, err := s.render(a.QRCode, s.cfg.QRSize)
	if err != nil {
		s.logger.Error("生成二维码失败", zap.Uint("appointment_id", a.ID), zap.Error(err))
		return res, pkgerrors.NewSideEffect(a.ID, "qrcode", fmt.Errorf("render: %w", err))
	}
	res.PNG = png
	return res, nil
}

func toDraftResponse(d *booking.Draft) *dto.DraftResponse {
	return &dto.DraftResponse{
		Step:     int(d.Step),
		StepName: d.Step.String(),
		CanBack:  d.Step > booking.StepIdentity,
		Draft:    d,
	}
}
