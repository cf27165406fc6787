package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/leonard05717/appointment/config"
	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/internal/realtime"
	"github.com/leonard05717/appointment/internal/repository"
	"github.com/leonard05717/appointment/pkg/format"
	"github.com/leonard05717/appointment/pkg/metrics"
	"github.com/leonard05717/appointment/pkg/qrcode"
	"github.com/leonard05717/appointment/pkg/table"
)

// ── 预约模块业务错误 ──

var (
	ErrAppointmentNotFound   = errors.New("Appointment not found")
	ErrAppointmentClosed     = errors.New("Appointment is already completed or cancelled")
	ErrAppointmentNotPending = errors.New("Only pending appointments can be changed")
	ErrInvalidStatus         = errors.New("Unknown appointment status")
	ErrReturnDateRequired    = errors.New("Please select a return date and time")
	ErrNoSelection           = errors.New("No appointment matches the current list")
)

// 学生自行取消时写入的文本
const (
	studentCancelStaffName = "You canceled this appointment."
	studentCancelMessage   = "Cancelled"
)

// AppointmentService 员工预约管理与学生预约记录
type AppointmentService interface {
	// ── 员工 ──
	List(ctx context.Context, req *dto.AppointmentListRequest) (*table.View, error)
	Scan(ctx context.Context, code string) (*dto.AppointmentResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.AppointmentResponse, error)
	ChangeStatus(ctx context.Context, id, actorID uint, req *dto.StatusChangeRequest) (*dto.AppointmentResponse, error)
	Cursor(ctx context.Context, actorID uint, req *dto.CursorRequest) (*dto.CursorResponse, error)
	ReleaseCursor(actorID uint)

	// ── 学生 ──
	History(ctx context.Context, studentID uint) ([]dto.AppointmentResponse, error)
	Update(ctx context.Context, studentID, id uint, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error)
	Cancel(ctx context.Context, studentID, id uint) (*dto.AppointmentResponse, error)
}

type appointmentService struct {
	cfg     *config.BookingConfig
	repo    *repository.Repository
	pub     *publisher
	clock   *clock
	avail   *availability
	cursors *table.Dispatcher
	mu      sync.Mutex
	desks   map[string]*scanDesk
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewAppointmentService 创建 AppointmentService 实例
func NewAppointmentService(
	cfg *config.Config,
	repo *repository.Repository,
	pub *publisher,
	clock *clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) AppointmentService {
	return &appointmentService{
		cfg:     &cfg.Booking,
		repo:    repo,
		pub:     pub,
		clock:   clock,
		avail:   newAvailability(repo, clock, cfg.Booking.WindowMonths),
		cursors: table.NewDispatcher(),
		desks:   make(map[string]*scanDesk),
		metrics: m,
		logger:  logger,
	}
}

// ────────────────────── 员工列表 ──────────────────────

func (s *appointmentService) List(ctx context.Context, req *dto.AppointmentListRequest) (*table.View, error) {
	rows, err := s.rows(ctx, req.Date, req.Status)
	if err != nil {
		return nil, err
	}
	view := tableView(appointmentColumns, rows, req.TableQuery, s.cfg.PageSize)
	return &view, nil
}

// rows 按日期（默认今天）与状态（all 或空为全部）取列表行
func (s *appointmentService) rows(ctx context.Context, date, status string) ([]table.Row, error) {
	filter := repository.AppointmentFilter{Date: date}
	if filter.Date == "" {
		filter.Date = format.Date(s.clock.Today())
	}
	if status != "" && !strings.EqualFold(status, "all") {
		st, ok := model.ParseStatus(status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		filter.Status = st
	}

	list, err := s.repo.Appointment.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询预约列表失败", zap.String("date", filter.Date), zap.Error(err))
		return nil, err
	}
	rows := make([]table.Row, 0, len(list))
	for i := range list {
		rows = append(rows, appointmentRow(&list[i]))
	}
	return rows, nil
}

func (s *appointmentService) Scan(ctx context.Context, code string) (*dto.AppointmentResponse, error) {
	code = qrcode.Normalize(code)
	if code == "" {
		return nil, ErrAppointmentNotFound
	}
	a, err := s.repo.Appointment.GetByQRCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("扫码查询预约失败", zap.String("qrcode", code), zap.Error(err))
		return nil, err
	}
	resp := toAppointmentResponse(a)
	return &resp, nil
}

func (s *appointmentService) GetByID(ctx context.Context, id uint) (*dto.AppointmentResponse, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toAppointmentResponse(a)
	return &resp, nil
}

// ────────────────────── 状态变更 ──────────────────────

// ChangeStatus 员工修改状态；return 需要新的日期（只排除周日与停约日）和有余量的时间段
func (s *appointmentService) ChangeStatus(ctx context.Context, id, actorID uint, req *dto.StatusChangeRequest) (*dto.AppointmentResponse, error) {
	status, ok := model.ParseStatus(req.Status)
	if !ok {
		return nil, ErrInvalidStatus
	}

	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return nil, ErrAppointmentClosed
	}

	actor, err := s.repo.User.GetByID(ctx, actorID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	change := repository.StatusChange{
		Status:    string(status),
		StaffName: format.FullName(actor.Firstname, actor.Lastname),
		Message:   strings.TrimSpace(req.Message),
		UpdatedAt: s.clock.Now(),
	}

	if status == model.StatusReturn {
		if strings.TrimSpace(req.ReturnDate) == "" || strings.TrimSpace(req.ReturnTime) == "" {
			return nil, ErrReturnDateRequired
		}
		cal, err := s.avail.calendar(ctx, 0, 0)
		if err != nil {
			return nil, err
		}
		date, err := s.avail.checkDate(cal, req.ReturnDate, false)
		if err != nil {
			return nil, err
		}
		slot, err := s.avail.checkTime(ctx, date, req.ReturnTime)
		if err != nil {
			return nil, err
		}
		change.AppointmentDate = date
		change.AppointmentTime = slot
	}

	updated, err := s.repo.Appointment.UpdateStatus(ctx, id, change)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("修改预约状态失败", zap.Uint("appointment_id", id), zap.Error(err))
		return nil, err
	}

	s.pub.updated(ctx, realtime.TableAppointments, updated)
	s.metrics.IncStatusChange(string(status))
	s.logger.Info("预约状态已修改",
		zap.Uint("appointment_id", id),
		zap.String("status", string(status)),
		zap.Uint("staff_id", actorID),
	)
	resp := toAppointmentResponse(updated)
	return &resp, nil
}

// ────────────────────── 扫码台光标 ──────────────────────

// scanDesk 某个员工的键盘选择会话
type scanDesk struct {
	mu    sync.Mutex
	query string
	table *table.Table
	nav   *table.Navigator
}

func cursorSession(actorID uint) string {
	return fmt.Sprintf("user:%d", actorID)
}

// Cursor 在当前过滤排序后的列表上移动选中行，查询条件变化时重新开始
func (s *appointmentService) Cursor(ctx context.Context, actorID uint, req *dto.CursorRequest) (*dto.CursorResponse, error) {
	key, err := table.ParseKey(req.Key)
	if err != nil {
		return nil, err
	}
	rows, err := s.rows(ctx, req.Date, req.Status)
	if err != nil {
		return nil, err
	}

	desk := s.desk(actorID, req)

	desk.mu.Lock()
	defer desk.mu.Unlock()

	desk.table.SetRows(rows)
	row, ok := s.cursors.Dispatch(cursorSession(actorID), key)
	if !ok {
		return nil, ErrNoSelection
	}
	index, _, _ := desk.nav.Selected()
	return &dto.CursorResponse{Index: index, Row: row}, nil
}

// desk 取出或新建会话；查询条件不同时替换导航器
func (s *appointmentService) desk(actorID uint, req *dto.CursorRequest) *scanDesk {
	id := cursorSession(actorID)
	query := cursorQuery(req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.desks[id]; ok && d.query == query {
		if _, attached := s.cursors.Get(id); attached {
			return d
		}
	}

	t := table.New(appointmentColumns, table.Options{PageSize: s.cfg.PageSize})
	applyQuery(t, req.Search, req.Sort, req.Desc)
	d := &scanDesk{query: query, table: t}
	d.nav = t.Navigator(func(index int, r table.Row) {
		s.logger.Debug("扫码台选中行", zap.String("session", id), zap.Int("index", index), zap.Any("qrcode", r["qrcode"]))
	})
	s.desks[id] = d
	s.cursors.Attach(id, d.nav)
	return d
}

func cursorQuery(req *dto.CursorRequest) string {
	return fmt.Sprintf("%s|%s|%s|%s|%t",
		req.Date, strings.ToLower(req.Status), strings.Join(req.Search, ","), req.Sort, req.Desc)
}

// ReleaseCursor 结束会话
func (s *appointmentService) ReleaseCursor(actorID uint) {
	id := cursorSession(actorID)
	s.mu.Lock()
	delete(s.desks, id)
	s.mu.Unlock()
	s.cursors.Detach(id)
}

// ────────────────────── 学生 ──────────────────────

func (s *appointmentService) History(ctx context.Context, studentID uint) ([]dto.AppointmentResponse, error) {
	list, err := s.repo.Appointment.ListByStudent(ctx, studentID)
	if err != nil {
		s.logger.Error("查询预约记录失败", zap.Uint("student_id", studentID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.AppointmentResponse, 0, len(list))
	for i := range list {
		result = append(result, toAppointmentResponse(&list[i]))
	}
	return result, nil
}

// Update 学生修改自己的待处理预约，日期与时间段按预约规则重新校验
func (s *appointmentService) Update(ctx context.Context, studentID, id uint, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	a, err := s.own(ctx, studentID, id)
	if err != nil {
		return nil, err
	}
	if !a.IsPending() {
		return nil, ErrAppointmentNotPending
	}

	change := repository.DetailsChange{
		Reasons:         []string(a.Reasons),
		Note:            a.Note,
		AppointmentDate: a.AppointmentDate,
		AppointmentTime: a.AppointmentTime,
		UpdatedAt:       s.clock.Now(),
	}
	if a.SectionID != nil {
		change.SectionID = *a.SectionID
	}

	if req.Reasons != nil {
		reasons, err := s.avail.checkReasons(ctx, dedupe(*req.Reasons))
		if err != nil {
			return nil, err
		}
		if len(reasons) == 0 {
			return nil, ErrReasonEmpty
		}
		change.Reasons = reasons
	}
	if req.SectionID != nil {
		if err := s.avail.checkSection(ctx, *req.SectionID); err != nil {
			return nil, err
		}
		change.SectionID = *req.SectionID
	}
	if req.Note != nil {
		change.Note = strings.TrimSpace(*req.Note)
	}

	dateChanged := req.Date != nil && *req.Date != a.AppointmentDate
	timeChanged := req.Time != nil && !strings.EqualFold(strings.TrimSpace(*req.Time), a.AppointmentTime)
	if dateChanged {
		cal, err := s.avail.calendar(ctx, studentID, a.ID)
		if err != nil {
			return nil, err
		}
		if change.AppointmentDate, err = s.avail.checkDate(cal, *req.Date, true); err != nil {
			return nil, err
		}
	}
	if dateChanged || timeChanged {
		label := change.AppointmentTime
		if req.Time != nil {
			label = strings.TrimSpace(*req.Time)
		}
		if change.AppointmentTime, err = s.avail.checkTime(ctx, change.AppointmentDate, label); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.Appointment.UpdateDetails(ctx, a.ID, change)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("修改预约失败", zap.Uint("appointment_id", a.ID), zap.Error(err))
		return nil, err
	}
	s.pub.updated(ctx, realtime.TableAppointments, updated)
	resp := toAppointmentResponse(updated)
	return &resp, nil
}

// Cancel 学生取消自己的待处理预约
func (s *appointmentService) Cancel(ctx context.Context, studentID, id uint) (*dto.AppointmentResponse, error) {
	a, err := s.own(ctx, studentID, id)
	if err != nil {
		return nil, err
	}
	if !a.IsPending() {
		return nil, ErrAppointmentNotPending
	}

	updated, err := s.repo.Appointment.UpdateStatus(ctx, a.ID, repository.StatusChange{
		Status:    string(model.StatusCancelled),
		StaffName: studentCancelStaffName,
		Message:   studentCancelMessage,
		UpdatedAt: s.clock.Now(),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("取消预约失败", zap.Uint("appointment_id", a.ID), zap.Error(err))
		return nil, err
	}
	s.pub.updated(ctx, realtime.TableAppointments, updated)
	s.metrics.IncStatusChange(string(model.StatusCancelled))
	resp := toAppointmentResponse(updated)
	return &resp, nil
}

// ── 内部方法 ──

func (s *appointmentService) get(ctx context.Context, id uint) (*model.Appointment, error) {
	a, err := s.repo.Appointment.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return a, nil
}

// own 只返回属于该学生的预约，他人的预约视为不存在
func (s *appointmentService) own(ctx context.Context, studentID, id uint) (*model.Appointment, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != studentID {
		return nil, ErrAppointmentNotFound
	}
	return a, nil
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, v := range list {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
