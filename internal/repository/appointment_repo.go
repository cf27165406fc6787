package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/leonard05717/appointment/internal/model"
)

// AppointmentFilter 预约查询条件，零值字段不参与过滤
type AppointmentFilter struct {
	Date      string       // 精确日期
	From      string       // 起始日期（含）
	To        string       // 截止日期（含）
	Status    model.Status // 大小写无关
	StudentID uint
}

// StatusChange 状态变更写入的字段
type StatusChange struct {
	Status          string
	StaffName       string
	Message         string
	AppointmentDate string // 仅 return 时改约
	AppointmentTime string
	UpdatedAt       time.Time
}

// DetailsChange 学生修改预约写入的字段
type DetailsChange struct {
	Reasons         []string
	SectionID       uint
	Note            string
	AppointmentDate string
	AppointmentTime string
	UpdatedAt       time.Time
}

// AppointmentRepository 预约数据访问接口
type AppointmentRepository interface {
	Create(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id uint) (*model.Appointment, error)
	GetByQRCode(ctx context.Context, code string) (*model.Appointment, error)
	ExistsQRCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, f AppointmentFilter) ([]model.Appointment, error)
	// ListByStudent 最近更新在前
	ListByStudent(ctx context.Context, studentID uint) ([]model.Appointment, error)
	// CountBySlot 某日各时间段的预约数（不分学生与状态）
	CountBySlot(ctx context.Context, date string) (map[string]int, error)
	// PendingDates 学生在 from 之后（含）有待处理预约的日期
	PendingDates(ctx context.Context, studentID uint, from string) ([]string, error)
	UpdateStatus(ctx context.Context, id uint, c StatusChange) (*model.Appointment, error)
	UpdateDetails(ctx context.Context, id uint, c DetailsChange) (*model.Appointment, error)
	// CancelExpired 将日期早于 today 的待处理预约批量改为已取消，返回本次改动的行
	CancelExpired(ctx context.Context, today string, now time.Time) ([]model.Appointment, error)
}

type appointmentRepo struct {
	db *gorm.DB
}

// NewAppointmentRepo 创建 AppointmentRepository 实例
func NewAppointmentRepo(db *gorm.DB) AppointmentRepository {
	return &appointmentRepo{db: db}
}

func (r *appointmentRepo) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Student").
		Preload("Student.Auth").
		Preload("Section")
}

func (r *appointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	return r.db.WithContext(ctx).Omit("Student", "Section").Create(a).Error
}

func (r *appointmentRepo) GetByID(ctx context.Context, id uint) (*model.Appointment, error) {
	var a model.Appointment
	if err := r.withRelations(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepo) GetByQRCode(ctx context.Context, code string) (*model.Appointment, error) {
	var a model.Appointment
	if err := r.withRelations(ctx).Where("qrcode = ?", code).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepo) ExistsQRCode(ctx context.Context, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Appointment{}).Where("qrcode = ?", code).Count(&n).Error
	return n > 0, err
}

func (r *appointmentRepo) List(ctx context.Context, f AppointmentFilter) ([]model.Appointment, error) {
	db := r.withRelations(ctx)
	if f.Date != "" {
		db = db.Where("appointment_date = ?", f.Date)
	}
	if f.From != "" {
		db = db.Where("appointment_date >= ?", f.From)
	}
	if f.To != "" {
		db = db.Where("appointment_date <= ?", f.To)
	}
	if f.Status != "" {
		db = db.Where("lower(status) = ?", string(f.Status))
	}
	if f.StudentID != 0 {
		db = db.Where("student_id = ?", f.StudentID)
	}

	var list []model.Appointment
	err := db.Order("appointment_date ASC, id ASC").Find(&list).Error
	return list, err
}

func (r *appointmentRepo) ListByStudent(ctx context.Context, studentID uint) ([]model.Appointment, error) {
	var list []model.Appointment
	err := r.withRelations(ctx).
		Where("student_id = ?", studentID).
		Order("updated_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *appointmentRepo) CountBySlot(ctx context.Context, date string) (map[string]int, error) {
	var rows []struct {
		AppointmentTime string
		N               int
	}
	err := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Select("appointment_time, count(*) AS n").
		Where("appointment_date = ?", date).
		Group("appointment_time").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.AppointmentTime] = row.N
	}
	return out, nil
}

func (r *appointmentRepo) PendingDates(ctx context.Context, studentID uint, from string) ([]string, error) {
	var dates []string
	err := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Distinct("appointment_date").
		Where("student_id = ? AND lower(status) = ? AND appointment_date >= ?", studentID, string(model.StatusPending), from).
		Pluck("appointment_date", &dates).Error
	return dates, err
}

func (r *appointmentRepo) UpdateStatus(ctx context.Context, id uint, c StatusChange) (*model.Appointment, error) {
	fields := map[string]interface{}{
		"status":     c.Status,
		"staff_name": c.StaffName,
		"message":    c.Message,
		"updated_at": c.UpdatedAt,
	}
	if c.AppointmentDate != "" {
		fields["appointment_date"] = c.AppointmentDate
		fields["appointment_time"] = c.AppointmentTime
	}
	return r.update(ctx, id, fields)
}

func (r *appointmentRepo) UpdateDetails(ctx context.Context, id uint, c DetailsChange) (*model.Appointment, error) {
	fields := map[string]interface{}{
		"reasons":          datatypes.JSONSlice[string](c.Reasons),
		"section_id":       c.SectionID,
		"note":             c.Note,
		"appointment_date": c.AppointmentDate,
		"appointment_time": c.AppointmentTime,
		"updated_at":       c.UpdatedAt,
	}
	return r.update(ctx, id, fields)
}

func (r *appointmentRepo) update(ctx context.Context, id uint, fields map[string]interface{}) (*model.Appointment, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *appointmentRepo) CancelExpired(ctx context.Context, today string, now time.Time) ([]model.Appointment, error) {
	var changed []model.Appointment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&model.Appointment{}).
			Where("appointment_date < ? AND lower(status) = ?", today, string(model.StatusPending)).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		// 条件重复一次，并发的清理只会有一方命中
		res := tx.Model(&model.Appointment{}).
			Where("id IN ? AND appointment_date < ? AND lower(status) = ?", ids, today, string(model.StatusPending)).
			Updates(map[string]interface{}{
				"status":     string(model.StatusCancelled),
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Where("id IN ? AND lower(status) = ?", ids, string(model.StatusCancelled)).
			Order("id ASC").
			Find(&changed).Error
	})
	return changed, err
}
