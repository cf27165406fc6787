package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/leonard05717/appointment/internal/booking"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/internal/repository"
	"github.com/leonard05717/appointment/pkg/format"
)

// ── 可约性校验（预约、改约、学生修改共用） ──

var (
	ErrDateUnavailable = errors.New("Selected date is not available")
	ErrTimeUnavailable = errors.New("Selected time is fully booked")
	ErrUnknownTime     = errors.New("Selected time does not exist")
	ErrUnknownReason   = errors.New("Selected reason does not exist")
)

type availability struct {
	repo         *repository.Repository
	clock        *clock
	windowMonths int
}

func newAvailability(repo *repository.Repository, clock *clock, windowMonths int) *availability {
	if windowMonths <= 0 {
		windowMonths = booking.DefaultWindowMonths
	}
	return &availability{repo: repo, clock: clock, windowMonths: windowMonths}
}

// calendar 构造日历；studentID 为 0 时不加载学生的待处理日期，
// excludeID 指定的预约（正在修改的那条）不计入待处理日期
func (a *availability) calendar(ctx context.Context, studentID, excludeID uint) (booking.Calendar, error) {
	cal := booking.Calendar{
		Today:        a.clock.Today(),
		WindowMonths: a.windowMonths,
		Disabled:     map[string]string{},
		Pending:      map[string]bool{},
	}
	first, last := cal.Range()

	disabled, err := a.repo.DisabledDate.ListBetween(ctx, format.Date(first), format.Date(last))
	if err != nil {
		return cal, fmt.Errorf("查询停约日期失败: %w", err)
	}
	for _, d := range disabled {
		cal.Disabled[d.Date] = d.Description
	}

	if studentID == 0 {
		return cal, nil
	}
	if excludeID == 0 {
		dates, err := a.repo.Appointment.PendingDates(ctx, studentID, format.Date(first))
		if err != nil {
			return cal, fmt.Errorf("查询待处理预约失败: %w", err)
		}
		for _, d := range dates {
			cal.Pending[d] = true
		}
		return cal, nil
	}

	list, err := a.repo.Appointment.List(ctx, repository.AppointmentFilter{
		StudentID: studentID,
		From:      format.Date(first),
		Status:    model.StatusPending,
	})
	if err != nil {
		return cal, fmt.Errorf("查询待处理预约失败: %w", err)
	}
	for _, ap := range list {
		if ap.ID != excludeID {
			cal.Pending[ap.AppointmentDate] = true
		}
	}
	return cal, nil
}

// options 某日全部时间段及余量
func (a *availability) options(ctx context.Context, date string) ([]booking.SlotOption, error) {
	times, err := a.repo.AppointmentTime.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询时间段失败: %w", err)
	}
	booked, err := a.repo.Appointment.CountBySlot(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("统计时间段预约数失败: %w", err)
	}
	slots := make([]booking.Slot, 0, len(times))
	for _, t := range times {
		slots = append(slots, booking.Slot{ID: t.ID, Time: t.Time, Max: t.Max})
	}
	return booking.SlotOptions(slots, booked), nil
}

// checkDate 校验日期可选，返回规范化的 YYYY-MM-DD
func (a *availability) checkDate(cal booking.Calendar, date string, ownerRule bool) (string, error) {
	reason, err := cal.CheckString(date, ownerRule)
	if err != nil {
		return "", ErrInvalidDate
	}
	if reason != booking.ExcludedNone {
		return "", fmt.Errorf("%w (%s)", ErrDateUnavailable, reason)
	}
	day, _ := format.ParseDate(date, cal.Today.Location())
	return format.Date(day), nil
}

// checkTime 校验时间段存在且有余量，返回规范的时间段文本
func (a *availability) checkTime(ctx context.Context, date, label string) (string, error) {
	options, err := a.options(ctx, date)
	if err != nil {
		return "", err
	}
	opt, ok := booking.FindOption(options, label)
	if !ok {
		return "", ErrUnknownTime
	}
	if opt.Disabled {
		return "", ErrTimeUnavailable
	}
	return opt.Time, nil
}

// checkReasons 事由须来自事由表，返回表中的规范文本
func (a *availability) checkReasons(ctx context.Context, reasons []string) ([]string, error) {
	known, err := a.repo.Reason.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询事由失败: %w", err)
	}
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		match := ""
		for _, k := range known {
			if equalFoldTrim(k.Reason, r) {
				match = k.Reason
				break
			}
		}
		if match == "" {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReason, r)
		}
		out = append(out, match)
	}
	return out, nil
}

// checkSection 班级须存在
func (a *availability) checkSection(ctx context.Context, id uint) error {
	if _, err := a.repo.Section.GetByID(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrSectionNotFound
		}
		return err
	}
	return nil
}
