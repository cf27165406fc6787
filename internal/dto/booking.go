package dto

import "github.com/leonard05717/appointment/internal/booking"

// ── 预约向导 ──

// AvailabilityRequest 查询可约日期与时间段
type AvailabilityRequest struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// AvailabilityResponse 可约范围、不可选日期与所选日期的时间段余量
type AvailabilityResponse struct {
	MinDate  string                `json:"min_date"`
	MaxDate  string                `json:"max_date"`
	Excluded []booking.ExcludedDay `json:"excluded"`
	Date     string                `json:"date,omitempty"`
	Times    []booking.SlotOption  `json:"times"`
}

// DraftUpdateRequest 修改向导工作数据，未提供的字段不变
type DraftUpdateRequest struct {
	Reasons   *[]string `json:"reasons"`
	SectionID *uint     `json:"section_id"`
	Note      *string   `json:"note" binding:"omitempty,max=1000"`
	Date      *string   `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Time      *string   `json:"time" binding:"omitempty,max=32"`
}

// DraftResponse 向导当前状态
type DraftResponse struct {
	Step     int            `json:"step"`
	StepName string         `json:"step_name"`
	CanBack  bool           `json:"can_back"`
	Draft    *booking.Draft `json:"draft"`
}

// BookRequest 一次性提交预约
type BookRequest struct {
	Reasons   []string `json:"reasons"    binding:"required,min=1"`
	SectionID uint     `json:"section_id" binding:"required"`
	Note      string   `json:"note"       binding:"omitempty,max=1000"`
	Date      string   `json:"date"       binding:"required,datetime=2006-01-02"`
	Time      string   `json:"time"       binding:"required,max=32"`
}

// BookingResult 提交结果；PNG 由 Handler 作为附件返回
type BookingResult struct {
	Appointment AppointmentResponse `json:"appointment"`
	FileName    string              `json:"file_name"`
	PNG         []byte              `json:"-"`
}
