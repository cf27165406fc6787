package dto

// ── 班级 ──

// SectionRequest 创建/修改班级
type SectionRequest struct {
	Course    string `json:"course"     binding:"required,max=50"`
	YearLevel string `json:"year_level" binding:"required,max=20"`
	Section   string `json:"section"    binding:"required,max=20"`
}

// SectionResponse 班级
type SectionResponse struct {
	ID        uint   `json:"id"`
	Course    string `json:"course"`
	YearLevel string `json:"year_level"`
	Section   string `json:"section"`
	Code      string `json:"code"`
}

// ── 事由 ──

// ReasonRequest 创建/修改事由
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// ReasonResponse 事由
type ReasonResponse struct {
	ID     uint   `json:"id"`
	Reason string `json:"reason"`
}

// ── 时间段 ──

// CreateAppointmentTimeRequest 新增时间段
type CreateAppointmentTimeRequest struct {
	Time string `json:"time" binding:"required,max=32"`
	Max  int    `json:"max"  binding:"required,min=1"`
}

// UpdateAppointmentTimeRequest 修改时间段容量
type UpdateAppointmentTimeRequest struct {
	Max int `json:"max" binding:"required,min=1"`
}

// AppointmentTimeResponse 时间段
type AppointmentTimeResponse struct {
	ID   uint   `json:"id"`
	Time string `json:"time"`
	Max  int    `json:"max"`
}

// ── 停约日期 ──

// DisabledDateRequest 创建/修改停约日期
type DisabledDateRequest struct {
	Date        string `json:"date"        binding:"required,datetime=2006-01-02"`
	Description string `json:"description" binding:"omitempty,max=255"`
}

// DisabledDateResponse 停约日期
type DisabledDateResponse struct {
	ID          uint   `json:"id"`
	Date        string `json:"date"`
	LongDate    string `json:"long_date"`
	Description string `json:"description"`
}

// ImportDisabledDatesResponse 日历导入结果
type ImportDisabledDatesResponse struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Dates    []string `json:"dates"`
}
