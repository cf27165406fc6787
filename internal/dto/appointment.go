package dto

// ── 预约模块 DTO ──

// AppointmentListRequest 员工预约列表
type AppointmentListRequest struct {
	Date   string `form:"date"   binding:"omitempty,datetime=2006-01-02"` // 默认今天
	Status string `form:"status" binding:"omitempty,oneof=all pending completed cancelled return Pending"`
	TableQuery
}

// CursorRequest 扫码台上下键选择
type CursorRequest struct {
	Key    string   `json:"key"    binding:"required"` // ArrowUp | ArrowDown
	Date   string   `json:"date"   binding:"omitempty,datetime=2006-01-02"`
	Status string   `json:"status" binding:"omitempty"`
	Search []string `json:"search"`
	Sort   string   `json:"sort"`
	Desc   bool     `json:"desc"`
}

// CursorResponse 当前选中行
type CursorResponse struct {
	Index int            `json:"index"`
	Row   map[string]any `json:"row"`
}

// StatusChangeRequest 员工修改预约状态
type StatusChangeRequest struct {
	Status     string `json:"status"      binding:"required"`
	Message    string `json:"message"     binding:"omitempty,max=1000"`
	ReturnDate string `json:"return_date" binding:"omitempty,datetime=2006-01-02"` // status=return 时必填
	ReturnTime string `json:"return_time" binding:"omitempty,max=32"`
}

// UpdateAppointmentRequest 学生修改待处理预约，未提供的字段不变
type UpdateAppointmentRequest struct {
	Reasons   *[]string `json:"reasons"`
	SectionID *uint     `json:"section_id"`
	Note      *string   `json:"note" binding:"omitempty,max=1000"`
	Date      *string   `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Time      *string   `json:"time" binding:"omitempty,max=32"`
}

// ── 预约模块响应 ──

// StudentBrief 预约中嵌入的学生信息
type StudentBrief struct {
	ID        uint   `json:"id"`
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// AppointmentResponse 预约
type AppointmentResponse struct {
	ID              uint             `json:"id"`
	Student         *StudentBrief    `json:"student,omitempty"`
	Section         *SectionResponse `json:"section,omitempty"`
	Reasons         []string         `json:"reasons"`
	Note            string           `json:"note"`
	Status          string           `json:"status"`
	QRCode          string           `json:"qrcode"`
	AppointmentDate string           `json:"appointment_date"`
	AppointmentTime string           `json:"appointment_time"`
	StaffName       string           `json:"staff_name"`
	Message         string           `json:"message"`
	CreatedAt       string           `json:"created_at"`
	UpdatedAt       string           `json:"updated_at"`
}

// QueueGroup 排队屏上的一个时间段
type QueueGroup struct {
	Time         string                `json:"time"`
	Count        int                   `json:"count"`
	Appointments []AppointmentResponse `json:"appointments"`
}

// QueueResponse 今日待处理预约，按时间段分组
type QueueResponse struct {
	Date   string       `json:"date"`
	Total  int          `json:"total"`
	Groups []QueueGroup `json:"groups"`
}
