package dto

// ReportRequest 报表查询，日期区间含两端
type ReportRequest struct {
	From   string `form:"from"   binding:"required,datetime=2006-01-02"`
	To     string `form:"to"     binding:"required,datetime=2006-01-02"`
	Status string `form:"status" binding:"omitempty"`
}

// ReportResponse 报表
type ReportResponse struct {
	From         string                `json:"from"`
	To           string                `json:"to"`
	Total        int                   `json:"total"`
	Counts       map[string]int        `json:"counts"` // 按小写状态
	Appointments []AppointmentResponse `json:"appointments"`
}
