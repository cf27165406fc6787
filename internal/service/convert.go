package service

import (
	"strings"
	"time"

	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/pkg/format"
	"github.com/leonard05717/appointment/pkg/table"
)

// ── model → DTO ──

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func toUserResponse(u *model.User) dto.UserResponse {
	authID := ""
	if u.AuthID != nil {
		authID = *u.AuthID
	}
	return dto.UserResponse{
		ID:        u.ID,
		AuthID:    authID,
		Email:     u.Email(),
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Name:      format.FullName(u.Firstname, u.Lastname),
		Gender:    u.Gender,
		Address:   u.Address,
		Birthday:  u.Birthday,
		StudentID: u.StudentID,
		Role:      string(u.Role),
		Status:    u.Status,
		CreatedAt: formatTime(u.CreatedAt),
	}
}

func toSectionResponse(s *model.Section) dto.SectionResponse {
	return dto.SectionResponse{
		ID:        s.ID,
		Course:    s.Course,
		YearLevel: s.YearLevel,
		Section:   s.Section,
		Code:      s.Code(),
	}
}

func toAppointmentResponse(a *model.Appointment) dto.AppointmentResponse {
	resp := dto.AppointmentResponse{
		ID:              a.ID,
		Reasons:         []string(a.Reasons),
		Note:            a.Note,
		Status:          string(a.Status),
		QRCode:          a.QRCode,
		AppointmentDate: a.AppointmentDate,
		AppointmentTime: a.AppointmentTime,
		StaffName:       a.StaffName,
		Message:         a.Message,
		CreatedAt:       formatTime(a.CreatedAt),
		UpdatedAt:       formatTime(a.UpdatedAt),
	}
	if resp.Reasons == nil {
		resp.Reasons = []string{}
	}
	if a.Student != nil {
		resp.Student = &dto.StudentBrief{
			ID:        a.Student.ID,
			StudentID: a.Student.StudentID,
			Name:      format.FullName(a.Student.Firstname, a.Student.Lastname),
			Email:     a.Student.Email(),
		}
	}
	if a.Section != nil {
		s := toSectionResponse(a.Section)
		resp.Section = &s
	}
	return resp
}

// ── model → 表格行 ──

// appointmentColumns 员工预约列表的列；学号列只做前缀匹配
var appointmentColumns = []table.Column{
	{Field: "qrcode", Label: "QR Code", Sortable: true},
	{Field: "student_id", Label: "Student ID", SearchExact: true, Sortable: true},
	{Field: "name", Label: "Name", Sortable: true},
	{Field: "email", Label: "Email", Sortable: true},
	{Field: "section", Label: "Section", Sortable: true},
	{Field: "reasons", Label: "Reasons", Format: func(r table.Row) string {
		list, _ := r["reasons"].([]string)
		return strings.Join(list, ", ")
	}},
	{Field: "appointment_date", Label: "Date", Format: func(r table.Row) string {
		s, _ := r["appointment_date"].(string)
		return format.LongDate(s)
	}, Sortable: true},
	{Field: "appointment_time", Label: "Time", Sortable: true},
	{Field: "status", Label: "Status", Sortable: true},
	{Field: "staff_name", Label: "Staff", Sortable: true},
	{Field: "updated_at", Label: "Updated", NoSearch: true, Sortable: true},
}

func appointmentRow(a *model.Appointment) table.Row {
	row := table.Row{
		"id":               a.ID,
		"qrcode":           a.QRCode,
		"reasons":          []string(a.Reasons),
		"note":             a.Note,
		"status":           strings.ToLower(string(a.Status)),
		"appointment_date": a.AppointmentDate,
		"appointment_time": a.AppointmentTime,
		"staff_name":       a.StaffName,
		"message":          a.Message,
		"updated_at":       a.UpdatedAt,
		"student_id":       "",
		"name":             "",
		"email":            "",
		"section":          "",
	}
	if a.Student != nil {
		row["student_id"] = a.Student.StudentID
		row["name"] = format.FullName(a.Student.Firstname, a.Student.Lastname)
		row["email"] = a.Student.Email()
	}
	if a.Section != nil {
		row["section"] = a.Section.Code()
	}
	return row
}

// userColumns 账号列表的列；学号列只做前缀匹配
var userColumns = []table.Column{
	{Field: "student_id", Label: "Student ID", SearchExact: true, Sortable: true},
	{Field: "name", Label: "Name", Sortable: true},
	{Field: "email", Label: "Email", Sortable: true},
	{Field: "gender", Label: "Gender", Sortable: true},
	{Field: "role", Label: "Role", Sortable: true},
	{Field: "status", Label: "Status", Format: func(r table.Row) string {
		if active, _ := r["status"].(bool); active {
			return "Active"
		}
		return "Inactive"
	}, Sortable: true},
	{Field: "created_at", Label: "Created", NoSearch: true, Sortable: true},
}

func userRow(u *model.User) table.Row {
	return table.Row{
		"id":         u.ID,
		"student_id": u.StudentID,
		"name":       format.FullName(u.Firstname, u.Lastname),
		"firstname":  u.Firstname,
		"lastname":   u.Lastname,
		"email":      u.Email(),
		"gender":     u.Gender,
		"address":    u.Address,
		"birthday":   u.Birthday,
		"role":       string(u.Role),
		"status":     u.Status,
		"created_at": u.CreatedAt,
	}
}

// tableView 套用查询参数后计算当前页
func tableView(columns []table.Column, rows []table.Row, q dto.TableQuery, pageSize int) table.View {
	t := table.New(columns, table.Options{PageSize: q.GetPageSize(pageSize), Numbered: true})
	t.SetRows(rows)
	applyQuery(t, q.Terms(), q.Sort, q.Desc)
	t.SetPage(q.GetPage())
	return t.View()
}

func applyQuery(t *table.Table, terms []string, sort string, desc bool) {
	if len(terms) > 0 {
		t.SetSearch(terms...)
	}
	if sort != "" {
		t.SetSort(sort, desc)
	}
}
