package model

import (
	"strings"

	"gorm.io/datatypes"
)

// Status 预约状态，比较时大小写无关
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusReturn    Status = "return"
)

// StoredPending 新预约写入时的状态文本
const StoredPending = "Pending"

// Statuses 全部状态，顺序与报表一致
var Statuses = []Status{StatusPending, StatusCompleted, StatusCancelled, StatusReturn}

// ParseStatus 大小写无关地解析状态
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusCompleted, StatusCancelled, StatusReturn:
		return st, true
	}
	return "", false
}

// Is 大小写无关比较
func (s Status) Is(other Status) bool {
	return strings.EqualFold(string(s), string(other))
}

// Terminal 已完成或已取消，不再提供状态操作
func (s Status) Terminal() bool {
	return s.Is(StatusCompleted) || s.Is(StatusCancelled)
}

// Appointment 预约表，对应 appointments
type Appointment struct {
	ID              uint                        `gorm:"primaryKey;autoIncrement"                 json:"id"`
	UserID          uint                        `gorm:"column:student_id;not null;index"         json:"student_id"`
	SectionID       *uint                       `gorm:"index"                                    json:"section_id"`
	Reasons         datatypes.JSONSlice[string] `gorm:"not null"                                 json:"reasons"`
	Note            string                      `gorm:"type:text;not null;default:''"            json:"note"`
	Status          Status                      `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	QRCode          string                      `gorm:"column:qrcode;type:varchar(16);not null;unique" json:"qrcode"`
	AppointmentDate string                      `gorm:"type:varchar(10);not null;index:idx_appointments_slot" json:"appointment_date"`
	AppointmentTime string                      `gorm:"type:varchar(32);not null;index:idx_appointments_slot" json:"appointment_time"`
	StaffName       string                      `gorm:"type:varchar(255);not null;default:''"    json:"staff_name"`
	Message         string                      `gorm:"type:text;not null;default:''"            json:"message"`
	BaseModel

	// 关联
	Student *User    `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"  json:"student,omitempty"`
	Section *Section `gorm:"foreignKey:SectionID;constraint:OnDelete:SET NULL" json:"section,omitempty"`
}

// TableName 指定表名
func (Appointment) TableName() string { return "appointments" }

// IsPending 当前是否待处理
func (a *Appointment) IsPending() bool {
	return a.Status.Is(StatusPending)
}
