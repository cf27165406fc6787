package model

import "time"

// BaseModel 通用时间戳字段
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// All 返回全部持久化模型，供 sqlite AutoMigrate 使用
func All() []any {
	return []any{
		&AuthIdentity{},
		&User{},
		&Section{},
		&Reason{},
		&AppointmentTime{},
		&DisabledDate{},
		&Appointment{},
	}
}
