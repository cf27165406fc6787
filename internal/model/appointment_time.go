package model

// AppointmentTime 预约时间段，对应 appointment_times
type AppointmentTime struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"         json:"id"`
	Time string `gorm:"type:varchar(32);not null;unique" json:"time"`
	Max  int    `gorm:"not null;default:10"              json:"max"`
}

// TableName 指定表名
func (AppointmentTime) TableName() string { return "appointment_times" }
