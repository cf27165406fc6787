package model

import "github.com/leonard05717/appointment/pkg/format"

// Section 班级表，对应 sections
type Section struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	Course    string `gorm:"type:varchar(50);not null" json:"course"`
	YearLevel string `gorm:"type:varchar(20);not null" json:"year_level"`
	Section   string `gorm:"type:varchar(20);not null" json:"section"`
	BaseModel
}

// TableName 指定表名
func (Section) TableName() string { return "sections" }

// Code 展示代码，例如 BSIT1A
func (s *Section) Code() string {
	return format.SectionCode(s.Course, s.YearLevel, s.Section)
}
