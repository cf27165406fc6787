package model

// DisabledDate 停约日期，对应 disabled_dates
type DisabledDate struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"               json:"id"`
	Date        string `gorm:"type:varchar(10);not null;unique"       json:"date"` // YYYY-MM-DD
	Description string `gorm:"type:varchar(255);not null;default:''"  json:"description"`
	BaseModel
}

// TableName 指定表名
func (DisabledDate) TableName() string { return "disabled_dates" }
