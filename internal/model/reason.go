package model

// Reason 预约事由表，对应 reasons
type Reason struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"   json:"id"`
	Reason string `gorm:"type:varchar(255);not null" json:"reason"`
	BaseModel
}

// TableName 指定表名
func (Reason) TableName() string { return "reasons" }
