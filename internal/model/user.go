package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthIdentity 登录凭证表，对应 auth_identities
type AuthIdentity struct {
	ID           string `gorm:"type:varchar(36);primaryKey"       json:"id"`
	Email        string `gorm:"type:varchar(255);not null;unique" json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"        json:"-"`
	BaseModel
}

// TableName 指定表名
func (AuthIdentity) TableName() string { return "auth_identities" }

// BeforeCreate 未指定 ID 时生成 UUID
func (a *AuthIdentity) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// User 用户资料表，对应 users，email 来自 AuthIdentity
type User struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"                 json:"id"`
	AuthID    *string `gorm:"type:varchar(36);uniqueIndex"             json:"auth_id"`
	Firstname string  `gorm:"type:varchar(100);not null"               json:"firstname"`
	Lastname  string  `gorm:"type:varchar(100);not null"               json:"lastname"`
	Gender    string  `gorm:"type:varchar(20);not null;default:''"     json:"gender"`
	Address   string  `gorm:"type:varchar(255);not null;default:''"    json:"address"`
	Birthday  string  `gorm:"type:varchar(10);not null;default:''"     json:"birthday"`
	StudentID string  `gorm:"type:varchar(20);not null;default:''"     json:"student_id"`
	Role      Role    `gorm:"type:varchar(20);not null;default:'student'" json:"role"`
	Status    bool    `gorm:"not null;default:true"                    json:"status"`
	BaseModel

	// 关联
	Auth *AuthIdentity `gorm:"foreignKey:AuthID;references:ID" json:"-"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// Email 已加载凭证时返回邮箱
func (u *User) Email() string {
	if u.Auth == nil {
		return ""
	}
	return u.Auth.Email
}
