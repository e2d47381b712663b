package model

import (
	"time"
)

// 用户状态
const (
	UserStatusDisabled = 0
	UserStatusActive   = 1
)

// User 用户模型
type User struct {
	Base
	Username    string     `gorm:"type:varchar(50);not null;uniqueIndex" json:"username"`
	Password    string     `gorm:"type:varchar(100);not null" json:"-"`
	Email       string     `gorm:"type:varchar(100);index" json:"email"`
	FirstName   string     `gorm:"type:varchar(50)" json:"first_name"`
	LastName    string     `gorm:"type:varchar(50)" json:"last_name"`
	Role        string     `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Status      int        `gorm:"not null;default:1" json:"status"` // 0=禁用 1=正常
	LastLoginAt *time.Time `json:"last_login_at"`

	Profile *Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Profile 用户资料，与用户一对一
type Profile struct {
	Base
	UserID      uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Avatar      string     `gorm:"type:varchar(255)" json:"avatar"`
	Bio         string     `gorm:"type:text" json:"bio"`
}

// TableName 指定表名
func (Profile) TableName() string {
	return "profiles"
}
