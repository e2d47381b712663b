package model

import "time"

// Contact 关注关系，user_from 关注 user_to
type Contact struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserFromID uint      `gorm:"not null;uniqueIndex:idx_contact_pair,priority:1" json:"user_from_id"`
	UserToID   uint      `gorm:"not null;uniqueIndex:idx_contact_pair,priority:2;index" json:"user_to_id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`

	UserFrom User `gorm:"foreignKey:UserFromID" json:"user_from,omitempty"`
	UserTo   User `gorm:"foreignKey:UserToID" json:"user_to,omitempty"`
}

// TableName 指定表名
func (Contact) TableName() string {
	return "contacts"
}
