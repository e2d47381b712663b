package model

import "time"

// 动作目标类型
const (
	TargetTypeImage = "image"
	TargetTypeUser  = "user"
)

// 动作动词
const (
	VerbBookmarked = "bookmarked image"
	VerbLikes      = "likes"
	VerbFollow     = "follow"
	VerbJoined     = "has created an account"
)

// Action 用户动态，只追加不修改
type Action struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Verb       string    `gorm:"type:varchar(255);not null" json:"verb"`
	TargetType string    `gorm:"type:varchar(50);index:idx_action_target,priority:1" json:"target_type,omitempty"`
	TargetID   *uint     `gorm:"index:idx_action_target,priority:2" json:"target_id,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Action) TableName() string {
	return "actions"
}
