package model

import (
	"fmt"
	"time"
)

// Image 图片书签
type Image struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	Slug        string    `gorm:"type:varchar(200);not null;index" json:"slug"`
	URL         string    `gorm:"type:varchar(2000);not null" json:"url"`
	File        string    `gorm:"type:varchar(500)" json:"file"`
	Description string    `gorm:"type:text" json:"description"`
	TotalLikes  int64     `gorm:"not null;default:0;index" json:"total_likes"`
	TotalViews  int64     `gorm:"not null;default:0" json:"total_views"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Image) TableName() string {
	return "images"
}

// DetailPath 图片详情页路径
func (i *Image) DetailPath() string {
	return fmt.Sprintf("/api/images/%d/%s", i.ID, i.Slug)
}

// ImageLike 图片点赞关系，(image_id, user_id) 唯一
type ImageLike struct {
	ImageID   uint      `gorm:"primaryKey;autoIncrement:false" json:"image_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (ImageLike) TableName() string {
	return "image_likes"
}
