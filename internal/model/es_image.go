package model

import (
	"fmt"
	"time"
)

// ESImage Elasticsearch图片文档模型
type ESImage struct {
	ID          string    `json:"id"`       // ES文档ID，格式为"image_{db_id}"
	ImageID     uint      `json:"image_id"` // 数据库中的图片ID
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Slug        string    `json:"slug"`
	UserID      uint      `json:"user_id"`
	Username    string    `json:"username"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewESImage 从数据库模型构建ES文档
func NewESImage(img *Image) *ESImage {
	return &ESImage{
		ID:          ESImageDocID(img.ID),
		ImageID:     img.ID,
		Title:       img.Title,
		Description: img.Description,
		URL:         img.URL,
		Slug:        img.Slug,
		UserID:      img.UserID,
		Username:    img.User.Username,
		CreatedAt:   img.CreatedAt,
	}
}

// ESImageDocID 图片文档ID
func ESImageDocID(imageID uint) string {
	return fmt.Sprintf("image_%d", imageID)
}

// ESMapping 返回ES索引映射
func (ESImage) ESMapping() string {
	return `{
		"settings": {
			"number_of_shards": 1,
			"number_of_replicas": 1,
			"analysis": {
				"analyzer": {
					"text_analyzer": {
						"type": "custom",
						"tokenizer": "standard",
						"char_filter": ["html_strip"],
						"filter": ["lowercase", "asciifolding"]
					}
				}
			}
		},
		"mappings": {
			"properties": {
				"id": { "type": "keyword" },
				"image_id": { "type": "long" },
				"title": {
					"type": "text",
					"analyzer": "text_analyzer",
					"fields": { "keyword": { "type": "keyword" } }
				},
				"description": { "type": "text", "analyzer": "text_analyzer" },
				"url": { "type": "keyword", "index": false },
				"slug": { "type": "keyword" },
				"user_id": { "type": "long" },
				"username": { "type": "keyword" },
				"created_at": { "type": "date" }
			}
		}
	}`
}
