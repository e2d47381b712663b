package dto

import "time"

// ImageCreateRequest 收藏图片请求，也用于书签工具的预填表单
type ImageCreateRequest struct {
	Title       string `json:"title" form:"title" validate:"required,max=200"`
	URL         string `json:"url" form:"url" validate:"required,http_url,max=2000,imageext"`
	Description string `json:"description" form:"description" validate:"max=5000"`
}

// LikeRequest 点赞/取消点赞
type LikeRequest struct {
	ID     string `json:"id" form:"id"`
	Action string `json:"action" form:"action"`
}

// ImageListQuery 图片列表查询参数
type ImageListQuery struct {
	Page       string `form:"page"`
	ImagesOnly string `form:"images_only"` // 非空即为增量加载
}

// ImageListItem 图片列表项
type ImageListItem struct {
	ID         uint          `json:"id"`
	Title      string        `json:"title"`
	Slug       string        `json:"slug"`
	URL        string        `json:"url"`
	File       string        `json:"file,omitempty"`
	TotalLikes int64         `json:"total_likes"`
	TotalViews int64         `json:"total_views"`
	User       UserBriefInfo `json:"user"`
	DetailPath string        `json:"detail_path"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ImagePageResponse 图片分页结果
type ImagePageResponse struct {
	Page     int             `json:"page"`
	NumPages int             `json:"num_pages"`
	Total    int64           `json:"total"`
	HasNext  bool            `json:"has_next"`
	List     []ImageListItem `json:"list"`
}

// ImageSnapshot 图片不可变字段，可缓存
type ImageSnapshot struct {
	ID          uint          `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	URL         string        `json:"url"`
	File        string        `json:"file,omitempty"`
	Description string        `json:"description"`
	User        UserBriefInfo `json:"user"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ImageDetailResponse 图片详情
type ImageDetailResponse struct {
	ImageSnapshot
	DescriptionHTML string          `json:"description_html"`
	TotalViews      int64           `json:"total_views"`
	TotalLikes      int64           `json:"total_likes"`
	IsLiked         bool            `json:"is_liked"`
	UsersLike       []UserBriefInfo `json:"users_like"`
}

// ImageRankingItem 浏览排行
type ImageRankingItem struct {
	ImageListItem
	Views int64 `json:"views"`
}

// ImageSearchQuery 搜索参数
type ImageSearchQuery struct {
	Q        string `form:"q" binding:"required,max=100"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ImageSearchResponse 搜索结果
type ImageSearchResponse struct {
	Total int64           `json:"total"`
	List  []ImageListItem `json:"list"`
}

// ScrapeQuery 抓取页面图片
type ScrapeQuery struct {
	URL string `form:"url" binding:"required,url"`
}
