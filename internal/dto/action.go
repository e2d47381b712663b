package dto

import "time"

// ActionTarget 动态目标
type ActionTarget struct {
	Type       string `json:"type"`
	ID         uint   `json:"id"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
	DetailPath string `json:"detail_path,omitempty"`
	Username   string `json:"username,omitempty"`
}

// ActionItem 动态流条目
type ActionItem struct {
	ID        uint          `json:"id"`
	User      UserBriefInfo `json:"user"`
	Verb      string        `json:"verb"`
	Target    *ActionTarget `json:"target,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// ActionListResponse 动态流
type ActionListResponse struct {
	Total int64        `json:"total"`
	List  []ActionItem `json:"list"`
}

// PageQuery 通用分页参数
type PageQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}
