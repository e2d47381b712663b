package dto

import "time"

// RegisterRequest 用户注册请求
type RegisterRequest struct {
	Username  string `json:"username" form:"username" binding:"required,min=3,max=50"`
	Password  string `json:"password" form:"password" binding:"required,min=6,max=32"`
	Email     string `json:"email" form:"email" binding:"omitempty,email"`
	FirstName string `json:"first_name" form:"first_name" binding:"omitempty,max=50"`
}

// LoginRequest 用户登录请求
type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"` // 用户名或邮箱
	Password string `json:"password" form:"password" binding:"required"`
	Remember bool   `json:"remember" form:"remember"`
}

// RefreshTokenRequest 刷新令牌请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest 登出请求
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ProfileUpdateRequest 资料编辑请求
type ProfileUpdateRequest struct {
	FirstName   *string `json:"first_name" binding:"omitempty,max=50"`
	LastName    *string `json:"last_name" binding:"omitempty,max=50"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Bio         *string `json:"bio" binding:"omitempty,max=500"`
	Avatar      *string `json:"avatar" binding:"omitempty,url"`
	DateOfBirth *string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
}

// UserBriefInfo 用户简要信息
type UserBriefInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// ProfileInfo 用户资料
type ProfileInfo struct {
	Avatar      string     `json:"avatar"`
	Bio         string     `json:"bio"`
	DateOfBirth *time.Time `json:"date_of_birth"`
}

// UserResponse 用户信息响应
type UserResponse struct {
	ID          uint         `json:"id"`
	Username    string       `json:"username"`
	Email       string       `json:"email"`
	FirstName   string       `json:"first_name"`
	LastName    string       `json:"last_name"`
	Role        string       `json:"role"`
	Status      int          `json:"status"`
	Profile     *ProfileInfo `json:"profile"`
	LastLoginAt *time.Time   `json:"last_login_at"`
	CreatedAt   time.Time    `json:"created_at"`
}

// AuthResponse 注册登录响应
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int           `json:"expires_in"`
	User         *UserResponse `json:"user"`
}

// UserDetailResponse 用户主页
type UserDetailResponse struct {
	UserBriefInfo
	Bio            string          `json:"bio"`
	FollowersCount int64           `json:"followers_count"`
	FollowingCount int64           `json:"following_count"`
	IsFollowing    bool            `json:"is_following"`
	Images         []ImageListItem `json:"images"`
}

// UserListResponse 用户列表
type UserListResponse struct {
	Total int64           `json:"total"`
	List  []UserBriefInfo `json:"list"`
}

// FollowRequest 关注/取消关注
type FollowRequest struct {
	ID     string `json:"id" form:"id"`
	Action string `json:"action" form:"action"`
}

// FollowListResponse 关注/粉丝列表
type FollowListResponse struct {
	Total int64           `json:"total"`
	List  []UserBriefInfo `json:"list"`
}
