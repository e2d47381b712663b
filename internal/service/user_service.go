package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nsxzhou1114/bookmarks-api/internal/dto"
	"github.com/nsxzhou1114/bookmarks-api/internal/model"
	"github.com/nsxzhou1114/bookmarks-api/pkg/auth"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultUserListSize = 20
	maxUserListSize     = 100
	userDetailImages    = 24
)

// UserService 账号服务
type UserService struct {
	db      *gorm.DB
	tokens  *auth.Manager
	actions *ActionService
	follows *FollowService
	logger  *zap.SugaredLogger
}

// NewUserService 创建账号服务
func NewUserService(db *gorm.DB, tokens *auth.Manager, actions *ActionService, follows *FollowService, logger *zap.SugaredLogger) *UserService {
	return &UserService{db: db, tokens: tokens, actions: actions, follows: follows, logger: logger}
}

// Register 用户注册，用户与资料在同一事务中创建
func (s *UserService) Register(ctx context.Context, req *dto.RegisterRequest) (*model.User, *auth.TokenPair, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&model.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, nil, err
	}
	if count > 0 {
		return nil, nil, ErrUserExists
	}
	if req.Email != "" {
		if err := db.Model(&model.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
			return nil, nil, err
		}
		if count > 0 {
			return nil, nil, ErrEmailExists
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := &model.User{
		Username:  req.Username,
		Password:  string(hashedPassword),
		Email:     req.Email,
		FirstName: req.FirstName,
		Role:      "user",
		Status:    model.UserStatusActive,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		user.Profile = &model.Profile{UserID: user.ID}
		return tx.Create(user.Profile).Error
	})
	if err != nil {
		return nil, nil, fmt.Errorf("创建用户失败: %w", err)
	}

	s.actions.recordQuietly(ctx, user.ID, model.VerbJoined, "", nil)

	pair, err := s.tokens.GenerateTokenPair(user.ID, user.Role, false)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Infow("用户注册", "user_id", user.ID, "username", user.Username)
	return user, pair, nil
}

// Login 用户名或邮箱登录
func (s *UserService) Login(ctx context.Context, req *dto.LoginRequest) (*model.User, *auth.TokenPair, error) {
	var user model.User
	query := s.db.WithContext(ctx).Preload("Profile")
	if strings.Contains(req.Username, "@") {
		query = query.Where("email = ?", req.Username)
	} else {
		query = query.Where("username = ?", req.Username)
	}
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if user.Status != model.UserStatusActive {
		return nil, nil, ErrUserDisabled
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		s.logger.Warnf("更新用户登录时间失败: %v", err)
	}
	user.LastLoginAt = &now

	pair, err := s.tokens.GenerateTokenPair(user.ID, user.Role, req.Remember)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

// Refresh 刷新令牌
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	return s.tokens.Refresh(ctx, refreshToken)
}

// Logout 将访问令牌和刷新令牌加入黑名单
func (s *UserService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken != "" {
		if err := s.tokens.Revoke(ctx, accessToken); err != nil {
			s.logger.Warnf("撤销访问令牌失败: %v", err)
		}
	}
	if refreshToken != "" {
		if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
			return err
		}
	}
	return nil
}

// GetByID 根据ID获取用户（含资料）
func (s *UserService) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername 根据用户名获取用户（含资料）
func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Preload("Profile").Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// EditProfile 编辑本人资料
func (s *UserService) EditProfile(ctx context.Context, userID uint, req *dto.ProfileUpdateRequest) (*model.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	userUpdates := map[string]interface{}{}
	if req.FirstName != nil {
		userUpdates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		userUpdates["last_name"] = *req.LastName
	}
	if req.Email != nil && *req.Email != user.Email {
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.User{}).
			Where("email = ? AND id != ?", *req.Email, userID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrEmailExists
		}
		userUpdates["email"] = *req.Email
	}

	profileUpdates := map[string]interface{}{}
	if req.Bio != nil {
		profileUpdates["bio"] = *req.Bio
	}
	if req.Avatar != nil {
		profileUpdates["avatar"] = *req.Avatar
	}
	if req.DateOfBirth != nil {
		if *req.DateOfBirth == "" {
			profileUpdates["date_of_birth"] = nil
		} else {
			dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
			if err != nil {
				return nil, fieldError("date_of_birth", "日期格式必须为YYYY-MM-DD")
			}
			profileUpdates["date_of_birth"] = dob
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(userUpdates) > 0 {
			if err := tx.Model(&model.User{}).Where("id = ?", userID).Updates(userUpdates).Error; err != nil {
				return err
			}
		}
		if len(profileUpdates) > 0 {
			// 早期账号可能没有资料记录
			profile := model.Profile{UserID: userID}
			if err := tx.Where("user_id = ?", userID).FirstOrCreate(&profile).Error; err != nil {
				return err
			}
			if err := tx.Model(&profile).Updates(profileUpdates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, userID)
}

// ListActive 正常状态的用户，按注册时间倒序
func (s *UserService) ListActive(ctx context.Context, page, size int) (*dto.UserListResponse, error) {
	page, size = normalizePage(page, size, defaultUserListSize, maxUserListSize)
	query := s.db.WithContext(ctx).Model(&model.User{}).Where("status = ?", model.UserStatusActive).Session(&gorm.Session{})

	resp := &dto.UserListResponse{List: []dto.UserBriefInfo{}}
	if err := query.Count(&resp.Total).Error; err != nil {
		return nil, err
	}
	var users []model.User
	if err := query.Preload("Profile").Order("created_at DESC, id DESC").
		Offset((page - 1) * size).Limit(size).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		resp.List = append(resp.List, briefUser(&users[i]))
	}
	return resp, nil
}

// Detail 用户主页：资料、关注统计、是否已关注及其收藏的图片
func (s *UserService) Detail(ctx context.Context, username string, viewerID *uint) (*dto.UserDetailResponse, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.Status != model.UserStatusActive {
		return nil, ErrUserNotFound
	}

	resp := &dto.UserDetailResponse{UserBriefInfo: briefUser(user), Images: []dto.ImageListItem{}}
	if user.Profile != nil {
		resp.Bio = user.Profile.Bio
	}
	if resp.FollowersCount, resp.FollowingCount, err = s.follows.Counts(ctx, user.ID); err != nil {
		return nil, err
	}
	if viewerID != nil && *viewerID != user.ID {
		if resp.IsFollowing, err = s.follows.IsFollowing(ctx, *viewerID, user.ID); err != nil {
			return nil, err
		}
	}

	var images []model.Image
	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).
		Order("created_at DESC, id DESC").Limit(userDetailImages).
		Find(&images).Error; err != nil {
		return nil, err
	}
	for i := range images {
		images[i].User = *user
		resp.Images = append(resp.Images, toListItem(&images[i]))
	}
	return resp, nil
}

// UserResponse 生成用户响应DTO
func UserResponse(user *model.User) *dto.UserResponse {
	resp := &dto.UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Role:        user.Role,
		Status:      user.Status,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
	if user.Profile != nil {
		resp.Profile = &dto.ProfileInfo{
			Avatar:      user.Profile.Avatar,
			Bio:         user.Profile.Bio,
			DateOfBirth: user.Profile.DateOfBirth,
		}
	}
	return resp
}

// AuthResponse 注册/登录响应
func AuthResponse(user *model.User, pair *auth.TokenPair) *dto.AuthResponse {
	return &dto.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		User:         UserResponse(user),
	}
}
