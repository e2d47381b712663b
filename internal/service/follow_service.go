package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nsxzhou1114/bookmarks-api/internal/dto"
	"github.com/nsxzhou1114/bookmarks-api/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 关注接口支持的操作
const (
	FollowActionFollow   = "follow"
	FollowActionUnfollow = "unfollow"
)

const (
	defaultFollowListSize = 20
	maxFollowListSize     = 100
)

// FollowService 关注关系服务
type FollowService struct {
	db      *gorm.DB
	actions *ActionService
	logger  *zap.SugaredLogger
}

// NewFollowService 创建关注服务
func NewFollowService(db *gorm.DB, actions *ActionService, logger *zap.SugaredLogger) *FollowService {
	return &FollowService{db: db, actions: actions, logger: logger}
}

func (s *FollowService) ensureUser(ctx context.Context, id uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Apply 按 action 执行关注或取消关注
func (s *FollowService) Apply(ctx context.Context, fromID, toID uint, action string) error {
	switch action {
	case FollowActionFollow:
		_, err := s.Follow(ctx, fromID, toID)
		return err
	case FollowActionUnfollow:
		return s.Unfollow(ctx, fromID, toID)
	default:
		return ErrInvalidAction
	}
}

// Follow 关注用户，已关注时返回 created=false 且不报错
func (s *FollowService) Follow(ctx context.Context, fromID, toID uint) (bool, error) {
	if fromID == toID {
		return false, ErrSelfFollow
	}
	if err := s.ensureUser(ctx, toID); err != nil {
		return false, err
	}

	contact := &model.Contact{UserFromID: fromID, UserToID: toID}
	// 依赖 (user_from_id, user_to_id) 唯一索引，重复关注不会产生新行
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(contact)
	if result.Error != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	// 60秒内重复的同一动态会被 Record 合并，取消后立即重新关注不会产生第二条
	s.actions.recordQuietly(ctx, fromID, model.VerbFollow, model.TargetTypeUser, &toID)
	s.logger.Infow("用户关注", "from", fromID, "to", toID)
	return true, nil
}

// Unfollow 取消关注，关系不存在时为空操作
func (s *FollowService) Unfollow(ctx context.Context, fromID, toID uint) error {
	if err := s.ensureUser(ctx, toID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).
		Where("user_from_id = ? AND user_to_id = ?", fromID, toID).
		Delete(&model.Contact{}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// IsFollowing 是否已关注
func (s *FollowService) IsFollowing(ctx context.Context, fromID, toID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Contact{}).
		Where("user_from_id = ? AND user_to_id = ?", fromID, toID).
		Count(&count).Error
	return count > 0, err
}

// Counts 粉丝数与关注数
func (s *FollowService) Counts(ctx context.Context, userID uint) (followers, following int64, err error) {
	if err = s.db.WithContext(ctx).Model(&model.Contact{}).Where("user_to_id = ?", userID).Count(&followers).Error; err != nil {
		return
	}
	err = s.db.WithContext(ctx).Model(&model.Contact{}).Where("user_from_id = ?", userID).Count(&following).Error
	return
}

// Followers 粉丝列表
func (s *FollowService) Followers(ctx context.Context, userID uint, page, size int) (*dto.FollowListResponse, error) {
	return s.list(ctx, userID, page, size, "user_to_id", "UserFrom.Profile", func(c *model.Contact) *model.User { return &c.UserFrom })
}

// Following 关注列表
func (s *FollowService) Following(ctx context.Context, userID uint, page, size int) (*dto.FollowListResponse, error) {
	return s.list(ctx, userID, page, size, "user_from_id", "UserTo.Profile", func(c *model.Contact) *model.User { return &c.UserTo })
}

func (s *FollowService) list(ctx context.Context, userID uint, page, size int, column, preload string, pick func(*model.Contact) *model.User) (*dto.FollowListResponse, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	page, size = normalizePage(page, size, defaultFollowListSize, maxFollowListSize)

	query := s.db.WithContext(ctx).Model(&model.Contact{}).Where(column+" = ?", userID).Session(&gorm.Session{})
	resp := &dto.FollowListResponse{List: []dto.UserBriefInfo{}}
	if err := query.Count(&resp.Total).Error; err != nil {
		return nil, err
	}

	var contacts []model.Contact
	err := query.Preload(preload).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&contacts).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	for i := range contacts {
		resp.List = append(resp.List, briefUser(pick(&contacts[i])))
	}
	return resp, nil
}
