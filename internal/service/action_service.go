package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nsxzhou1114/bookmarks-api/internal/dto"
	"github.com/nsxzhou1114/bookmarks-api/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// 相同动态的去重窗口
	actionDedupeWindow = 60 * time.Second

	defaultFeedSize = 10
	maxFeedSize     = 50
)

// ActionService 用户动态服务
type ActionService struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewActionService 创建动态服务
func NewActionService(db *gorm.DB, logger *zap.SugaredLogger) *ActionService {
	return &ActionService{db: db, logger: logger, now: time.Now}
}

// Record 追加一条动态；窗口期内相同的 (user, verb, target) 返回已有记录
func (s *ActionService) Record(ctx context.Context, userID uint, verb, targetType string, targetID *uint) (*model.Action, error) {
	db := s.db.WithContext(ctx)
	now := s.now()

	var existing model.Action
	query := db.Where("user_id = ? AND verb = ? AND created_at >= ?", userID, verb, now.Add(-actionDedupeWindow))
	if targetID != nil {
		query = query.Where("target_type = ? AND target_id = ?", targetType, *targetID)
	} else {
		query = query.Where("target_id IS NULL")
	}
	err := query.Order("created_at DESC").First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	action := &model.Action{
		UserID:    userID,
		Verb:      verb,
		CreatedAt: now,
	}
	if targetID != nil {
		id := *targetID
		action.TargetType = targetType
		action.TargetID = &id
	}
	if err := db.Create(action).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return action, nil
}

// recordQuietly 记录动态，失败只写日志，不影响触发它的操作
func (s *ActionService) recordQuietly(ctx context.Context, userID uint, verb, targetType string, targetID *uint) {
	if _, err := s.Record(ctx, userID, verb, targetType, targetID); err != nil {
		s.logger.Errorw("记录用户动态失败", "user_id", userID, "verb", verb, "error", err)
	}
}

func normalizePage(page, size, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = def
	}
	if size > max {
		size = max
	}
	return page, size
}

// FeedFor 返回关注用户的动态，按时间倒序分页
func (s *ActionService) FeedFor(ctx context.Context, userID uint, page, size int, includeSelf bool) (*dto.ActionListResponse, error) {
	page, size = normalizePage(page, size, defaultFeedSize, maxFeedSize)
	db := s.db.WithContext(ctx)

	var actorIDs []uint
	if err := db.Model(&model.Contact{}).Where("user_from_id = ?", userID).Pluck("user_to_id", &actorIDs).Error; err != nil {
		return nil, err
	}
	if includeSelf {
		actorIDs = append(actorIDs, userID)
	}

	resp := &dto.ActionListResponse{List: []dto.ActionItem{}}
	if len(actorIDs) == 0 {
		return resp, nil
	}

	query := db.Model(&model.Action{}).Where("user_id IN ?", actorIDs).Session(&gorm.Session{})
	if err := query.Count(&resp.Total).Error; err != nil {
		return nil, err
	}

	var actions []model.Action
	if err := query.Preload("User.Profile").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&actions).Error; err != nil {
		return nil, err
	}

	targets, err := s.resolveTargets(ctx, actions)
	if err != nil {
		return nil, err
	}
	for i := range actions {
		a := &actions[i]
		item := dto.ActionItem{
			ID:        a.ID,
			User:      briefUser(&a.User),
			Verb:      a.Verb,
			CreatedAt: a.CreatedAt,
		}
		if a.TargetID != nil {
			item.Target = targets[targetKey(a.TargetType, *a.TargetID)]
		}
		resp.List = append(resp.List, item)
	}
	return resp, nil
}

func targetKey(targetType string, id uint) string {
	return fmt.Sprintf("%s:%d", targetType, id)
}

// resolveTargets 批量加载动态目标
func (s *ActionService) resolveTargets(ctx context.Context, actions []model.Action) (map[string]*dto.ActionTarget, error) {
	var imageIDs, userIDs []uint
	for _, a := range actions {
		if a.TargetID == nil {
			continue
		}
		switch a.TargetType {
		case model.TargetTypeImage:
			imageIDs = append(imageIDs, *a.TargetID)
		case model.TargetTypeUser:
			userIDs = append(userIDs, *a.TargetID)
		}
	}

	targets := make(map[string]*dto.ActionTarget)
	db := s.db.WithContext(ctx)
	if len(imageIDs) > 0 {
		var images []model.Image
		if err := db.Where("id IN ?", imageIDs).Find(&images).Error; err != nil {
			return nil, err
		}
		for i := range images {
			img := &images[i]
			targets[targetKey(model.TargetTypeImage, img.ID)] = &dto.ActionTarget{
				Type:       model.TargetTypeImage,
				ID:         img.ID,
				Title:      img.Title,
				URL:        img.URL,
				DetailPath: img.DetailPath(),
			}
		}
	}
	if len(userIDs) > 0 {
		var users []model.User
		if err := db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			targets[targetKey(model.TargetTypeUser, u.ID)] = &dto.ActionTarget{
				Type:     model.TargetTypeUser,
				ID:       u.ID,
				Username: u.Username,
			}
		}
	}
	return targets, nil
}

// briefUser 用户简要信息
func briefUser(u *model.User) dto.UserBriefInfo {
	info := dto.UserBriefInfo{ID: u.ID, Username: u.Username}
	if u.Profile != nil {
		info.Avatar = u.Profile.Avatar
	}
	return info
}
