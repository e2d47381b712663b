package controller

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/bookmarks-api/internal/dto"
	"github.com/nsxzhou1114/bookmarks-api/internal/service"
	"github.com/nsxzhou1114/bookmarks-api/pkg/metrics"
	"github.com/nsxzhou1114/bookmarks-api/pkg/response"
	"go.uber.org/zap"
)

// 关注接口的响应状态
const (
	statusSuccess = "success"
	statusError   = "error"
)

// FollowApi 关注与动态控制器
type FollowApi struct {
	logger        *zap.SugaredLogger
	followService *service.FollowService
	actionService *service.ActionService
	userService   *service.UserService
	metrics       *metrics.Metrics
}

// NewFollowApi 创建关注控制器
func NewFollowApi(followService *service.FollowService, actionService *service.ActionService, userService *service.UserService, m *metrics.Metrics, logger *zap.SugaredLogger) *FollowApi {
	return &FollowApi{
		logger:        logger,
		followService: followService,
		actionService: actionService,
		userService:   userService,
		metrics:       m,
	}
}

// Follow 关注/取消关注，结果通过 status 字段返回，HTTP状态码始终为200
func (api *FollowApi) Follow(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "未授权", err)
		return
	}

	var req dto.FollowRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Status(c, statusError)
		return
	}
	targetID, ok := parseID(req.ID)
	if !ok {
		response.Status(c, statusError)
		return
	}

	if err := api.followService.Apply(c.Request.Context(), userID, targetID, req.Action); err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			api.logger.Errorf("关注操作失败: %v", err)
		} else {
			api.logger.Debugw("关注操作被拒绝", "user_id", userID, "target", targetID, "action", req.Action, "error", err)
		}
		response.Status(c, statusError)
		return
	}
	api.metrics.Follows.WithLabelValues(req.Action).Inc()
	response.Status(c, statusSuccess)
}

// Dashboard 关注用户的动态流
func (api *FollowApi) Dashboard(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "未授权", err)
		return
	}
	var q dto.PageQuery
	_ = c.ShouldBindQuery(&q)

	feed, err := api.actionService.FeedFor(c.Request.Context(), userID, q.Page, q.PageSize, false)
	if err != nil {
		api.logger.Errorf("获取动态失败: %v", err)
		response.InternalServerError(c, "获取动态失败", err)
		return
	}
	response.Success(c, "获取成功", feed)
}

// Followers 粉丝列表
func (api *FollowApi) Followers(c *gin.Context) {
	api.followList(c, api.followService.Followers)
}

// Following 关注列表
func (api *FollowApi) Following(c *gin.Context) {
	api.followList(c, api.followService.Following)
}

type followLister func(ctx context.Context, userID uint, page, size int) (*dto.FollowListResponse, error)

func (api *FollowApi) followList(c *gin.Context, list followLister) {
	user, err := api.userService.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, "用户不存在", err)
			return
		}
		response.InternalServerError(c, "获取用户失败", err)
		return
	}
	var q dto.PageQuery
	_ = c.ShouldBindQuery(&q)

	result, err := list(c.Request.Context(), user.ID, q.Page, q.PageSize)
	if err != nil {
		api.logger.Errorf("获取关注列表失败: %v", err)
		response.InternalServerError(c, "获取关注列表失败", err)
		return
	}
	response.Success(c, "获取成功", result)
}
