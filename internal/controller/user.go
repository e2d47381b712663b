package controller

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/bookmarks-api/internal/dto"
	"github.com/nsxzhou1114/bookmarks-api/internal/middleware"
	"github.com/nsxzhou1114/bookmarks-api/internal/service"
	"github.com/nsxzhou1114/bookmarks-api/pkg/response"
	"github.com/nsxzhou1114/bookmarks-api/pkg/validate"
	"go.uber.org/zap"
)

// UserApi 用户控制器
type UserApi struct {
	logger      *zap.SugaredLogger
	userService *service.UserService
}

// NewUserApi 创建用户控制器
func NewUserApi(userService *service.UserService, logger *zap.SugaredLogger) *UserApi {
	return &UserApi{logger: logger, userService: userService}
}

// Register 用户注册
func (api *UserApi) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationFailed(c, "参数错误", validate.FieldErrors(err))
		return
	}

	user, pair, err := api.userService.Register(c.Request.Context(), &req)
	switch {
	case errors.Is(err, service.ErrUserExists), errors.Is(err, service.ErrEmailExists):
		response.BadRequest(c, err.Error(), err)
		return
	case err != nil:
		api.logger.Errorf("用户注册失败: %v", err)
		response.InternalServerError(c, "注册失败", err)
		return
	}
	response.Success(c, "注册成功", service.AuthResponse(user, pair))
}

// Login 用户登录
func (api *UserApi) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationFailed(c, "参数错误", validate.FieldErrors(err))
		return
	}

	user, pair, err := api.userService.Login(c.Request.Context(), &req)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error(), err)
		return
	case errors.Is(err, service.ErrUserDisabled):
		response.Forbidden(c, err.Error(), err)
		return
	case err != nil:
		api.logger.Errorf("用户登录失败: %v", err)
		response.InternalServerError(c, "登录失败", err)
		return
	}
	response.Success(c, "登录成功", service.AuthResponse(user, pair))
}

// RefreshToken 刷新令牌，令牌由 RefreshAuth 中间件校验
func (api *UserApi) RefreshToken(c *gin.Context) {
	pair, err := api.userService.Refresh(c.Request.Context(), middleware.GetToken(c))
	if err != nil {
		response.Unauthorized(c, "刷新令牌失败", err)
		return
	}
	response.Success(c, "刷新成功", pair)
}

// Logout 登出
func (api *UserApi) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	_ = c.ShouldBindJSON(&req)

	if err := api.userService.Logout(c.Request.Context(), middleware.GetToken(c), req.RefreshToken); err != nil {
		api.logger.Warnf("登出失败: %v", err)
		response.BadRequest(c, "登出失败", err)
		return
	}
	response.Success(c, "登出成功", nil)
}

// GetUserInfo 当前用户信息
func (api *UserApi) GetUserInfo(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "未授权", err)
		return
	}
	user, err := api.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "用户不存在", err)
		return
	}
	response.Success(c, "获取成功", service.UserResponse(user))
}

// UpdateProfile 编辑资料
func (api *UserApi) UpdateProfile(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "未授权", err)
		return
	}
	var req dto.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, "参数错误", validate.FieldErrors(err))
		return
	}

	user, err := api.userService.EditProfile(c.Request.Context(), userID, &req)
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(c, "参数错误", verr.Fields)
		return
	case errors.Is(err, service.ErrEmailExists):
		response.BadRequest(c, err.Error(), err)
		return
	case err != nil:
		api.logger.Errorf("更新资料失败: %v", err)
		response.InternalServerError(c, "更新资料失败", err)
		return
	}
	response.Success(c, "更新成功", service.UserResponse(user))
}

// List 用户列表
func (api *UserApi) List(c *gin.Context) {
	var q dto.PageQuery
	_ = c.ShouldBindQuery(&q)

	list, err := api.userService.ListActive(c.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		api.logger.Errorf("获取用户列表失败: %v", err)
		response.InternalServerError(c, "获取用户列表失败", err)
		return
	}
	response.Success(c, "获取成功", list)
}

// Detail 用户主页
func (api *UserApi) Detail(c *gin.Context) {
	detail, err := api.userService.Detail(c.Request.Context(), c.Param("username"), viewerID(c))
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, "用户不存在", err)
		return
	case err != nil:
		api.logger.Errorf("获取用户详情失败: %v", err)
		response.InternalServerError(c, "获取用户详情失败", err)
		return
	}
	response.Success(c, "获取成功", detail)
}
