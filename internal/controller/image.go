package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/bookmarks-api/internal/dto"
	"github.com/nsxzhou1114/bookmarks-api/internal/service"
	"github.com/nsxzhou1114/bookmarks-api/pkg/metrics"
	"github.com/nsxzhou1114/bookmarks-api/pkg/response"
	"github.com/nsxzhou1114/bookmarks-api/pkg/scraper"
	"github.com/nsxzhou1114/bookmarks-api/pkg/validate"
	"go.uber.org/zap"
)

// 点赞接口的响应状态
const statusOK = "ok"

// ImageApi 图片控制器
type ImageApi struct {
	logger        *zap.SugaredLogger
	imageService  *service.ImageService
	searchService *service.SearchService
	scraper       *scraper.Scraper
	metrics       *metrics.Metrics
}

// NewImageApi 创建图片控制器，searchService 与 scraper 可以为nil
func NewImageApi(imageService *service.ImageService, searchService *service.SearchService, sc *scraper.Scraper, m *metrics.Metrics, logger *zap.SugaredLogger) *ImageApi {
	return &ImageApi{
		logger:        logger,
		imageService:  imageService,
		searchService: searchService,
		scraper:       sc,
		metrics:       m,
	}
}

// CreateForm 书签工具打开的创建页，返回预填的表单值
func (api *ImageApi) CreateForm(c *gin.Context) {
	var req dto.ImageCreateRequest
	_ = c.ShouldBindQuery(&req)
	response.Success(c, "获取成功", api.imageService.PrefillForm(req))
}

// Create 收藏图片，成功后302跳转到详情页
func (api *ImageApi) Create(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "未授权", err)
		return
	}
	var req dto.ImageCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationFailed(c, "参数错误", validate.FieldErrors(err))
		return
	}

	img, err := api.imageService.CreateBookmark(c.Request.Context(), userID, &req)
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(c, "参数错误", verr.Fields)
		return
	case errors.Is(err, service.ErrUserNotFound):
		response.Unauthorized(c, "用户不存在", err)
		return
	case err != nil:
		api.logger.Errorf("收藏图片失败: %v", err)
		response.InternalServerError(c, "收藏图片失败", err)
		return
	}
	api.metrics.ImagesCreated.Inc()
	c.Redirect(http.StatusFound, img.DetailPath())
}

// Like 点赞/取消点赞，结果通过 status 字段返回
func (api *ImageApi) Like(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "未授权", err)
		return
	}

	var req dto.LikeRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Status(c, statusError)
		return
	}
	imageID, ok := parseID(req.ID)
	if !ok {
		response.Status(c, statusError)
		return
	}

	if err := api.imageService.ApplyLike(c.Request.Context(), userID, imageID, req.Action); err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			api.logger.Errorf("点赞操作失败: %v", err)
		}
		response.Status(c, statusError)
		return
	}
	api.metrics.Likes.WithLabelValues(req.Action).Inc()
	response.Status(c, statusOK)
}

// List 图片列表，images_only 为增量加载
func (api *ImageApi) List(c *gin.Context) {
	var q dto.ImageListQuery
	_ = c.ShouldBindQuery(&q)

	page, err := api.imageService.List(c.Request.Context(), q.Page, q.ImagesOnly != "")
	if err != nil {
		api.logger.Errorf("获取图片列表失败: %v", err)
		response.InternalServerError(c, "获取图片列表失败", err)
		return
	}
	response.Success(c, "获取成功", page)
}

// Detail 图片详情，浏览数加1
func (api *ImageApi) Detail(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		response.NotFound(c, "图片不存在", nil)
		return
	}

	detail, err := api.imageService.Detail(c.Request.Context(), id, c.Param("slug"), viewerID(c))
	switch {
	case errors.Is(err, service.ErrImageNotFound):
		response.NotFound(c, "图片不存在", err)
		return
	case err != nil:
		api.logger.Errorf("获取图片详情失败: %v", err)
		response.InternalServerError(c, "获取图片详情失败", err)
		return
	}
	api.metrics.ImageViews.Inc()
	response.Success(c, "获取成功", detail)
}

// Ranking 浏览量排行
func (api *ImageApi) Ranking(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := api.imageService.Ranking(c.Request.Context(), limit)
	if err != nil {
		api.logger.Errorf("获取排行失败: %v", err)
		response.InternalServerError(c, "获取排行失败", err)
		return
	}
	response.Success(c, "获取成功", items)
}

// Search 全文搜索
func (api *ImageApi) Search(c *gin.Context) {
	var q dto.ImageSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationFailed(c, "参数错误", validate.FieldErrors(err))
		return
	}

	result, err := api.searchService.Search(c.Request.Context(), q.Q, q.Page, q.PageSize)
	switch {
	case errors.Is(err, service.ErrSearchDisabled):
		response.ServiceUnavailable(c, "搜索服务未启用", err)
		return
	case err != nil:
		api.logger.Errorf("搜索失败: %v", err)
		response.InternalServerError(c, "搜索失败", err)
		return
	}
	response.Success(c, "搜索成功", result)
}

// Scrape 抓取页面中可收藏的图片地址
func (api *ImageApi) Scrape(c *gin.Context) {
	if api.scraper == nil {
		response.ServiceUnavailable(c, "抓取服务未启用", nil)
		return
	}
	var q dto.ScrapeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationFailed(c, "参数错误", validate.FieldErrors(err))
		return
	}

	images, err := api.scraper.FindImages(c.Request.Context(), q.URL)
	if err != nil {
		api.logger.Warnw("抓取页面失败", "url", q.URL, "error", err)
		response.BadRequest(c, "抓取页面失败", err)
		return
	}
	response.Success(c, "获取成功", gin.H{"images": images})
}
