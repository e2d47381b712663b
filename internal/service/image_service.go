package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/nsxzhou1114/bookmarks-api/internal/config"
	"github.com/nsxzhou1114/bookmarks-api/internal/dto"
	"github.com/nsxzhou1114/bookmarks-api/internal/model"
	"github.com/nsxzhou1114/bookmarks-api/pkg/cache"
	"github.com/nsxzhou1114/bookmarks-api/pkg/counter"
	"github.com/nsxzhou1114/bookmarks-api/pkg/markup"
	"github.com/nsxzhou1114/bookmarks-api/pkg/validate"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 点赞接口支持的操作
const (
	LikeActionLike   = "like"
	LikeActionUnlike = "unlike"
)

const (
	defaultPageSize   = 8
	maxLikeUsers      = 50
	defaultRankingTop = 10
	maxRankingTop     = 50
	maxSlugLength     = 200
	fallbackSlug      = "image"
	indexTimeout      = 10 * time.Second
)

// ImageIndexer 图片检索索引
type ImageIndexer interface {
	IndexImage(ctx context.Context, img *model.Image) error
}

// ImageDownloader 远程图片下载，返回存储后的访问地址
type ImageDownloader interface {
	Download(ctx context.Context, rawURL string) (string, error)
}

// ImageService 图片书签服务
type ImageService struct {
	db         *gorm.DB
	actions    *ActionService
	views      counter.ViewCounter
	cfg        config.ImageConfig
	validate   *validator.Validate
	filter     *markup.Filter
	cache      *cache.ImageCache
	indexer    ImageIndexer
	downloader ImageDownloader
	logger     *zap.SugaredLogger
}

// ImageOption 图片服务可选依赖
type ImageOption func(*ImageService)

// WithCache 启用详情缓存与布隆过滤器
func WithCache(c *cache.ImageCache) ImageOption {
	return func(s *ImageService) { s.cache = c }
}

// WithIndexer 创建后异步写入检索索引
func WithIndexer(i ImageIndexer) ImageOption {
	return func(s *ImageService) { s.indexer = i }
}

// WithDownloader 创建时下载远程图片
func WithDownloader(d ImageDownloader) ImageOption {
	return func(s *ImageService) { s.downloader = d }
}

// WithFilter 指定文本过滤器
func WithFilter(f *markup.Filter) ImageOption {
	return func(s *ImageService) { s.filter = f }
}

// NewImageService 创建图片服务
func NewImageService(db *gorm.DB, actions *ActionService, views counter.ViewCounter, cfg config.ImageConfig, logger *zap.SugaredLogger, opts ...ImageOption) *ImageService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	s := &ImageService{
		db:       db,
		actions:  actions,
		views:    views,
		cfg:      cfg,
		validate: validate.New(cfg.AllowedExtensions),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.filter == nil {
		s.filter = markup.NewFilter()
	}
	return s
}

// makeSlug 由标题生成URL友好的slug
func makeSlug(title string) string {
	s := slug.Make(title)
	if len(s) > maxSlugLength {
		s = strings.Trim(s[:maxSlugLength], "-")
	}
	if s == "" {
		return fallbackSlug
	}
	return s
}

// CreateBookmark 收藏图片
func (s *ImageService) CreateBookmark(ctx context.Context, ownerID uint, req *dto.ImageCreateRequest) (*model.Image, error) {
	req.Title = s.filter.CleanText(req.Title)
	req.Description = s.filter.CleanText(req.Description)
	req.URL = strings.TrimSpace(req.URL)
	if err := s.validate.Struct(req); err != nil {
		return nil, &ValidationError{Fields: validate.FieldErrors(err)}
	}

	db := s.db.WithContext(ctx)
	var owner model.User
	if err := db.First(&owner, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var dup int64
	if err := db.Model(&model.Image{}).Where("url = ?", req.URL).Count(&dup).Error; err == nil && dup > 0 {
		s.logger.Warnw("图片地址已被收藏过", "url", req.URL, "count", dup)
	}

	img := &model.Image{
		UserID:      owner.ID,
		Title:       req.Title,
		Slug:        makeSlug(req.Title),
		URL:         req.URL,
		Description: req.Description,
	}
	if s.downloader != nil {
		file, err := s.downloader.Download(ctx, req.URL)
		if err != nil {
			s.logger.Warnw("下载远程图片失败", "url", req.URL, "error", err)
			return nil, fieldError("url", "图片下载失败")
		}
		img.File = file
	}

	if err := db.Create(img).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	img.User = owner

	s.actions.recordQuietly(ctx, owner.ID, model.VerbBookmarked, model.TargetTypeImage, &img.ID)
	if s.cache != nil {
		s.cache.Remember(img.ID)
	}
	if s.indexer != nil {
		go s.index(context.WithoutCancel(ctx), img)
	}
	s.logger.Infow("收藏图片", "image_id", img.ID, "user_id", owner.ID)
	return img, nil
}

func (s *ImageService) index(ctx context.Context, img *model.Image) {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()
	if err := s.indexer.IndexImage(ctx, img); err != nil {
		s.logger.Errorw("写入图片索引失败", "image_id", img.ID, "error", err)
	}
}

// PrefillForm 书签工具打开创建页时的预填值，不做校验失败处理
func (s *ImageService) PrefillForm(req dto.ImageCreateRequest) dto.ImageCreateRequest {
	out := dto.ImageCreateRequest{
		Title:       s.filter.CleanText(req.Title),
		Description: s.filter.CleanText(req.Description),
	}
	if u, err := url.Parse(strings.TrimSpace(req.URL)); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		out.URL = u.String()
	}
	return out
}

func (s *ImageService) ensureImage(ctx context.Context, id uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Image{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count == 0 {
		return ErrImageNotFound
	}
	return nil
}

// ApplyLike 按 action 执行点赞或取消点赞
func (s *ImageService) ApplyLike(ctx context.Context, userID, imageID uint, action string) error {
	switch action {
	case LikeActionLike:
		_, err := s.Like(ctx, userID, imageID)
		return err
	case LikeActionUnlike:
		return s.Unlike(ctx, userID, imageID)
	default:
		return ErrInvalidAction
	}
}

// Like 点赞，已点赞时返回 created=false
func (s *ImageService) Like(ctx context.Context, userID, imageID uint) (bool, error) {
	if err := s.ensureImage(ctx, imageID); err != nil {
		return false, err
	}

	db := s.db.WithContext(ctx)
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.ImageLike{ImageID: imageID, UserID: userID})
	if result.Error != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	if err := db.Model(&model.Image{}).Where("id = ?", imageID).
		UpdateColumn("total_likes", gorm.Expr("total_likes + ?", 1)).Error; err != nil {
		s.logger.Errorw("更新点赞数失败", "image_id", imageID, "error", err)
	}
	s.actions.recordQuietly(ctx, userID, model.VerbLikes, model.TargetTypeImage, &imageID)
	return true, nil
}

// Unlike 取消点赞，未点赞时为空操作
func (s *ImageService) Unlike(ctx context.Context, userID, imageID uint) error {
	if err := s.ensureImage(ctx, imageID); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	result := db.Where("image_id = ? AND user_id = ?", imageID, userID).Delete(&model.ImageLike{})
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}
	if result.RowsAffected > 0 {
		if err := db.Model(&model.Image{}).Where("id = ? AND total_likes > 0", imageID).
			UpdateColumn("total_likes", gorm.Expr("total_likes - ?", 1)).Error; err != nil {
			s.logger.Errorw("更新点赞数失败", "image_id", imageID, "error", err)
		}
	}
	return nil
}

// parsePage 非整数页码按第1页处理
func parsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return page
}

// List 图片分页列表。页码超出范围时，imagesOnly 返回空列表，否则返回最后一页
func (s *ImageService) List(ctx context.Context, rawPage string, imagesOnly bool) (*dto.ImagePageResponse, error) {
	size := s.cfg.PageSize
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&model.Image{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	numPages := int(math.Ceil(float64(total) / float64(size)))
	if numPages < 1 {
		numPages = 1
	}

	resp := &dto.ImagePageResponse{NumPages: numPages, Total: total, List: []dto.ImageListItem{}}
	page := parsePage(rawPage)
	if page < 1 || page > numPages {
		if imagesOnly {
			resp.Page = page
			return resp, nil
		}
		page = numPages
	}
	resp.Page = page
	resp.HasNext = page < numPages

	var images []model.Image
	if err := db.Preload("User.Profile").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&images).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	for i := range images {
		resp.List = append(resp.List, toListItem(&images[i]))
	}
	s.fillLiveViews(ctx, resp.List)
	return resp, nil
}

// fillLiveViews 用计数器中的实时浏览数覆盖落库快照，计数器不可用时保留快照
func (s *ImageService) fillLiveViews(ctx context.Context, items []dto.ImageListItem) {
	if len(items) == 0 {
		return
	}
	ids := make([]uint, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	views, err := s.views.GetMany(ctx, ids)
	if err != nil {
		s.logger.Warnw("获取实时浏览数失败", "error", err)
		return
	}
	for i := range items {
		if n, ok := views[items[i].ID]; ok && n > items[i].TotalViews {
			items[i].TotalViews = n
		}
	}
}

func toListItem(img *model.Image) dto.ImageListItem {
	return dto.ImageListItem{
		ID:         img.ID,
		Title:      img.Title,
		Slug:       img.Slug,
		URL:        img.URL,
		File:       img.File,
		TotalLikes: img.TotalLikes,
		TotalViews: img.TotalViews,
		User:       briefUser(&img.User),
		DetailPath: img.DetailPath(),
		CreatedAt:  img.CreatedAt,
	}
}

func (s *ImageService) loadSnapshot(ctx context.Context, id uint) (*dto.ImageSnapshot, error) {
	var img model.Image
	if err := s.db.WithContext(ctx).Preload("User.Profile").First(&img, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &dto.ImageSnapshot{
		ID:          img.ID,
		Title:       img.Title,
		Slug:        img.Slug,
		URL:         img.URL,
		File:        img.File,
		Description: img.Description,
		User:        briefUser(&img.User),
		CreatedAt:   img.CreatedAt,
	}, nil
}

// Detail 图片详情，id 与 slug 必须同时匹配；每次调用浏览数加1
func (s *ImageService) Detail(ctx context.Context, id uint, imageSlug string, viewerID *uint) (*dto.ImageDetailResponse, error) {
	var (
		snap *dto.ImageSnapshot
		err  error
	)
	if s.cache != nil {
		snap, err = cache.Fetch(ctx, s.cache, id, func(ctx context.Context) (*dto.ImageSnapshot, error) {
			return s.loadSnapshot(ctx, id)
		})
	} else {
		snap, err = s.loadSnapshot(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if snap.Slug != imageSlug {
		return nil, ErrImageNotFound
	}

	views, err := s.views.IncrementAndGet(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	resp := &dto.ImageDetailResponse{
		ImageSnapshot:   *snap,
		DescriptionHTML: s.filter.RenderMarkdown(snap.Description),
		TotalViews:      views,
		UsersLike:       []dto.UserBriefInfo{},
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(&model.ImageLike{}).Where("image_id = ?", id).Count(&resp.TotalLikes).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var likes []model.ImageLike
	if err := db.Preload("User.Profile").Where("image_id = ?", id).
		Order("created_at DESC").Limit(maxLikeUsers).
		Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	for i := range likes {
		resp.UsersLike = append(resp.UsersLike, briefUser(&likes[i].User))
	}
	if viewerID != nil {
		var n int64
		if err := db.Model(&model.ImageLike{}).Where("image_id = ? AND user_id = ?", id, *viewerID).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		resp.IsLiked = n > 0
	}
	return resp, nil
}

// Ranking 浏览量排行
func (s *ImageService) Ranking(ctx context.Context, limit int) ([]dto.ImageRankingItem, error) {
	if limit <= 0 {
		limit = defaultRankingTop
	}
	if limit > maxRankingTop {
		limit = maxRankingTop
	}

	entries, err := s.views.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	items := make([]dto.ImageRankingItem, 0, len(entries))
	if len(entries) == 0 {
		return items, nil
	}

	ids := make([]uint, len(entries))
	for i, e := range entries {
		ids[i] = e.ImageID
	}
	var images []model.Image
	if err := s.db.WithContext(ctx).Preload("User.Profile").Where("id IN ?", ids).Find(&images).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	byID := make(map[uint]*model.Image, len(images))
	for i := range images {
		byID[images[i].ID] = &images[i]
	}
	for _, e := range entries {
		img, ok := byID[e.ImageID]
		if !ok {
			continue
		}
		item := dto.ImageRankingItem{ImageListItem: toListItem(img), Views: e.Views}
		item.TotalViews = e.Views
		items = append(items, item)
	}
	return items, nil
}

// SyncViewCounts 将Redis中的浏览数写回 images.total_views，返回同步条数
func (s *ImageService) SyncViewCounts(ctx context.Context) (int, error) {
	synced := 0
	db := s.db.WithContext(ctx)
	err := s.views.Scan(ctx, func(imageID uint, views int64) error {
		result := db.Model(&model.Image{}).Where("id = ?", imageID).UpdateColumn("total_views", views)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			synced++
		}
		return nil
	})
	if err != nil {
		return synced, fmt.Errorf("同步浏览数失败: %w", err)
	}
	return synced, nil
}

// WarmUp 用全部图片ID预热布隆过滤器
func (s *ImageService) WarmUp(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&model.Image{}).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if err := s.cache.WarmUp(ctx, ids); err != nil {
		// 快照损坏或Redis读取失败时过滤器只含数据库中的ID
		s.logger.Warnw("加载布隆过滤器快照失败，已按数据库重建", "error", err)
	}
	s.logger.Infow("图片布隆过滤器预热完成", "count", len(ids))
	return nil
}

// Persist 保存布隆过滤器
func (s *ImageService) Persist(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Persist(ctx)
}
