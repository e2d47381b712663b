package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/nsxzhou1114/bookmarks-api/internal/dto"
	"github.com/nsxzhou1114/bookmarks-api/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultSearchSize = 10
	maxSearchSize     = 50
	reindexBatchSize  = 500
)

// SearchService 图片全文搜索服务
type SearchService struct {
	db       *gorm.DB
	esClient *elasticsearch.Client
	index    string
	logger   *zap.SugaredLogger
}

// NewSearchService 创建搜索服务，esClient 为nil表示未启用
func NewSearchService(db *gorm.DB, esClient *elasticsearch.Client, index string, logger *zap.SugaredLogger) *SearchService {
	if index == "" {
		index = "images"
	}
	return &SearchService{db: db, esClient: esClient, index: index, logger: logger}
}

// Enabled 是否启用搜索
func (s *SearchService) Enabled() bool {
	return s != nil && s.esClient != nil
}

// EnsureIndex 索引不存在时按映射创建
func (s *SearchService) EnsureIndex(ctx context.Context) error {
	if !s.Enabled() {
		return ErrSearchDisabled
	}
	res, err := s.esClient.Indices.Exists([]string{s.index}, s.esClient.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	createRes, err := s.esClient.Indices.Create(
		s.index,
		s.esClient.Indices.Create.WithContext(ctx),
		s.esClient.Indices.Create.WithBody(strings.NewReader(model.ESImage{}.ESMapping())),
	)
	if err != nil {
		return err
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("创建索引失败: %s", createRes.String())
	}
	s.logger.Infow("创建图片索引", "index", s.index)
	return nil
}

// IndexImage 写入单个图片文档
func (s *SearchService) IndexImage(ctx context.Context, img *model.Image) error {
	if !s.Enabled() {
		return nil
	}
	doc := model.NewESImage(img)
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := s.esClient.Index(
		s.index,
		bytes.NewReader(body),
		s.esClient.Index.WithContext(ctx),
		s.esClient.Index.WithDocumentID(doc.ID),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("写入索引失败: %s", res.String())
	}
	return nil
}

type searchHits struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source model.ESImage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search 按标题和描述搜索图片，结果保持ES的相关度顺序
func (s *SearchService) Search(ctx context.Context, q string, page, size int) (*dto.ImageSearchResponse, error) {
	if !s.Enabled() {
		return nil, ErrSearchDisabled
	}
	page, size = normalizePage(page, size, defaultSearchSize, maxSearchSize)

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q,
				"fields": []string{"title^2", "description"},
				"type":   "best_fields",
			},
		},
		"from": (page - 1) * size,
		"size": size,
		"sort": []map[string]interface{}{
			{"_score": map[string]interface{}{"order": "desc"}},
			{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(ctx),
		s.esClient.Search.WithIndex(s.index),
		s.esClient.Search.WithBody(&buf),
		s.esClient.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("ES搜索错误: %s", res.String())
	}

	var result searchHits
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(result.Hits.Hits))
	for _, h := range result.Hits.Hits {
		ids = append(ids, h.Source.ImageID)
	}
	resp := &dto.ImageSearchResponse{Total: result.Hits.Total.Value, List: []dto.ImageListItem{}}
	if len(ids) == 0 {
		return resp, nil
	}

	var images []model.Image
	if err := s.db.WithContext(ctx).Preload("User.Profile").Where("id IN ?", ids).Find(&images).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]*model.Image, len(images))
	for i := range images {
		byID[images[i].ID] = &images[i]
	}
	for _, id := range ids {
		if img, ok := byID[id]; ok {
			resp.List = append(resp.List, toListItem(img))
		}
	}
	return resp, nil
}

// Reindex 批量重建全部图片文档，返回写入数量
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if !s.Enabled() {
		return 0, ErrSearchDisabled
	}
	if err := s.EnsureIndex(ctx); err != nil {
		return 0, err
	}

	indexed := 0
	var images []model.Image
	err := s.db.WithContext(ctx).Preload("User").FindInBatches(&images, reindexBatchSize, func(tx *gorm.DB, batch int) error {
		var buf bytes.Buffer
		for i := range images {
			doc := model.NewESImage(&images[i])
			meta := map[string]interface{}{"index": map[string]interface{}{"_index": s.index, "_id": doc.ID}}
			if err := json.NewEncoder(&buf).Encode(meta); err != nil {
				return err
			}
			if err := json.NewEncoder(&buf).Encode(doc); err != nil {
				return err
			}
		}
		res, err := s.esClient.Bulk(&buf, s.esClient.Bulk.WithContext(ctx))
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("批量写入索引失败: %s", res.String())
		}
		indexed += len(images)
		s.logger.Infow("批量写入图片索引", "batch", batch, "count", len(images))
		return nil
	}).Error
	if err != nil {
		return indexed, err
	}

	refresh, err := s.esClient.Indices.Refresh(
		s.esClient.Indices.Refresh.WithIndex(s.index),
		s.esClient.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return indexed, err
	}
	refresh.Body.Close()
	return indexed, nil
}
