package database

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/nsxzhou1114/bookmarks-api/internal/config"
	"go.uber.org/zap"
)

// InitElasticsearch 初始化Elasticsearch连接，未启用时返回nil
func InitElasticsearch(cfg *config.ElasticsearchConfig, log *zap.Logger) (*elasticsearch.Client, error) {
	if !cfg.Enabled {
		log.Info("elasticsearch未启用，跳过初始化")
		return nil, nil
	}

	esConfig := elasticsearch.Config{
		Addresses: cfg.URLs,
	}
	if cfg.Username != "" && cfg.Password != "" {
		esConfig.Username = cfg.Username
		esConfig.Password = cfg.Password
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, fmt.Errorf("连接elasticsearch失败: %w", err)
	}

	info, err := client.Info(client.Info.WithContext(context.Background()))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch健康检查失败: %w", err)
	}
	defer info.Body.Close()
	if info.IsError() {
		return nil, fmt.Errorf("elasticsearch健康检查失败: %s", info.String())
	}

	log.Info("elasticsearch连接成功", zap.Strings("addresses", cfg.URLs))
	return client, nil
}
