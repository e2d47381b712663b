package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/nsxzhou1114/bookmarks-api/internal/model"
	"github.com/spf13/cobra"
)

// databaseCmd 数据库管理命令
var databaseCmd = &cobra.Command{
	Use:   "db",
	Short: "数据库管理命令",
	Long:  `数据库管理相关的命令，包括建表、浏览数落库、搜索索引重建`,
}

// migrateCmd 初始化数据库表命令
// 示例：./bookmarks-api db migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "初始化数据库表",
	Long:  `自动迁移数据库表，启用搜索时同时创建索引`,
	Run: func(cmd *cobra.Command, args []string) {
		initializeTables()
	},
}

// syncViewsCmd 浏览数落库命令
// 示例：./bookmarks-api db sync-views
var syncViewsCmd = &cobra.Command{
	Use:   "sync-views",
	Short: "同步浏览数到数据库",
	Long:  `将Redis中的图片浏览数写回 images.total_views`,
	Run: func(cmd *cobra.Command, args []string) {
		syncViews()
	},
}

// reindexCmd 重建搜索索引命令
// 示例：./bookmarks-api db reindex
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "重建图片搜索索引",
	Long:  `将数据库中的全部图片批量写入Elasticsearch`,
	Run: func(cmd *cobra.Command, args []string) {
		reindexImages()
	},
}

func init() {
	databaseCmd.AddCommand(migrateCmd)
	databaseCmd.AddCommand(syncViewsCmd)
	databaseCmd.AddCommand(reindexCmd)

	rootCmd.AddCommand(databaseCmd)
}

// initializeTables 初始化数据库表
func initializeTables() {
	a := mustInit()
	defer a.close()

	// initializeSystem 已经执行过迁移，这里再执行一次以输出结果
	if err := model.InitTables(a.db); err != nil {
		fmt.Printf("初始化数据库表失败: %v\n", err)
		return
	}
	fmt.Println("数据库表初始化完成")

	if !a.search.Enabled() {
		fmt.Println("搜索未启用，跳过索引创建")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.search.EnsureIndex(ctx); err != nil {
		fmt.Printf("创建搜索索引失败: %v\n", err)
		return
	}
	fmt.Println("搜索索引已就绪")
}

// syncViews 同步浏览数
func syncViews() {
	a := mustInit()
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	n, err := a.images.SyncViewCounts(ctx)
	if err != nil {
		fmt.Printf("同步浏览数失败: %v\n", err)
		return
	}
	fmt.Printf("成功同步 %d 张图片的浏览数，耗时 %v\n", n, time.Since(start).Round(time.Millisecond))
}

// reindexImages 重建搜索索引
func reindexImages() {
	a := mustInit()
	defer a.close()

	if !a.search.Enabled() {
		fmt.Println("搜索未启用，请在配置中开启 elasticsearch.enabled")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	n, err := a.search.Reindex(ctx)
	if err != nil {
		fmt.Printf("重建索引失败（已写入 %d 条）: %v\n", n, err)
		return
	}
	fmt.Printf("成功索引 %d 张图片，耗时 %v\n", n, time.Since(start).Round(time.Millisecond))
}
