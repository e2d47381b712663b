package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/nsxzhou1114/bookmarks-api/internal/model"
	"github.com/spf13/cobra"
)

// statsCmd 统计命令
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "统计信息命令",
	Long:  `显示系统统计信息，包括用户、图片、点赞、关注等数据`,
}

// systemStatsCmd 系统统计命令
var systemStatsCmd = &cobra.Command{
	Use:   "system",
	Short: "系统统计信息",
	Long:  `显示系统整体统计信息`,
	Run: func(cmd *cobra.Command, args []string) {
		showSystemStats()
	},
}

var rankingLimit int

// rankingStatsCmd 浏览排行命令
var rankingStatsCmd = &cobra.Command{
	Use:   "ranking",
	Short: "图片浏览排行",
	Long:  `按Redis中的实时浏览数显示最受欢迎的图片`,
	Run: func(cmd *cobra.Command, args []string) {
		showRanking(rankingLimit)
	},
}

// dbStatusCmd 数据库状态命令
var dbStatusCmd = &cobra.Command{
	Use:   "db-status",
	Short: "数据库状态",
	Long:  `显示数据库、Redis与Elasticsearch连接状态`,
	Run: func(cmd *cobra.Command, args []string) {
		showDatabaseStatus()
	},
}

func init() {
	rankingStatsCmd.Flags().IntVarP(&rankingLimit, "limit", "n", 10, "显示条数")

	statsCmd.AddCommand(systemStatsCmd)
	statsCmd.AddCommand(rankingStatsCmd)
	statsCmd.AddCommand(dbStatusCmd)

	rootCmd.AddCommand(statsCmd)
}

// showSystemStats 显示系统统计信息
func showSystemStats() {
	a := mustInit()
	defer a.close()
	db := a.db

	fmt.Println("=== 系统统计信息 ===")

	var userCount, activeUserCount, adminCount int64
	db.Model(&model.User{}).Count(&userCount)
	db.Model(&model.User{}).Where("status = ?", model.UserStatusActive).Count(&activeUserCount)
	db.Model(&model.User{}).Where("role = ?", "admin").Count(&adminCount)

	var imageCount, likeCount, followCount, actionCount int64
	db.Model(&model.Image{}).Count(&imageCount)
	db.Model(&model.ImageLike{}).Count(&likeCount)
	db.Model(&model.Contact{}).Count(&followCount)
	db.Model(&model.Action{}).Count(&actionCount)

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var todayUsers, todayImages int64
	db.Model(&model.User{}).Where("created_at >= ?", today).Count(&todayUsers)
	db.Model(&model.Image{}).Where("created_at >= ?", today).Count(&todayImages)

	fmt.Printf("用户总数: %d (活跃: %d, 管理员: %d)\n", userCount, activeUserCount, adminCount)
	fmt.Printf("图片总数: %d\n", imageCount)
	fmt.Printf("点赞总数: %d\n", likeCount)
	fmt.Printf("关注关系: %d\n", followCount)
	fmt.Printf("动态总数: %d\n", actionCount)
	fmt.Printf("今日新增: 用户 %d, 图片 %d\n", todayUsers, todayImages)

	var verbStats []struct {
		Verb  string
		Count int64
	}
	db.Model(&model.Action{}).
		Select("verb, COUNT(*) as count").
		Group("verb").
		Find(&verbStats)

	fmt.Println("\n动态类型分布:")
	for _, stat := range verbStats {
		fmt.Printf("- %s: %d\n", stat.Verb, stat.Count)
	}
}

// showRanking 显示浏览排行
func showRanking(limit int) {
	a := mustInit()
	defer a.close()

	items, err := a.images.Ranking(context.Background(), limit)
	if err != nil {
		fmt.Printf("获取排行失败: %v\n", err)
		return
	}

	fmt.Println("=== 图片浏览排行 ===")
	if len(items) == 0 {
		fmt.Println("暂无浏览记录")
		return
	}
	for i, item := range items {
		fmt.Printf("%d. %s (作者: %s, 浏览: %d, 点赞: %d)\n",
			i+1, item.Title, item.User.Username, item.Views, item.TotalLikes)
	}
}

// showDatabaseStatus 显示数据库状态
func showDatabaseStatus() {
	a := mustInit()
	defer a.close()
	ctx := context.Background()

	fmt.Println("=== 数据库状态 ===")

	sqlDB, err := a.db.DB()
	if err != nil {
		fmt.Printf("数据库: 连接失败 - %v\n", err)
	} else if err := sqlDB.PingContext(ctx); err != nil {
		fmt.Printf("数据库: 连接失败 - %v\n", err)
	} else {
		stats := sqlDB.Stats()
		fmt.Printf("数据库(%s): 连接正常\n", a.cfg.Database.Driver)
		fmt.Printf("  - 最大连接数: %d\n", stats.MaxOpenConnections)
		fmt.Printf("  - 当前连接数: %d\n", stats.OpenConnections)
		fmt.Printf("  - 空闲连接数: %d\n", stats.Idle)
		fmt.Printf("  - 使用中连接数: %d\n", stats.InUse)
	}

	if pong, err := a.rdb.Ping(ctx).Result(); err != nil {
		fmt.Printf("Redis: 连接失败 - %v\n", err)
	} else {
		fmt.Printf("Redis: 连接正常 - %s\n", pong)
		if size, err := a.rdb.DBSize(ctx).Result(); err == nil {
			fmt.Printf("  - 键数量: %d\n", size)
		}
	}

	if a.es == nil {
		fmt.Println("Elasticsearch: 未启用")
		return
	}
	res, err := a.es.Info(a.es.Info.WithContext(ctx))
	if err != nil {
		fmt.Printf("Elasticsearch: 连接失败 - %v\n", err)
		return
	}
	defer res.Body.Close()
	fmt.Printf("Elasticsearch: 连接正常 - %s\n", res.Status())
}
