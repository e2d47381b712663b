package task

import (
	"context"
	"fmt"
	"time"

	"github.com/nsxzhou1114/bookmarks-api/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 2 * time.Minute

// ViewSyncer 将浏览计数写回数据库
type ViewSyncer interface {
	SyncViewCounts(ctx context.Context) (int, error)
}

// Scheduler 定时任务调度
type Scheduler struct {
	cron   *cron.Cron
	syncer ViewSyncer
	logger *zap.SugaredLogger
}

// NewScheduler 按配置注册定时任务
func NewScheduler(cfg config.CronConfig, syncer ViewSyncer, logger *zap.SugaredLogger) (*Scheduler, error) {
	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("加载时区失败: %w", err)
		}
		loc = l
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		syncer: syncer,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(cfg.ViewSync, s.SyncViews); err != nil {
		return nil, fmt.Errorf("注册浏览数同步任务失败: %w", err)
	}
	return s, nil
}

// SyncViews 执行一次浏览数同步
func (s *Scheduler) SyncViews() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	n, err := s.syncer.SyncViewCounts(ctx)
	if err != nil {
		s.logger.Errorw("同步浏览数失败", "synced", n, "error", err)
		return
	}
	s.logger.Infow("同步浏览数完成", "synced", n, "cost", time.Since(start))
}

// Entries 已注册任务数
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待运行中的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
