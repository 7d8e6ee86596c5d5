package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"campus-timetable/backend/config"
	"campus-timetable/backend/internal/repository"
	"campus-timetable/backend/pkg/metrics"
)

const retentionRunTimeout = 4 * time.Minute

// RetentionJob 定期清理过期的单日例外。
// 引擎的正确性不依赖本任务是否运行。
type RetentionJob struct {
	cfg     config.RetentionConfig
	repo    *repository.Repository
	metrics metrics.Recorder
	logger  *zap.Logger
	now     func() time.Time

	cron *cron.Cron
}

// NewRetentionJob 创建清理任务，loc 为 cron 表达式使用的时区
func NewRetentionJob(cfg config.RetentionConfig, loc *time.Location, repo *repository.Repository, rec metrics.Recorder, logger *zap.Logger) *RetentionJob {
	if loc == nil {
		loc = time.UTC
	}
	return &RetentionJob{
		cfg:     cfg,
		repo:    repo,
		metrics: rec,
		logger:  logger,
		now:     time.Now,
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start 按 cron 表达式调度清理；未启用时不做任何事
func (j *RetentionJob) Start() error {
	if !j.cfg.Enabled {
		j.logger.Info("例外清理任务未启用")
		return nil
	}
	if _, err := j.cron.AddFunc(j.cfg.Cron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), retentionRunTimeout)
		defer cancel()
		if _, err := j.RunOnce(ctx); err != nil {
			j.logger.Error("清理过期例外失败", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("无效的清理任务 cron 表达式 %q: %w", j.cfg.Cron, err)
	}
	j.cron.Start()
	j.logger.Info("例外清理任务已启动", zap.String("cron", j.cfg.Cron), zap.Int("days", j.cfg.Days))
	return nil
}

// Stop 停止调度并等待正在执行的清理结束
func (j *RetentionJob) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce 删除日期早于 (今天 - days) 的例外，返回删除条数
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	today := j.now().UTC().Truncate(24 * time.Hour)
	cutoff := today.AddDate(0, 0, -j.cfg.Days)

	n, err := j.repo.Exception.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	j.metrics.ExceptionsPurged(n)
	j.logger.Info("已清理过期例外", zap.Int64("count", n), zap.String("cutoff", cutoff.Format("2006-01-02")))
	return n, nil
}
