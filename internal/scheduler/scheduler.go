package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"buildstate/internal/pkg/config"
)

// sweepTimeout 单次清理的超时时间
const sweepTimeout = 5 * time.Minute

// ArtifactSweeper 过期产物清理
type ArtifactSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler 调度器
type Scheduler struct {
	cron          *cron.Cron
	logger        *zap.Logger
	sweeper       ArtifactSweeper
	cronSchedules map[string]cron.EntryID // 存储任务ID，便于管理
}

// NewScheduler 创建调度器
func NewScheduler(sweeper ArtifactSweeper, logger *zap.Logger) *Scheduler {
	// 创建 cron 实例（带秒级支持）
	c := cron.New(cron.WithSeconds())

	return &Scheduler{
		cron:          c,
		logger:        logger,
		sweeper:       sweeper,
		cronSchedules: make(map[string]cron.EntryID),
	}
}

// Start 注册任务并启动; cron 表达式为空时不注册清理任务
func (s *Scheduler) Start(cfg *config.SchedulerConfig) error {
	log := s.logger.Sugar()

	// cron 表达式格式: 秒 分 时 日 月 周
	cronExpr := cfg.ArtifactSweepCron
	if cronExpr == "" {
		log.Warn("未配置 scheduler.artifact_sweep_cron, 不清理过期产物")
	} else {
		entryID, err := s.cron.AddFunc(cronExpr, func() {
			if _, err := s.TriggerArtifactSweep(context.Background()); err != nil {
				log.Errorf("过期产物清理任务执行失败: %v", err)
			}
		})
		if err != nil {
			log.Errorf("注册过期产物清理任务: %v 失败: %v", cronExpr, err)
			return err
		}
		s.cronSchedules["artifact_sweep"] = entryID
		log.Infof("过期产物清理任务已注册: %s entry_id=%d", cronExpr, entryID)
	}

	s.cron.Start()
	log.Info("定时任务调度器启动成功")

	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.logger.Info("正在停止定时任务调度器...")

	// 停止 cron（等待正在执行的任务完成）
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("定时任务调度器已停止")
}

// TriggerArtifactSweep 手动触发一次清理
func (s *Scheduler) TriggerArtifactSweep(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()
	return s.sweeper.SweepExpired(ctx, time.Now().UTC())
}

// Entries 已注册的任务
func (s *Scheduler) Entries() map[string]cron.EntryID {
	return s.cronSchedules
}
