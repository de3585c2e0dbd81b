package job

import (
	"context"
	"time"

	"rewardsystem/internal/config"
	"rewardsystem/internal/repository"
	"rewardsystem/internal/service"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Summary 单次计息的结果统计
type Summary struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// DailyAccrualJob 每日收益计息任务
//
// 每天零点跑一次，另有固定间隔的补偿轮询兜底（零点那次失败或进程当时
// 不在线时补齐当日礼物）。礼物表的唯一键保证重复执行不会重复计息。
type DailyAccrualJob struct {
	repo            *repository.Repository
	giftService     *service.GiftService
	giftCodeService *service.GiftCodeService
	cfg             *config.Config
	logger          *zap.Logger
	scheduler       gocron.Scheduler
}

func NewDailyAccrualJob(repo *repository.Repository, giftService *service.GiftService, giftCodeService *service.GiftCodeService, cfg *config.Config, logger *zap.Logger) *DailyAccrualJob {
	return &DailyAccrualJob{
		repo:            repo,
		giftService:     giftService,
		giftCodeService: giftCodeService,
		cfg:             cfg,
		logger:          logger,
	}
}

// Start 启动调度器，阻塞到 ctx 取消
func (j *DailyAccrualJob) Start(ctx context.Context) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		j.logger.Error("创建调度器失败", zap.Error(err))
		return
	}
	j.scheduler = sched

	if _, err := sched.NewJob(
		gocron.CronJob(j.cfg.Scheduler.DailyCron, false),
		gocron.NewTask(func() { j.run(ctx) }),
	); err != nil {
		j.logger.Error("注册每日计息任务失败", zap.Error(err))
	}

	catchup := time.Duration(j.cfg.Scheduler.CatchupIntervalHours) * time.Hour
	if _, err := sched.NewJob(
		gocron.DurationJob(catchup),
		gocron.NewTask(func() { j.run(ctx) }),
	); err != nil {
		j.logger.Error("注册补偿计息任务失败", zap.Error(err))
	}

	sched.Start()
	j.logger.Info("每日计息任务启动",
		zap.String("cron", j.cfg.Scheduler.DailyCron),
		zap.Duration("catchup_interval", catchup))

	<-ctx.Done()
	if err := sched.Shutdown(); err != nil {
		j.logger.Error("关闭调度器失败", zap.Error(err))
	}
	j.logger.Info("每日计息任务退出")
}

func (j *DailyAccrualJob) run(ctx context.Context) {
	summary := j.RunOnce(ctx)
	j.logger.Info("每日计息完成",
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))
}

// RunOnce 为所有有生效持仓的用户生成当日收益礼物
// 单个用户失败不影响其他用户
func (j *DailyAccrualJob) RunOnce(ctx context.Context) Summary {
	var summary Summary

	// 顺带做两件维护：到期持仓收尾、过期礼品码停用
	if _, err := j.repo.Investment.CompleteExpired(ctx); err != nil {
		j.logger.Error("处理到期持仓失败", zap.Error(err))
	}
	if _, err := j.giftCodeService.DeactivateExpired(ctx); err != nil {
		j.logger.Error("停用过期礼品码失败", zap.Error(err))
	}

	userIDs, err := j.repo.Investment.ListUsersWithActive(ctx)
	if err != nil {
		j.logger.Error("查询持仓用户失败", zap.Error(err))
		return summary
	}

	today := time.Now()
	for _, userID := range userIDs {
		summary.Processed++
		if _, err := j.giftService.AccrueDaily(ctx, userID, today); err != nil {
			summary.Failed++
			j.logger.Error("用户计息失败",
				zap.Int64("user_id", userID),
				zap.Error(err))
			continue
		}
		summary.Succeeded++
	}

	return summary
}
