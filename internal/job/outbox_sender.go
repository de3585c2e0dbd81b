package job

import (
	"context"
	"time"

	"rewardsystem/internal/config"
	"rewardsystem/internal/infrastructure/mq"
	"rewardsystem/internal/model"
	"rewardsystem/internal/repository"

	"go.uber.org/zap"
)

// OutboxSender 发件箱投递任务
// 轮询 PENDING 消息发送到 Kafka，超过最大重试次数的消息标记为 FAILED
type OutboxSender struct {
	repo      *repository.Repository
	cfg       *config.Config
	logger    *zap.Logger
	stopCh    chan struct{}
	interval  time.Duration
	batchSize int
}

func NewOutboxSender(repo *repository.Repository, cfg *config.Config, logger *zap.Logger) *OutboxSender {
	return &OutboxSender{
		repo:      repo,
		cfg:       cfg,
		logger:    logger,
		stopCh:    make(chan struct{}),
		interval:  100 * time.Millisecond,
		batchSize: 100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.logger.Info("消息发送任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("收到停止信号，消息发送任务退出")
			return
		case <-s.stopCh:
			s.logger.Info("消息发送任务停止")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.repo.Outbox.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("查询待发送消息失败", zap.Error(err))
		return
	}

	if len(messages) == 0 {
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := mq.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)

	if err == nil {
		if updateErr := s.repo.Outbox.UpdateStatus(ctx, msg.ID, model.OutboxStatusSent); updateErr != nil {
			s.logger.Error("更新消息状态失败",
				zap.Int64("id", msg.ID),
				zap.Error(updateErr))
		} else {
			s.logger.Info("消息发送成功",
				zap.Int64("id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.String("event_type", msg.EventType))
		}
		return
	}

	s.logger.Error("消息发送失败",
		zap.Int64("id", msg.ID),
		zap.Error(err))

	if err := s.repo.Outbox.IncrementRetryCount(ctx, msg.ID); err != nil {
		s.logger.Error("增加重试次数失败",
			zap.Int64("id", msg.ID),
			zap.Error(err))
	}

	if msg.RetryCount+1 >= s.cfg.Business.MaxRetryCount {
		if err := s.repo.Outbox.MarkAsFailed(ctx, msg.ID); err != nil {
			s.logger.Error("标记消息失败状态失败",
				zap.Int64("id", msg.ID),
				zap.Error(err))
		} else {
			s.logger.Warn("消息超过最大重试次数，标记为失败",
				zap.Int64("id", msg.ID))
		}
	}
}
