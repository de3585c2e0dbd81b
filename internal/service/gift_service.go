package service

import (
	"context"
	"fmt"
	"time"

	"rewardsystem/internal/config"
	"rewardsystem/internal/infrastructure/lock"
	"rewardsystem/internal/model"
	"rewardsystem/internal/repository"
	"rewardsystem/pkg/idgen"

	"go.uber.org/zap"
)

// GiftService 每日收益礼物
//
// AccrueDaily 把用户当日所有生效持仓的日收益汇总成一条礼物记录，
// 唯一键 (user_id, gift_date, source) 保证重复计息不会产生第二条。
// Collect 的幂等性由 is_collected 的条件置位保证。
type GiftService struct {
	repo   *repository.Repository
	guard  lock.UserGuard
	cfg    *config.Config
	logger *zap.Logger
}

func NewGiftService(repo *repository.Repository, guard lock.UserGuard, cfg *config.Config, logger *zap.Logger) *GiftService {
	return &GiftService{repo: repo, guard: guard, cfg: cfg, logger: logger}
}

// AccrueDaily 为用户生成指定日期的收益礼物
// 返回是否由本次调用生成（已存在或无生效持仓时返回 false）
func (s *GiftService) AccrueDaily(ctx context.Context, userID int64, date time.Time) (bool, error) {
	dailyReturn, err := s.repo.Investment.SumActiveDailyReturn(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("汇总日收益失败: %w", err)
	}
	if dailyReturn <= 0 {
		return false, nil
	}

	created, err := s.repo.Gift.CreateIgnoreConflict(ctx, &model.DailyGift{
		UserID:   userID,
		GiftDate: date.Format("2006-01-02"),
		Source:   model.GiftSourceInvestmentReturn,
		Amount:   dailyReturn,
	})
	if err != nil {
		return false, fmt.Errorf("生成收益礼物失败: %w", err)
	}

	if created {
		s.logger.Info("生成每日收益礼物",
			zap.Int64("user_id", userID),
			zap.String("gift_date", date.Format("2006-01-02")),
			zap.Int64("amount", dailyReturn))
	}
	return created, nil
}

// Collect 领取收益礼物，返回入账金额
func (s *GiftService) Collect(ctx context.Context, userID, giftID int64) (int64, error) {
	release, err := s.guard.Acquire(ctx, userID)
	if err != nil {
		return 0, err
	}
	defer release()

	var amount int64
	err = s.repo.InTransaction(ctx, func(tx *repository.Repository) error {
		gift, err := tx.Gift.GetByID(ctx, giftID)
		if err != nil {
			return err
		}
		if gift.UserID != userID {
			return ErrGiftNotOwned
		}
		if gift.IsCollected {
			return ErrGiftAlreadyCollected
		}

		// 条件置位是并发双领的最终防线
		flipped, err := tx.Gift.MarkCollected(ctx, giftID, userID)
		if err != nil {
			return fmt.Errorf("更新礼物状态失败: %w", err)
		}
		if !flipped {
			return ErrGiftAlreadyCollected
		}

		user, err := tx.User.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("查询用户失败: %w", err)
		}

		if err := tx.User.AddDailyIncomeCollected(ctx, userID, gift.Amount); err != nil {
			return fmt.Errorf("入账失败: %w", err)
		}

		transactionNo := idgen.GenerateTransactionNo()
		if err := tx.Ledger.Create(ctx, &model.AccountTransaction{
			TransactionNo: transactionNo,
			UserID:        userID,
			ReferenceNo:   fmt.Sprintf("GIFT-%d", giftID),
			Amount:        gift.Amount,
			Type:          model.TransactionTypeDailyIncome,
			BalanceBefore: user.WalletBalance,
			BalanceAfter:  user.WalletBalance + gift.Amount,
			Remark:        fmt.Sprintf("每日收益领取-%s", gift.GiftDate),
		}); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		if err := tx.Outbox.Create(ctx, newOutboxMessage(
			s.cfg.Kafka.Topic.RewardEvent,
			model.EventTypeDailyIncome,
			transactionNo,
			map[string]interface{}{
				"user_id":   userID,
				"gift_id":   giftID,
				"gift_date": gift.GiftDate,
				"amount":    gift.Amount,
			},
		)); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		amount = gift.Amount
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("收益礼物已领取",
		zap.Int64("user_id", userID),
		zap.Int64("gift_id", giftID),
		zap.Int64("amount", amount))
	return amount, nil
}

// ListUncollected 查询用户未领取的礼物
func (s *GiftService) ListUncollected(ctx context.Context, userID int64) ([]*model.DailyGift, error) {
	return s.repo.Gift.ListUncollected(ctx, userID)
}
