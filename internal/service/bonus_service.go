package service

import (
	"context"
	"errors"
	"fmt"

	"rewardsystem/internal/config"
	"rewardsystem/internal/infrastructure/lock"
	"rewardsystem/internal/model"
	"rewardsystem/internal/repository"
	"rewardsystem/pkg/idgen"

	"go.uber.org/zap"
)

// BonusResult 首充奖励处理结果
// 不满足发放条件不是错误，用 Credited + Reason 表达
type BonusResult struct {
	Credited    bool   `json:"credited"`
	Reason      string `json:"reason,omitempty"`
	ReferrerID  int64  `json:"referrer_id,omitempty"`
	BonusAmount int64  `json:"bonus_amount,omitempty"`
}

// BonusService 首充推荐奖励
//
// 发放条件：存在已接受的推荐关系，且该笔存款是用户第一笔审核通过的存款。
// 幂等性由 referral_bonus 表的唯一键保证，并发重复调用只有一次能写入凭证。
type BonusService struct {
	repo   *repository.Repository
	guard  lock.UserGuard
	cfg    *config.Config
	logger *zap.Logger
}

func NewBonusService(repo *repository.Repository, guard lock.UserGuard, cfg *config.Config, logger *zap.Logger) *BonusService {
	return &BonusService{repo: repo, guard: guard, cfg: cfg, logger: logger}
}

// ProcessFirstDepositBonus 处理首充奖励，在存款审核通过后调用
func (s *BonusService) ProcessFirstDepositBonus(ctx context.Context, userID int64, depositAmount int64) (*BonusResult, error) {
	referral, err := s.repo.Referral.GetByReferredUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrReferralNotFound) {
			return &BonusResult{Credited: false, Reason: "无推荐关系"}, nil
		}
		return nil, fmt.Errorf("查询推荐关系失败: %w", err)
	}
	if referral.Status != model.ReferralStatusAccepted {
		return &BonusResult{Credited: false, Reason: "推荐关系未生效"}, nil
	}

	approvedCount, err := s.repo.Deposit.CountApprovedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("统计存款次数失败: %w", err)
	}
	if approvedCount != 1 {
		return &BonusResult{Credited: false, Reason: "非首笔存款"}, nil
	}

	bonusAmount := depositAmount * s.cfg.Business.FirstDepositBonusPercent / 100
	if bonusAmount <= 0 {
		return &BonusResult{Credited: false, Reason: "奖励金额为零"}, nil
	}

	// 已发放过的直接短路，不进锁竞争；事务内的凭证写入仍是最终防线
	granted, err := s.repo.Referral.HasBonus(ctx, referral.ReferrerID, userID)
	if err != nil {
		return nil, fmt.Errorf("查询奖励凭证失败: %w", err)
	}
	if granted {
		return &BonusResult{Credited: false, Reason: "奖励已发放", ReferrerID: referral.ReferrerID}, nil
	}

	// 锁定收款方（推荐人）的资金操作
	release, err := s.guard.Acquire(ctx, referral.ReferrerID)
	if err != nil {
		return nil, err
	}
	defer release()

	result := &BonusResult{ReferrerID: referral.ReferrerID, BonusAmount: bonusAmount}
	err = s.repo.InTransaction(ctx, func(tx *repository.Repository) error {
		created, err := tx.Referral.CreateBonusIgnoreConflict(ctx, &model.ReferralBonus{
			ReferrerID:     referral.ReferrerID,
			ReferredUserID: userID,
			BonusAmount:    bonusAmount,
			DepositAmount:  depositAmount,
		})
		if err != nil {
			return fmt.Errorf("写入奖励凭证失败: %w", err)
		}
		if !created {
			result.Credited = false
			result.Reason = "奖励已发放"
			return nil
		}

		referrer, err := tx.User.GetByIDForUpdate(ctx, referral.ReferrerID)
		if err != nil {
			return fmt.Errorf("查询推荐人失败: %w", err)
		}

		if err := tx.User.AddReferralEarnings(ctx, referral.ReferrerID, bonusAmount); err != nil {
			return fmt.Errorf("发放奖励失败: %w", err)
		}

		transactionNo := idgen.GenerateTransactionNo()
		if err := tx.Ledger.Create(ctx, &model.AccountTransaction{
			TransactionNo: transactionNo,
			UserID:        referral.ReferrerID,
			ReferenceNo:   fmt.Sprintf("REFBONUS-%d-%d", referral.ReferrerID, userID),
			Amount:        bonusAmount,
			Type:          model.TransactionTypeReferralBonus,
			BalanceBefore: referrer.WalletBalance,
			BalanceAfter:  referrer.WalletBalance + bonusAmount,
			Remark:        fmt.Sprintf("首充推荐奖励-被推荐用户%d", userID),
		}); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		if err := tx.Outbox.Create(ctx, newOutboxMessage(
			s.cfg.Kafka.Topic.RewardEvent,
			model.EventTypeReferralBonus,
			transactionNo,
			map[string]interface{}{
				"referrer_id":      referral.ReferrerID,
				"referred_user_id": userID,
				"bonus_amount":     bonusAmount,
				"deposit_amount":   depositAmount,
			},
		)); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		result.Credited = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Credited {
		s.logger.Info("首充奖励已发放",
			zap.Int64("referrer_id", referral.ReferrerID),
			zap.Int64("referred_user_id", userID),
			zap.Int64("bonus_amount", bonusAmount))
	}
	return result, nil
}
