package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"rewardsystem/internal/config"
	"rewardsystem/internal/infrastructure/lock"
	"rewardsystem/internal/model"
	"rewardsystem/internal/repository"
	"rewardsystem/pkg/idgen"

	"go.uber.org/zap"
)

// 礼品码：8 位大写字母或数字
var giftCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// 生成礼品码时的换码重试次数
const giftCodeGenRetries = 5

// GiftCodeService 礼品码创建与兑换
//
// 兑换的两道幂等防线：
// 1. 兑换凭证唯一键 (user_id, gift_code_id) —— 同一用户最多兑换一次
// 2. current_uses < max_uses 的条件递增 —— 总量受限，并发下不会超发
type GiftCodeService struct {
	repo   *repository.Repository
	guard  lock.UserGuard
	cfg    *config.Config
	logger *zap.Logger
}

func NewGiftCodeService(repo *repository.Repository, guard lock.UserGuard, cfg *config.Config, logger *zap.Logger) *GiftCodeService {
	return &GiftCodeService{repo: repo, guard: guard, cfg: cfg, logger: logger}
}

// Create 创建礼品码（管理端），返回生成的码
func (s *GiftCodeService) Create(ctx context.Context, createdBy int64, amount int64, durationMinutes, maxUses int) (*model.GiftCode, error) {
	if amount <= 0 || amount > s.cfg.Business.GiftCodeMaxAmount {
		return nil, ErrGiftCodeAmountInvalid
	}
	if durationMinutes < 1 || durationMinutes > s.cfg.Business.GiftCodeMaxDurationMinutes {
		return nil, ErrGiftCodeDurationInvalid
	}
	if maxUses == 0 {
		maxUses = s.cfg.Business.GiftCodeDefaultMaxUses
	}
	if maxUses < 1 || maxUses > s.cfg.Business.GiftCodeDefaultMaxUses {
		return nil, ErrGiftCodeMaxUsesInvalid
	}

	expiresAt := time.Now().Add(time.Duration(durationMinutes) * time.Minute)

	// 随机码可能撞上已有的码，换码重试
	for i := 0; i < giftCodeGenRetries; i++ {
		giftCode := &model.GiftCode{
			Code:      idgen.GenerateGiftCode(),
			Amount:    amount,
			ExpiresAt: expiresAt,
			MaxUses:   maxUses,
			IsActive:  true,
			CreatedBy: createdBy,
		}

		created, err := s.repo.GiftCode.CreateIgnoreConflict(ctx, giftCode)
		if err != nil {
			return nil, fmt.Errorf("创建礼品码失败: %w", err)
		}
		if created {
			s.logger.Info("礼品码已创建",
				zap.String("code", giftCode.Code),
				zap.Int64("amount", amount),
				zap.Int("max_uses", maxUses))
			return giftCode, nil
		}
	}

	return nil, errors.New("生成礼品码失败，请重试")
}

// Redeem 兑换礼品码，返回入账金额
func (s *GiftCodeService) Redeem(ctx context.Context, userID int64, code string) (int64, error) {
	if !giftCodePattern.MatchString(code) {
		return 0, ErrGiftCodeInvalid
	}

	release, err := s.guard.Acquire(ctx, userID)
	if err != nil {
		return 0, err
	}
	defer release()

	var amount int64
	err = s.repo.InTransaction(ctx, func(tx *repository.Repository) error {
		giftCode, err := tx.GiftCode.GetByCode(ctx, code)
		if err != nil {
			return err
		}
		if !giftCode.IsActive {
			return ErrGiftCodeInactive
		}
		if time.Now().After(giftCode.ExpiresAt) {
			return ErrGiftCodeExpired
		}

		// 先写凭证：重复兑换的用户不应消耗使用次数
		created, err := tx.GiftCode.CreateRedemptionIgnoreConflict(ctx, &model.GiftCodeRedemption{
			UserID:     userID,
			GiftCodeID: giftCode.ID,
			Amount:     giftCode.Amount,
		})
		if err != nil {
			return fmt.Errorf("写入兑换凭证失败: %w", err)
		}
		if !created {
			return ErrGiftCodeAlreadyRedeemed
		}

		incremented, err := tx.GiftCode.IncrementUses(ctx, giftCode.ID)
		if err != nil {
			return fmt.Errorf("更新兑换次数失败: %w", err)
		}
		if !incremented {
			return ErrGiftCodeExhausted
		}

		user, err := tx.User.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("查询用户失败: %w", err)
		}

		if err := tx.User.Credit(ctx, userID, giftCode.Amount); err != nil {
			return fmt.Errorf("入账失败: %w", err)
		}

		transactionNo := idgen.GenerateTransactionNo()
		if err := tx.Ledger.Create(ctx, &model.AccountTransaction{
			TransactionNo: transactionNo,
			UserID:        userID,
			ReferenceNo:   code,
			Amount:        giftCode.Amount,
			Type:          model.TransactionTypeGiftCode,
			BalanceBefore: user.WalletBalance,
			BalanceAfter:  user.WalletBalance + giftCode.Amount,
			Remark:        fmt.Sprintf("礼品码兑换-%s", code),
		}); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		if err := tx.Outbox.Create(ctx, newOutboxMessage(
			s.cfg.Kafka.Topic.RewardEvent,
			model.EventTypeGiftCodeRedeem,
			transactionNo,
			map[string]interface{}{
				"user_id":      userID,
				"gift_code_id": giftCode.ID,
				"code":         code,
				"amount":       giftCode.Amount,
			},
		)); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		amount = giftCode.Amount
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("礼品码已兑换",
		zap.Int64("user_id", userID),
		zap.String("code", code),
		zap.Int64("amount", amount))
	return amount, nil
}

// DeactivateExpired 停用过期礼品码（由定时任务调用）
func (s *GiftCodeService) DeactivateExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.GiftCode.DeactivateExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("停用过期礼品码失败: %w", err)
	}
	if count > 0 {
		s.logger.Info("已停用过期礼品码", zap.Int64("count", count))
	}
	return count, nil
}
