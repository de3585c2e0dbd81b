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

// InvestmentService 投资产品购买
type InvestmentService struct {
	repo   *repository.Repository
	guard  lock.UserGuard
	cfg    *config.Config
	logger *zap.Logger
}

func NewInvestmentService(repo *repository.Repository, guard lock.UserGuard, cfg *config.Config, logger *zap.Logger) *InvestmentService {
	return &InvestmentService{repo: repo, guard: guard, cfg: cfg, logger: logger}
}

// Purchase 购买投资产品
// 日收益在下单时按产品参数计算后固定：price * daily_return_bp / 10000
func (s *InvestmentService) Purchase(ctx context.Context, userID, productID int64) (*model.UserInvestment, error) {
	product, err := s.repo.Investment.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}

	release, err := s.guard.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := time.Now()
	investment := &model.UserInvestment{
		UserID:      userID,
		ProductID:   productID,
		Amount:      product.Price,
		DailyReturn: product.Price * product.DailyReturnBP / 10000,
		Status:      model.InvestmentStatusActive,
		StartDate:   now,
		EndDate:     now.AddDate(0, 0, product.DurationDays),
	}

	err = s.repo.InTransaction(ctx, func(tx *repository.Repository) error {
		user, err := tx.User.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		if err := tx.User.Debit(ctx, userID, product.Price); err != nil {
			return err
		}

		if err := tx.Investment.CreateInvestment(ctx, investment); err != nil {
			return fmt.Errorf("创建持仓失败: %w", err)
		}

		transactionNo := idgen.GenerateTransactionNo()
		if err := tx.Ledger.Create(ctx, &model.AccountTransaction{
			TransactionNo: transactionNo,
			UserID:        userID,
			ReferenceNo:   fmt.Sprintf("INV-%d", investment.ID),
			Amount:        -product.Price,
			Type:          model.TransactionTypeInvestment,
			BalanceBefore: user.WalletBalance,
			BalanceAfter:  user.WalletBalance - product.Price,
			Remark:        fmt.Sprintf("购买投资产品-%s", product.Name),
		}); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		if err := tx.Outbox.Create(ctx, newOutboxMessage(
			s.cfg.Kafka.Topic.RewardEvent,
			model.EventTypeInvestmentMade,
			transactionNo,
			map[string]interface{}{
				"user_id":      userID,
				"product_id":   productID,
				"amount":       product.Price,
				"daily_return": investment.DailyReturn,
			},
		)); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("购买投资产品",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int64("amount", product.Price),
		zap.Int64("daily_return", investment.DailyReturn))
	return investment, nil
}

// ListProducts 查询上架中的产品
func (s *InvestmentService) ListProducts(ctx context.Context) ([]*model.InvestmentProduct, error) {
	return s.repo.Investment.ListActiveProducts(ctx)
}

// ListActiveByUser 查询用户的生效持仓
func (s *InvestmentService) ListActiveByUser(ctx context.Context, userID int64) ([]*model.UserInvestment, error) {
	return s.repo.Investment.ListActiveByUser(ctx, userID)
}
