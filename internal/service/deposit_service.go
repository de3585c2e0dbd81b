package service

import (
	"context"
	"fmt"

	"rewardsystem/internal/config"
	"rewardsystem/internal/infrastructure/lock"
	"rewardsystem/internal/model"
	"rewardsystem/internal/repository"
	"rewardsystem/pkg/idgen"

	"go.uber.org/zap"
)

// DepositService 存款申请生命周期
//
// 状态机：PENDING -> APPROVED / REJECTED。审核通过时在一个事务内
// 完成状态转换、入账和流水，提交后再触发首充奖励（奖励失败不影响入账）。
type DepositService struct {
	repo         *repository.Repository
	bonusService *BonusService
	guard        lock.UserGuard
	cfg          *config.Config
	logger       *zap.Logger
}

func NewDepositService(repo *repository.Repository, bonusService *BonusService, guard lock.UserGuard, cfg *config.Config, logger *zap.Logger) *DepositService {
	return &DepositService{
		repo:         repo,
		bonusService: bonusService,
		guard:        guard,
		cfg:          cfg,
		logger:       logger,
	}
}

// Create 提交存款申请
func (s *DepositService) Create(ctx context.Context, userID int64, amount int64) (*model.DepositRequest, error) {
	if amount <= 0 {
		return nil, ErrDepositAmountInvalid
	}

	if _, err := s.repo.User.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	deposit := &model.DepositRequest{
		TransactionID: idgen.GenerateDepositNo(),
		UserID:        userID,
		Amount:        amount,
		Status:        model.DepositStatusPending,
	}
	if err := s.repo.Deposit.Create(ctx, deposit); err != nil {
		return nil, fmt.Errorf("创建存款申请失败: %w", err)
	}

	s.logger.Info("创建存款申请",
		zap.Int64("user_id", userID),
		zap.String("transaction_id", deposit.TransactionID),
		zap.Int64("amount", amount))
	return deposit, nil
}

// Approve 审核通过并入账
func (s *DepositService) Approve(ctx context.Context, depositID int64, adminNotes string) error {
	deposit, err := s.repo.Deposit.GetByID(ctx, depositID)
	if err != nil {
		return err
	}

	release, err := s.guard.Acquire(ctx, deposit.UserID)
	if err != nil {
		return err
	}
	defer release()

	err = s.repo.InTransaction(ctx, func(tx *repository.Repository) error {
		locked, err := tx.Deposit.GetByIDForUpdate(ctx, depositID)
		if err != nil {
			return err
		}
		if locked.Status != model.DepositStatusPending {
			return ErrDepositNotPending
		}

		flipped, err := tx.Deposit.UpdateStatus(ctx, depositID, model.DepositStatusPending, model.DepositStatusApproved, adminNotes)
		if err != nil {
			return fmt.Errorf("更新存款状态失败: %w", err)
		}
		if !flipped {
			return ErrDepositNotPending
		}

		user, err := tx.User.GetByIDForUpdate(ctx, locked.UserID)
		if err != nil {
			return fmt.Errorf("查询用户失败: %w", err)
		}

		if err := tx.User.Credit(ctx, locked.UserID, locked.Amount); err != nil {
			return fmt.Errorf("入账失败: %w", err)
		}

		transactionNo := idgen.GenerateTransactionNo()
		if err := tx.Ledger.Create(ctx, &model.AccountTransaction{
			TransactionNo: transactionNo,
			UserID:        locked.UserID,
			ReferenceNo:   locked.TransactionID,
			Amount:        locked.Amount,
			Type:          model.TransactionTypeDeposit,
			BalanceBefore: user.WalletBalance,
			BalanceAfter:  user.WalletBalance + locked.Amount,
			Remark:        fmt.Sprintf("存款入账-%s", locked.TransactionID),
		}); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		if err := tx.Outbox.Create(ctx, newOutboxMessage(
			s.cfg.Kafka.Topic.DepositEvent,
			model.EventTypeDepositApproved,
			locked.TransactionID,
			map[string]interface{}{
				"user_id":        locked.UserID,
				"transaction_id": locked.TransactionID,
				"amount":         locked.Amount,
			},
		)); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("存款已入账",
		zap.Int64("deposit_id", depositID),
		zap.Int64("user_id", deposit.UserID),
		zap.Int64("amount", deposit.Amount))

	// 首充奖励在入账事务提交后处理，失败只记日志，不回滚存款
	if result, err := s.bonusService.ProcessFirstDepositBonus(ctx, deposit.UserID, deposit.Amount); err != nil {
		s.logger.Error("处理首充奖励失败",
			zap.Int64("user_id", deposit.UserID),
			zap.Error(err))
	} else if !result.Credited {
		s.logger.Info("首充奖励未发放",
			zap.Int64("user_id", deposit.UserID),
			zap.String("reason", result.Reason))
	}

	return nil
}

// Reject 审核拒绝
func (s *DepositService) Reject(ctx context.Context, depositID int64, adminNotes string) error {
	flipped, err := s.repo.Deposit.UpdateStatus(ctx, depositID, model.DepositStatusPending, model.DepositStatusRejected, adminNotes)
	if err != nil {
		return fmt.Errorf("更新存款状态失败: %w", err)
	}
	if !flipped {
		if _, getErr := s.repo.Deposit.GetByID(ctx, depositID); getErr != nil {
			return getErr
		}
		return ErrDepositNotPending
	}

	s.logger.Info("存款申请已拒绝", zap.Int64("deposit_id", depositID))
	return nil
}

// ListByUser 查询用户的存款申请
func (s *DepositService) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]*model.DepositRequest, int64, error) {
	return s.repo.Deposit.ListByUser(ctx, userID, page, pageSize)
}
