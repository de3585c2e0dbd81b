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

// WithdrawalService 提现申请生命周期
//
// 状态机：PENDING -> APPROVED / REJECTED。申请时只做余额预检，实际扣款
// 发生在审核通过的事务内，`balance >= ?` 的条件更新防止余额透支。
type WithdrawalService struct {
	repo   *repository.Repository
	guard  lock.UserGuard
	cfg    *config.Config
	logger *zap.Logger
}

func NewWithdrawalService(repo *repository.Repository, guard lock.UserGuard, cfg *config.Config, logger *zap.Logger) *WithdrawalService {
	return &WithdrawalService{repo: repo, guard: guard, cfg: cfg, logger: logger}
}

// Create 提交提现申请
// 余额预检只为尽早失败，审核通过前余额可能变化，扣款时会再次校验
func (s *WithdrawalService) Create(ctx context.Context, userID int64, amount int64) (*model.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, ErrWithdrawalAmountInvalid
	}

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.WalletBalance < amount {
		return nil, repository.ErrBalanceNotEnough
	}

	withdrawal := &model.WithdrawalRequest{
		TransactionID: idgen.GenerateWithdrawalNo(),
		UserID:        userID,
		Amount:        amount,
		Status:        model.WithdrawalStatusPending,
	}
	if err := s.repo.Withdrawal.Create(ctx, withdrawal); err != nil {
		return nil, fmt.Errorf("创建提现申请失败: %w", err)
	}

	s.logger.Info("创建提现申请",
		zap.Int64("user_id", userID),
		zap.String("transaction_id", withdrawal.TransactionID),
		zap.Int64("amount", amount))
	return withdrawal, nil
}

// Approve 审核通过并扣款
func (s *WithdrawalService) Approve(ctx context.Context, withdrawalID int64, adminNotes string) error {
	withdrawal, err := s.repo.Withdrawal.GetByID(ctx, withdrawalID)
	if err != nil {
		return err
	}

	release, err := s.guard.Acquire(ctx, withdrawal.UserID)
	if err != nil {
		return err
	}
	defer release()

	err = s.repo.InTransaction(ctx, func(tx *repository.Repository) error {
		locked, err := tx.Withdrawal.GetByIDForUpdate(ctx, withdrawalID)
		if err != nil {
			return err
		}
		if locked.Status != model.WithdrawalStatusPending {
			return ErrWithdrawalNotPending
		}

		user, err := tx.User.GetByIDForUpdate(ctx, locked.UserID)
		if err != nil {
			return fmt.Errorf("查询用户失败: %w", err)
		}

		// 扣款在状态转换前，余额不足时整个审核回滚、申请保持 PENDING
		if err := tx.User.Debit(ctx, locked.UserID, locked.Amount); err != nil {
			return err
		}

		flipped, err := tx.Withdrawal.UpdateStatus(ctx, withdrawalID, model.WithdrawalStatusPending, model.WithdrawalStatusApproved, adminNotes)
		if err != nil {
			return fmt.Errorf("更新提现状态失败: %w", err)
		}
		if !flipped {
			return ErrWithdrawalNotPending
		}

		transactionNo := idgen.GenerateTransactionNo()
		if err := tx.Ledger.Create(ctx, &model.AccountTransaction{
			TransactionNo: transactionNo,
			UserID:        locked.UserID,
			ReferenceNo:   locked.TransactionID,
			Amount:        -locked.Amount,
			Type:          model.TransactionTypeWithdrawal,
			BalanceBefore: user.WalletBalance,
			BalanceAfter:  user.WalletBalance - locked.Amount,
			Remark:        fmt.Sprintf("提现出账-%s", locked.TransactionID),
		}); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		if err := tx.Outbox.Create(ctx, newOutboxMessage(
			s.cfg.Kafka.Topic.WithdrawalEvent,
			model.EventTypeWithdrawalApproved,
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

	s.logger.Info("提现已出账",
		zap.Int64("withdrawal_id", withdrawalID),
		zap.Int64("user_id", withdrawal.UserID),
		zap.Int64("amount", withdrawal.Amount))
	return nil
}

// Reject 审核拒绝
func (s *WithdrawalService) Reject(ctx context.Context, withdrawalID int64, adminNotes string) error {
	flipped, err := s.repo.Withdrawal.UpdateStatus(ctx, withdrawalID, model.WithdrawalStatusPending, model.WithdrawalStatusRejected, adminNotes)
	if err != nil {
		return fmt.Errorf("更新提现状态失败: %w", err)
	}
	if !flipped {
		if _, getErr := s.repo.Withdrawal.GetByID(ctx, withdrawalID); getErr != nil {
			return getErr
		}
		return ErrWithdrawalNotPending
	}

	s.logger.Info("提现申请已拒绝", zap.Int64("withdrawal_id", withdrawalID))
	return nil
}

// ListByUser 查询用户的提现申请
func (s *WithdrawalService) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]*model.WithdrawalRequest, int64, error) {
	return s.repo.Withdrawal.ListByUser(ctx, userID, page, pageSize)
}
