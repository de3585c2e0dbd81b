package service

import (
	"context"
	"errors"
	"fmt"

	"rewardsystem/internal/config"
	"rewardsystem/internal/model"
	"rewardsystem/internal/repository"
	"rewardsystem/pkg/idgen"

	"go.uber.org/zap"
)

// 注册时推荐码生成的换码重试次数
const referralCodeGenRetries = 5

// AccountService 用户注册与收益查询
type AccountService struct {
	repo            *repository.Repository
	referralService *ReferralService
	cfg             *config.Config
	logger          *zap.Logger
}

func NewAccountService(repo *repository.Repository, referralService *ReferralService, cfg *config.Config, logger *zap.Logger) *AccountService {
	return &AccountService{
		repo:            repo,
		referralService: referralService,
		cfg:             cfg,
		logger:          logger,
	}
}

// IncomeSummary 收益汇总
type IncomeSummary struct {
	WalletBalance        int64 `json:"wallet_balance"`
	ReferralEarnings     int64 `json:"referral_earnings"`
	DailyIncomeCollected int64 `json:"daily_income_collected"`
	GiftCodeEarnings     int64 `json:"gift_code_earnings"`
	UncollectedIncome    int64 `json:"uncollected_income"`
	TotalDeposited       int64 `json:"total_deposited"`
}

// Register 注册用户并生成唯一推荐码
// referralCode 非空时尝试挂接待处理的推荐关系，失败只记日志不阻断注册
func (s *AccountService) Register(ctx context.Context, phone, referralCode string) (*model.User, error) {
	user := &model.User{PhoneNumber: phone}

	// 随机推荐码可能撞上已有的码，换码重试
	var err error
	for i := 0; i < referralCodeGenRetries; i++ {
		user.ReferralCode = idgen.GenerateReferralCode()
		err = s.repo.User.Create(ctx, user)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicatePhone) {
			// 冲突可能来自手机号，先确认
			if _, getErr := s.repo.User.GetByPhone(ctx, phone); getErr == nil {
				return nil, repository.ErrDuplicatePhone
			}
			continue
		}
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("生成推荐码失败: %w", err)
	}

	s.logger.Info("用户注册成功",
		zap.Int64("user_id", user.ID),
		zap.String("referral_code", user.ReferralCode))

	if referralCode != "" {
		if err := s.referralService.CreatePending(ctx, user.ID, referralCode); err != nil {
			s.logger.Warn("注册时挂接推荐关系失败",
				zap.Int64("user_id", user.ID),
				zap.String("code", referralCode),
				zap.Error(err))
		}
	}

	return user, nil
}

// GetUser 查询用户
func (s *AccountService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.repo.User.GetByID(ctx, userID)
}

// GetIncomeSummary 查询收益汇总
func (s *AccountService) GetIncomeSummary(ctx context.Context, userID int64) (*IncomeSummary, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 礼品码收益从兑换凭证汇总，凭证是兑换的事实来源
	giftCodeEarnings, err := s.repo.GiftCode.SumRedeemedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("汇总礼品码收益失败: %w", err)
	}

	uncollected, err := s.repo.Gift.SumUncollected(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("汇总未领取收益失败: %w", err)
	}

	totalDeposited, err := s.repo.Ledger.SumByUserAndType(ctx, userID, model.TransactionTypeDeposit)
	if err != nil {
		return nil, fmt.Errorf("汇总存款流水失败: %w", err)
	}

	return &IncomeSummary{
		WalletBalance:        user.WalletBalance,
		ReferralEarnings:     user.ReferralEarnings,
		DailyIncomeCollected: user.TotalDailyIncomeCollected,
		GiftCodeEarnings:     giftCodeEarnings,
		UncollectedIncome:    uncollected,
		TotalDeposited:       totalDeposited,
	}, nil
}

// GetTransaction 按流水号查询单条流水
func (s *AccountService) GetTransaction(ctx context.Context, transactionNo string) (*model.AccountTransaction, error) {
	return s.repo.Ledger.GetByTransactionNo(ctx, transactionNo)
}

// ListTransactions 查询账户流水
func (s *AccountService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.AccountTransaction, int64, error) {
	return s.repo.Ledger.ListByUserID(ctx, userID, page, pageSize)
}
