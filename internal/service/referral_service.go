package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rewardsystem/internal/config"
	"rewardsystem/internal/infrastructure/lock"
	"rewardsystem/internal/model"
	"rewardsystem/internal/repository"

	"go.uber.org/zap"
)

// ReferralService 推荐关系生命周期
//
// 状态机：PENDING -> ACCEPTED / REJECTED / EXPIRED，三个终态均不可再变。
// Accept 是资金相关路径（后续触发首充奖励），必须持有被推荐用户的锁。
type ReferralService struct {
	repo     *repository.Repository
	registry *ReferralRegistry
	guard    lock.UserGuard
	cfg      *config.Config
	logger   *zap.Logger
}

func NewReferralService(repo *repository.Repository, guard lock.UserGuard, cfg *config.Config, logger *zap.Logger) *ReferralService {
	return &ReferralService{
		repo:     repo,
		registry: NewReferralRegistry(repo, logger),
		guard:    guard,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreatePending 用推荐码创建待处理的推荐关系
//
// 一个用户最多只有一条 PENDING 或 ACCEPTED 的推荐关系，检查与插入在
// 同一事务内完成；唯一键 (referred_user_id, referrer_id) 兜底同对并发。
func (s *ReferralService) CreatePending(ctx context.Context, userID int64, code string) error {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.ReferredBy != nil {
		return ErrReferralAlreadyExists
	}

	referrer, err := s.registry.ResolveReferrer(ctx, userID, code)
	if err != nil {
		return err
	}

	// 防刷检查：总量上限与当日上限
	acceptedCount, err := s.repo.Referral.CountAcceptedByReferrer(ctx, referrer.ID)
	if err != nil {
		return fmt.Errorf("统计推荐数失败: %w", err)
	}
	if acceptedCount >= int64(s.cfg.Business.MaxReferralsPerUser) {
		return ErrReferrerLimitReached
	}

	todayCount, err := s.repo.Referral.CountCreatedSince(ctx, referrer.ID, startOfToday())
	if err != nil {
		return fmt.Errorf("统计当日推荐数失败: %w", err)
	}
	if todayCount >= int64(s.cfg.Business.MaxDailyReferrals) {
		return ErrDailyReferralLimit
	}

	err = s.repo.InTransaction(ctx, func(tx *repository.Repository) error {
		// 已有未终结/已生效的关系时拒绝，不允许第二个推荐人竞争
		exists, err := tx.Referral.HasPendingOrAccepted(ctx, userID)
		if err != nil {
			return fmt.Errorf("查询推荐关系失败: %w", err)
		}
		if exists {
			return ErrReferralAlreadyExists
		}

		created, err := tx.Referral.CreatePendingIgnoreConflict(ctx, &model.ReferralAcceptance{
			ReferredUserID: userID,
			ReferrerID:     referrer.ID,
			ReferralCode:   code,
			Status:         model.ReferralStatusPending,
		})
		if err != nil {
			return fmt.Errorf("创建推荐记录失败: %w", err)
		}
		if !created {
			return ErrReferralAlreadyExists
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("创建推荐关系",
		zap.Int64("referred_user_id", userID),
		zap.Int64("referrer_id", referrer.ID))
	return nil
}

// Accept 接受推荐
//
// 持有用户锁后在一个事务内完成：行锁读取 PENDING 记录 -> 过期检查 ->
// 条件状态转换 -> 设置推荐人 -> 推荐计数 +1 -> 写入生效关系。
// 过期的记录会被标记为 EXPIRED（该标记需要落库，所以单独提交后再返回错误）。
func (s *ReferralService) Accept(ctx context.Context, userID int64) error {
	release, err := s.guard.Acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	var expired bool
	err = s.repo.InTransaction(ctx, func(tx *repository.Repository) error {
		referral, err := tx.Referral.GetPendingForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrReferralNotFound) {
				// 区分"没有记录"与"已处理过"
				if _, getErr := tx.Referral.GetByReferredUser(ctx, userID); getErr == nil {
					return ErrReferralNotPending
				}
				return repository.ErrReferralNotFound
			}
			return fmt.Errorf("查询推荐记录失败: %w", err)
		}

		if s.isExpired(referral) {
			if _, err := tx.Referral.UpdateStatus(ctx, referral.ID, model.ReferralStatusPending, model.ReferralStatusExpired); err != nil {
				return fmt.Errorf("标记推荐过期失败: %w", err)
			}
			expired = true
			return nil
		}

		// 接受时再次校验推荐人上限，窗口期内可能已被别人占满
		acceptedCount, err := tx.Referral.CountAcceptedByReferrer(ctx, referral.ReferrerID)
		if err != nil {
			return fmt.Errorf("统计推荐数失败: %w", err)
		}
		if acceptedCount >= int64(s.cfg.Business.MaxReferralsPerUser) {
			return ErrReferrerLimitReached
		}

		flipped, err := tx.Referral.UpdateStatus(ctx, referral.ID, model.ReferralStatusPending, model.ReferralStatusAccepted)
		if err != nil {
			return fmt.Errorf("更新推荐状态失败: %w", err)
		}
		if !flipped {
			return ErrReferralNotPending
		}

		if err := tx.User.SetReferredBy(ctx, userID, referral.ReferrerID); err != nil {
			if errors.Is(err, repository.ErrReferrerAlreadySet) {
				// 已设置为同一推荐人时视为幂等，否则数据异常
				user, getErr := tx.User.GetByID(ctx, userID)
				if getErr != nil {
					return getErr
				}
				if user.ReferredBy == nil || *user.ReferredBy != referral.ReferrerID {
					return fmt.Errorf("推荐人不一致: %w", err)
				}
			} else {
				return fmt.Errorf("设置推荐人失败: %w", err)
			}
		}

		if err := tx.User.IncrTotalReferrals(ctx, referral.ReferrerID); err != nil {
			return fmt.Errorf("更新推荐计数失败: %w", err)
		}

		if err := tx.Referral.CreateInvitationIgnoreConflict(ctx, &model.ReferralInvitation{
			ReferrerID:     referral.ReferrerID,
			ReferredUserID: userID,
			ReferralCode:   referral.ReferralCode,
			Status:         "ACTIVE",
		}); err != nil {
			return fmt.Errorf("写入推荐关系失败: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}
	if expired {
		return ErrReferralExpired
	}

	s.logger.Info("推荐已接受", zap.Int64("referred_user_id", userID))
	return nil
}

// AcceptAutomatically 创建并立即接受推荐（注册即生效的场景）
// 校验与两步路径完全一致，计数、推荐人设置等副作用都走 Accept
func (s *ReferralService) AcceptAutomatically(ctx context.Context, userID int64, code string) error {
	if err := s.CreatePending(ctx, userID, code); err != nil {
		return err
	}
	return s.Accept(ctx, userID)
}

// Reject 拒绝推荐，重复拒绝视为成功
func (s *ReferralService) Reject(ctx context.Context, userID int64) error {
	release, err := s.guard.Acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	return s.repo.InTransaction(ctx, func(tx *repository.Repository) error {
		referral, err := tx.Referral.GetByReferredUser(ctx, userID)
		if err != nil {
			return err
		}

		if referral.Status == model.ReferralStatusRejected {
			return nil
		}
		if referral.Status != model.ReferralStatusPending {
			return ErrReferralNotPending
		}

		flipped, err := tx.Referral.UpdateStatus(ctx, referral.ID, model.ReferralStatusPending, model.ReferralStatusRejected)
		if err != nil {
			return fmt.Errorf("更新推荐状态失败: %w", err)
		}
		if !flipped {
			return ErrReferralNotPending
		}

		s.logger.Info("推荐已拒绝", zap.Int64("referred_user_id", userID))
		return nil
	})
}

// ListReferrals 查询推荐人名下的推荐记录
func (s *ReferralService) ListReferrals(ctx context.Context, referrerID int64, page, pageSize int) ([]*model.ReferralAcceptance, int64, error) {
	return s.repo.Referral.ListByReferrer(ctx, referrerID, page, pageSize)
}

func (s *ReferralService) isExpired(referral *model.ReferralAcceptance) bool {
	window := time.Duration(s.cfg.Business.ReferralExpiryHours) * time.Hour
	return time.Since(referral.CreatedAt) > window
}

func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
