package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"rewardsystem/internal/model"
	"rewardsystem/internal/repository"

	"go.uber.org/zap"
)

// 推荐码：3-20 位大写字母或数字
var referralCodePattern = regexp.MustCompile(`^[A-Z0-9]{3,20}$`)

// ReferralRegistry 推荐码解析
// 只做格式校验、查找推荐人和自荐检查，不加锁不写库
type ReferralRegistry struct {
	repo   *repository.Repository
	logger *zap.Logger
}

func NewReferralRegistry(repo *repository.Repository, logger *zap.Logger) *ReferralRegistry {
	return &ReferralRegistry{repo: repo, logger: logger}
}

// ResolveReferrer 根据推荐码找到推荐人
func (s *ReferralRegistry) ResolveReferrer(ctx context.Context, userID int64, code string) (*model.User, error) {
	if !referralCodePattern.MatchString(code) {
		return nil, ErrReferralCodeInvalid
	}

	referrer, err := s.repo.User.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrReferralCodeNotFound
		}
		return nil, fmt.Errorf("查询推荐码失败: %w", err)
	}

	if referrer.ID == userID {
		s.logger.Warn("用户尝试使用自己的推荐码",
			zap.Int64("user_id", userID),
			zap.String("code", code))
		return nil, ErrSelfReferral
	}

	return referrer, nil
}
