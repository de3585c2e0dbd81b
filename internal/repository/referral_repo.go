package repository

import (
	"context"
	"errors"
	"time"

	"rewardsystem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrReferralNotFound      = errors.New("推荐记录不存在")
	ErrReferralStatusInvalid = errors.New("推荐状态不合法")
)

// ReferralRepository 推荐关系数据访问接口
type ReferralRepository interface {
	// CreatePendingIgnoreConflict 创建 PENDING 记录，唯一键冲突时返回 false
	CreatePendingIgnoreConflict(ctx context.Context, referral *model.ReferralAcceptance) (bool, error)
	GetByReferredUser(ctx context.Context, referredUserID int64) (*model.ReferralAcceptance, error)
	// HasPendingOrAccepted 用户是否已有未终结或已生效的推荐关系
	HasPendingOrAccepted(ctx context.Context, referredUserID int64) (bool, error)
	// GetPendingForUpdate 加行锁读取 PENDING 记录，必须在事务内调用
	GetPendingForUpdate(ctx context.Context, referredUserID int64) (*model.ReferralAcceptance, error)
	// UpdateStatus 条件状态转换，返回是否转换成功
	UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus string) (bool, error)
	CountAcceptedByReferrer(ctx context.Context, referrerID int64) (int64, error)
	CountCreatedSince(ctx context.Context, referrerID int64, since time.Time) (int64, error)
	CreateInvitationIgnoreConflict(ctx context.Context, invitation *model.ReferralInvitation) error
	// CreateBonusIgnoreConflict 写入奖励凭证，已存在时返回 false
	CreateBonusIgnoreConflict(ctx context.Context, bonus *model.ReferralBonus) (bool, error)
	HasBonus(ctx context.Context, referrerID, referredUserID int64) (bool, error)
	ListByReferrer(ctx context.Context, referrerID int64, page, pageSize int) ([]*model.ReferralAcceptance, int64, error)
}

type referralRepo struct {
	db *gorm.DB
}

func NewReferralRepo(db *gorm.DB) ReferralRepository {
	return &referralRepo{db: db}
}

func (r *referralRepo) CreatePendingIgnoreConflict(ctx context.Context, referral *model.ReferralAcceptance) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "referred_user_id"}, {Name: "referrer_id"}},
			DoNothing: true,
		}).
		Create(referral)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *referralRepo) GetByReferredUser(ctx context.Context, referredUserID int64) (*model.ReferralAcceptance, error) {
	var referral model.ReferralAcceptance
	err := r.db.WithContext(ctx).
		Where("referred_user_id = ?", referredUserID).
		Order("created_at DESC").
		First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReferralNotFound
		}
		return nil, err
	}
	return &referral, nil
}

func (r *referralRepo) HasPendingOrAccepted(ctx context.Context, referredUserID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ReferralAcceptance{}).
		Where("referred_user_id = ? AND status IN ?", referredUserID,
			[]string{model.ReferralStatusPending, model.ReferralStatusAccepted}).
		Count(&count).Error
	return count > 0, err
}

func (r *referralRepo) GetPendingForUpdate(ctx context.Context, referredUserID int64) (*model.ReferralAcceptance, error) {
	var referral model.ReferralAcceptance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("referred_user_id = ? AND status = ?", referredUserID, model.ReferralStatusPending).
		First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReferralNotFound
		}
		return nil, err
	}
	return &referral, nil
}

func (r *referralRepo) UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus string) (bool, error) {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return false, ErrReferralStatusInvalid
	}

	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.ReferralAcceptance{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{
			"status":       toStatus,
			"processed_at": &now,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *referralRepo) CountAcceptedByReferrer(ctx context.Context, referrerID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ReferralAcceptance{}).
		Where("referrer_id = ? AND status = ?", referrerID, model.ReferralStatusAccepted).
		Count(&count).Error
	return count, err
}

func (r *referralRepo) CountCreatedSince(ctx context.Context, referrerID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ReferralAcceptance{}).
		Where("referrer_id = ? AND created_at >= ?", referrerID, since).
		Count(&count).Error
	return count, err
}

func (r *referralRepo) CreateInvitationIgnoreConflict(ctx context.Context, invitation *model.ReferralInvitation) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "referrer_id"}, {Name: "referred_user_id"}},
			DoNothing: true,
		}).
		Create(invitation).Error
}

func (r *referralRepo) CreateBonusIgnoreConflict(ctx context.Context, bonus *model.ReferralBonus) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "referrer_id"}, {Name: "referred_user_id"}},
			DoNothing: true,
		}).
		Create(bonus)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *referralRepo) HasBonus(ctx context.Context, referrerID, referredUserID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ReferralBonus{}).
		Where("referrer_id = ? AND referred_user_id = ?", referrerID, referredUserID).
		Count(&count).Error
	return count > 0, err
}

func (r *referralRepo) ListByReferrer(ctx context.Context, referrerID int64, page, pageSize int) ([]*model.ReferralAcceptance, int64, error) {
	var referrals []*model.ReferralAcceptance
	var total int64

	query := r.db.WithContext(ctx).Model(&model.ReferralAcceptance{}).Where("referrer_id = ?", referrerID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&referrals).Error

	return referrals, total, err
}
