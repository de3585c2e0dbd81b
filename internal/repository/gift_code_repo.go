package repository

import (
	"context"
	"errors"
	"time"

	"rewardsystem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrGiftCodeNotFound = errors.New("礼品码不存在")

// GiftCodeRepository 礼品码数据访问接口
type GiftCodeRepository interface {
	// CreateIgnoreConflict 创建礼品码，code 已存在时返回 false（调用方换码重试）
	CreateIgnoreConflict(ctx context.Context, code *model.GiftCode) (bool, error)
	GetByCode(ctx context.Context, code string) (*model.GiftCode, error)
	// IncrementUses 条件递增使用次数，码已用尽或已停用时返回 false
	IncrementUses(ctx context.Context, codeID int64) (bool, error)
	// CreateRedemptionIgnoreConflict 写入兑换凭证，该用户已兑换过时返回 false
	CreateRedemptionIgnoreConflict(ctx context.Context, redemption *model.GiftCodeRedemption) (bool, error)
	SumRedeemedByUser(ctx context.Context, userID int64) (int64, error)
	// DeactivateExpired 停用所有已过期的码，返回停用条数
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type giftCodeRepo struct {
	db *gorm.DB
}

func NewGiftCodeRepo(db *gorm.DB) GiftCodeRepository {
	return &giftCodeRepo{db: db}
}

func (r *giftCodeRepo) CreateIgnoreConflict(ctx context.Context, code *model.GiftCode) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).
		Create(code)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *giftCodeRepo) GetByCode(ctx context.Context, code string) (*model.GiftCode, error) {
	var giftCode model.GiftCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&giftCode).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGiftCodeNotFound
		}
		return nil, err
	}
	return &giftCode, nil
}

func (r *giftCodeRepo) IncrementUses(ctx context.Context, codeID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.GiftCode{}).
		Where("id = ? AND is_active = ? AND current_uses < max_uses", codeID, true).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *giftCodeRepo) CreateRedemptionIgnoreConflict(ctx context.Context, redemption *model.GiftCodeRedemption) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "gift_code_id"}},
			DoNothing: true,
		}).
		Create(redemption)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *giftCodeRepo) SumRedeemedByUser(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&model.GiftCodeRedemption{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", userID).
		Scan(&sum).Error
	return sum, err
}

func (r *giftCodeRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.GiftCode{}).
		Where("is_active = ? AND expires_at < ?", true, now).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}
