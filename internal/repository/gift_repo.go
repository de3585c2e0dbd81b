package repository

import (
	"context"
	"errors"
	"time"

	"rewardsystem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrGiftNotFound = errors.New("礼物不存在")

// GiftRepository 每日收益礼物数据访问接口
type GiftRepository interface {
	// CreateIgnoreConflict 写入当日礼物，(user_id, gift_date, source) 已存在时返回 false
	CreateIgnoreConflict(ctx context.Context, gift *model.DailyGift) (bool, error)
	GetByID(ctx context.Context, giftID int64) (*model.DailyGift, error)
	// MarkCollected 条件置位 is_collected，返回是否由本次调用完成领取
	MarkCollected(ctx context.Context, giftID, userID int64) (bool, error)
	ListUncollected(ctx context.Context, userID int64) ([]*model.DailyGift, error)
	SumUncollected(ctx context.Context, userID int64) (int64, error)
}

type giftRepo struct {
	db *gorm.DB
}

func NewGiftRepo(db *gorm.DB) GiftRepository {
	return &giftRepo{db: db}
}

func (r *giftRepo) CreateIgnoreConflict(ctx context.Context, gift *model.DailyGift) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "gift_date"}, {Name: "source"}},
			DoNothing: true,
		}).
		Create(gift)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *giftRepo) GetByID(ctx context.Context, giftID int64) (*model.DailyGift, error) {
	var gift model.DailyGift
	err := r.db.WithContext(ctx).Where("id = ?", giftID).First(&gift).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGiftNotFound
		}
		return nil, err
	}
	return &gift, nil
}

func (r *giftRepo) MarkCollected(ctx context.Context, giftID, userID int64) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.DailyGift{}).
		Where("id = ? AND user_id = ? AND is_collected = ?", giftID, userID, false).
		Updates(map[string]interface{}{
			"is_collected": true,
			"collected_at": &now,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *giftRepo) ListUncollected(ctx context.Context, userID int64) ([]*model.DailyGift, error) {
	var gifts []*model.DailyGift
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_collected = ?", userID, false).
		Order("gift_date DESC").
		Find(&gifts).Error
	return gifts, err
}

func (r *giftRepo) SumUncollected(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&model.DailyGift{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND is_collected = ?", userID, false).
		Scan(&sum).Error
	return sum, err
}
