package repository

import (
	"context"
	"errors"

	"rewardsystem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrBalanceNotEnough   = errors.New("余额不足")
	ErrDuplicatePhone     = errors.New("手机号已注册")
	ErrReferrerAlreadySet = errors.New("推荐人已设置")
)

// UserRepository 用户与钱包数据访问接口
//
// Credit / Debit 等资金方法都是单条条件 UPDATE，通过 RowsAffected 判定结果，
// 必须在事务内且持有用户锁的前提下调用。
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, userID int64) (*model.User, error)
	GetByIDForUpdate(ctx context.Context, userID int64) (*model.User, error)
	GetByReferralCode(ctx context.Context, code string) (*model.User, error)
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	// Credit 入账
	Credit(ctx context.Context, userID int64, amount int64) error
	// Debit 扣款，余额不足返回 ErrBalanceNotEnough
	Debit(ctx context.Context, userID int64, amount int64) error
	// SetReferredBy 设置推荐人，只在 referred_by 为空时生效
	SetReferredBy(ctx context.Context, userID, referrerID int64) error
	// IncrTotalReferrals 推荐计数 +1，仅在 PENDING->ACCEPTED 转换成功后调用
	IncrTotalReferrals(ctx context.Context, referrerID int64) error
	// AddReferralEarnings 入账并累加推荐收益（单条 UPDATE 保证一致）
	AddReferralEarnings(ctx context.Context, userID int64, amount int64) error
	// AddDailyIncomeCollected 入账并累加已领取的每日收益
	AddDailyIncomeCollected(ctx context.Context, userID int64, amount int64) error
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicatePhone
	}
	return err
}

func (r *userRepo) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByIDForUpdate(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByReferralCode(ctx context.Context, code string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("phone_number = ?", phone).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Credit(ctx context.Context, userID int64, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("wallet_balance", gorm.Expr("wallet_balance + ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepo) Debit(ctx context.Context, userID int64, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND wallet_balance >= ?", userID, amount).
		UpdateColumn("wallet_balance", gorm.Expr("wallet_balance - ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		// 区分余额不足与用户不存在
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
		return ErrBalanceNotEnough
	}

	return nil
}

func (r *userRepo) SetReferredBy(ctx context.Context, userID, referrerID int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND referred_by IS NULL", userID).
		Update("referred_by", referrerID)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
		return ErrReferrerAlreadySet
	}
	return nil
}

func (r *userRepo) IncrTotalReferrals(ctx context.Context, referrerID int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", referrerID).
		UpdateColumn("total_referrals", gorm.Expr("total_referrals + 1"))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepo) AddReferralEarnings(ctx context.Context, userID int64, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"wallet_balance":    gorm.Expr("wallet_balance + ?", amount),
			"referral_earnings": gorm.Expr("referral_earnings + ?", amount),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepo) AddDailyIncomeCollected(ctx context.Context, userID int64, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"wallet_balance":               gorm.Expr("wallet_balance + ?", amount),
			"total_daily_income_collected": gorm.Expr("total_daily_income_collected + ?", amount),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
