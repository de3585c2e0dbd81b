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
	ErrWithdrawalNotFound      = errors.New("提现申请不存在")
	ErrWithdrawalStatusInvalid = errors.New("提现状态不合法")
)

// WithdrawalRepository 提现申请数据访问接口
type WithdrawalRepository interface {
	Create(ctx context.Context, withdrawal *model.WithdrawalRequest) error
	GetByID(ctx context.Context, id int64) (*model.WithdrawalRequest, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.WithdrawalRequest, error)
	// UpdateStatus 条件状态转换，返回是否转换成功
	UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus, adminNotes string) (bool, error)
	ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]*model.WithdrawalRequest, int64, error)
}

type withdrawalRepo struct {
	db *gorm.DB
}

func NewWithdrawalRepo(db *gorm.DB) WithdrawalRepository {
	return &withdrawalRepo{db: db}
}

func (r *withdrawalRepo) Create(ctx context.Context, withdrawal *model.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

func (r *withdrawalRepo) GetByID(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	var withdrawal model.WithdrawalRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&withdrawal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}
	return &withdrawal, nil
}

func (r *withdrawalRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	var withdrawal model.WithdrawalRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&withdrawal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}
	return &withdrawal, nil
}

func (r *withdrawalRepo) UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus, adminNotes string) (bool, error) {
	if !model.WithdrawalCanTransitionTo(fromStatus, toStatus) {
		return false, ErrWithdrawalStatusInvalid
	}

	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{
			"status":       toStatus,
			"admin_notes":  adminNotes,
			"processed_at": &now,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *withdrawalRepo) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]*model.WithdrawalRequest, int64, error) {
	var withdrawals []*model.WithdrawalRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&model.WithdrawalRequest{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&withdrawals).Error

	return withdrawals, total, err
}
