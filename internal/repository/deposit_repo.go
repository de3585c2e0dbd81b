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
	ErrDepositNotFound      = errors.New("存款申请不存在")
	ErrDepositStatusInvalid = errors.New("存款状态不合法")
)

// DepositRepository 存款申请数据访问接口
type DepositRepository interface {
	Create(ctx context.Context, deposit *model.DepositRequest) error
	GetByID(ctx context.Context, id int64) (*model.DepositRequest, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.DepositRequest, error)
	// UpdateStatus 条件状态转换，返回是否转换成功
	UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus, adminNotes string) (bool, error)
	CountApprovedByUser(ctx context.Context, userID int64) (int64, error)
	ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]*model.DepositRequest, int64, error)
}

type depositRepo struct {
	db *gorm.DB
}

func NewDepositRepo(db *gorm.DB) DepositRepository {
	return &depositRepo{db: db}
}

func (r *depositRepo) Create(ctx context.Context, deposit *model.DepositRequest) error {
	return r.db.WithContext(ctx).Create(deposit).Error
}

func (r *depositRepo) GetByID(ctx context.Context, id int64) (*model.DepositRequest, error) {
	var deposit model.DepositRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&deposit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepositNotFound
		}
		return nil, err
	}
	return &deposit, nil
}

func (r *depositRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.DepositRequest, error) {
	var deposit model.DepositRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&deposit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepositNotFound
		}
		return nil, err
	}
	return &deposit, nil
}

func (r *depositRepo) UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus, adminNotes string) (bool, error) {
	if !model.DepositCanTransitionTo(fromStatus, toStatus) {
		return false, ErrDepositStatusInvalid
	}

	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.DepositRequest{}).
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

func (r *depositRepo) CountApprovedByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.DepositRequest{}).
		Where("user_id = ? AND status = ?", userID, model.DepositStatusApproved).
		Count(&count).Error
	return count, err
}

func (r *depositRepo) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]*model.DepositRequest, int64, error) {
	var deposits []*model.DepositRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&model.DepositRequest{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&deposits).Error

	return deposits, total, err
}
