package repository

import (
	"context"
	"errors"

	"rewardsystem/internal/model"

	"gorm.io/gorm"
)

var ErrTransactionNotFound = errors.New("流水记录不存在")

// LedgerRepository 账户流水数据访问接口
// 流水只追加，不提供修改和删除
type LedgerRepository interface {
	Create(ctx context.Context, trans *model.AccountTransaction) error
	GetByTransactionNo(ctx context.Context, transactionNo string) (*model.AccountTransaction, error)
	ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.AccountTransaction, int64, error)
	// SumByUserAndType 按类型汇总某用户的流水金额
	SumByUserAndType(ctx context.Context, userID int64, transType string) (int64, error)
}

type ledgerRepo struct {
	db *gorm.DB
}

func NewLedgerRepo(db *gorm.DB) LedgerRepository {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) Create(ctx context.Context, trans *model.AccountTransaction) error {
	return r.db.WithContext(ctx).Create(trans).Error
}

func (r *ledgerRepo) GetByTransactionNo(ctx context.Context, transactionNo string) (*model.AccountTransaction, error) {
	var trans model.AccountTransaction
	err := r.db.WithContext(ctx).Where("transaction_no = ?", transactionNo).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

func (r *ledgerRepo) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.AccountTransaction, int64, error) {
	var transactions []*model.AccountTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.AccountTransaction{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}

func (r *ledgerRepo) SumByUserAndType(ctx context.Context, userID int64, transType string) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&model.AccountTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND type = ?", userID, transType).
		Scan(&sum).Error
	return sum, err
}
