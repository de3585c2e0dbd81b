package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
// 服务层只依赖接口，便于单元测试注入 mock 实现
type Repository struct {
	db *gorm.DB

	User       UserRepository
	Referral   ReferralRepository
	Gift       GiftRepository
	GiftCode   GiftCodeRepository
	Deposit    DepositRepository
	Withdrawal WithdrawalRepository
	Investment InvestmentRepository
	Ledger     LedgerRepository
	Outbox     OutboxRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		User:       NewUserRepo(db),
		Referral:   NewReferralRepo(db),
		Gift:       NewGiftRepo(db),
		GiftCode:   NewGiftCodeRepo(db),
		Deposit:    NewDepositRepo(db),
		Withdrawal: NewWithdrawalRepo(db),
		Investment: NewInvestmentRepo(db),
		Ledger:     NewLedgerRepo(db),
		Outbox:     NewOutboxRepo(db),
	}
}

// InTransaction 在数据库事务中执行 fn，fn 内通过 tx 聚合访问的所有
// Repository 都绑定到同一个事务连接，fn 返回错误时整体回滚。
//
// db 为 nil 时直接执行 fn（单元测试注入 mock 时走该分支）。
func (r *Repository) InTransaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(txDB *gorm.DB) error {
		return fn(NewRepository(txDB))
	})
}
