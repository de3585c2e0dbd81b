package model

import (
	"time"
)

const (
	TransactionTypeDeposit       = "DEPOSIT"        // 存款入账
	TransactionTypeWithdrawal    = "WITHDRAWAL"     // 提现出账
	TransactionTypeInvestment    = "INVESTMENT"     // 购买投资产品（扣款）
	TransactionTypeReferralBonus = "REFERRAL_BONUS" // 首充推荐奖励
	TransactionTypeDailyIncome   = "DAILY_INCOME"   // 每日收益领取
	TransactionTypeGiftCode      = "GIFT_CODE"      // 礼品码兑换
)

// AccountTransaction 账户流水表
// 记录账户的每一笔资金变动，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 每笔流水必须关联业务单号 —— 便于对账
// 3. 记录交易前后余额 —— 便于校验余额一致性
type AccountTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"` // 流水号（全局唯一）
	UserID        int64     `gorm:"index;not null" json:"user_id"`                               // 用户ID
	ReferenceNo   string    `gorm:"type:varchar(64);index;not null" json:"reference_no"`         // 关联业务单号（存款单号/礼物ID/礼品码等）
	Amount        int64     `gorm:"not null" json:"amount"`                                      // 金额（正数入账，负数出账）
	Type          string    `gorm:"type:varchar(20);not null" json:"type"`                       // 交易类型
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`                              // 交易前余额
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`                               // 交易后余额
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`                             // 备注
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AccountTransaction) TableName() string {
	return "account_transaction"
}
