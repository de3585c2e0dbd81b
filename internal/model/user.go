package model

import (
	"time"
)

// User 用户账户表
// 记录用户的钱包余额与推荐统计，是整个奖励系统的核心数据
// 金额单位统一为分（int64），避免浮点误差
type User struct {
	ID                        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PhoneNumber               string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"phone_number"`
	ReferralCode              string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"referral_code"` // 本人的推荐码，注册时生成
	ReferredBy                *int64    `gorm:"index" json:"referred_by"`                                   // 推荐人ID，只允许设置一次
	WalletBalance             int64     `gorm:"not null;default:0" json:"wallet_balance"`                   // 可用余额（分）
	TotalReferrals            int       `gorm:"not null;default:0" json:"total_referrals"`                  // 已接受的推荐数
	ReferralEarnings          int64     `gorm:"not null;default:0" json:"referral_earnings"`                // 累计推荐奖励（分）
	TotalDailyIncomeCollected int64     `gorm:"not null;default:0" json:"total_daily_income_collected"`     // 累计已领取的每日收益（分）
	CreatedAt                 time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                 time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}
