package model

import (
	"time"
)

// GiftCode 礼品码表
// code 为 8 位大写字母与数字的组合
type GiftCode struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string    `gorm:"type:varchar(8);uniqueIndex;not null" json:"code"`
	Amount      int64     `gorm:"not null" json:"amount"` // 每次兑换金额（分）
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`
	MaxUses     int       `gorm:"not null;default:1000" json:"max_uses"`
	CurrentUses int       `gorm:"not null;default:0" json:"current_uses"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedBy   int64     `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (GiftCode) TableName() string {
	return "gift_code"
}

// GiftCodeRedemption 兑换凭证表
// 唯一键 (user_id, gift_code_id)：每个用户对每个码最多兑换一次
type GiftCodeRedemption struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"uniqueIndex:uk_user_code;index;not null" json:"user_id"`
	GiftCodeID int64     `gorm:"uniqueIndex:uk_user_code;not null" json:"gift_code_id"`
	Amount     int64     `gorm:"not null" json:"amount"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (GiftCodeRedemption) TableName() string {
	return "gift_code_redemption"
}
