package model

import (
	"time"
)

const (
	ReferralStatusPending  = "PENDING"
	ReferralStatusAccepted = "ACCEPTED"
	ReferralStatusRejected = "REJECTED"
	ReferralStatusExpired  = "EXPIRED"
)

// ValidStatusTransitions 推荐状态机
// PENDING 是唯一的非终态，三个终态之间不允许互相转换
var ValidStatusTransitions = map[string][]string{
	ReferralStatusPending: {ReferralStatusAccepted, ReferralStatusRejected, ReferralStatusExpired},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// ReferralAcceptance 推荐关系表
// 唯一键 (referred_user_id, referrer_id) 保证同一对用户只有一条记录
type ReferralAcceptance struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferredUserID int64      `gorm:"uniqueIndex:uk_referred_referrer;not null" json:"referred_user_id"`
	ReferrerID     int64      `gorm:"uniqueIndex:uk_referred_referrer;index;not null" json:"referrer_id"`
	ReferralCode   string     `gorm:"type:varchar(20);not null" json:"referral_code"` // 建立关系时使用的推荐码
	Status         string     `gorm:"type:varchar(20);index;not null" json:"status"`
	ProcessedAt    *time.Time `json:"processed_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ReferralAcceptance) TableName() string {
	return "referral_acceptance"
}

// ReferralInvitation 已生效的推荐关系（冗余表，仅用于查询报表）
type ReferralInvitation struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferrerID     int64     `gorm:"uniqueIndex:uk_referrer_referred;index;not null" json:"referrer_id"`
	ReferredUserID int64     `gorm:"uniqueIndex:uk_referrer_referred;not null" json:"referred_user_id"`
	ReferralCode   string    `gorm:"type:varchar(20);not null" json:"referral_code"`
	Status         string    `gorm:"type:varchar(20);not null;default:ACTIVE" json:"status"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ReferralInvitation) TableName() string {
	return "referral_invitation"
}

// ReferralBonus 首充奖励发放凭证表
// 唯一键是幂等的核心：同一对 (referrer_id, referred_user_id) 最多发放一次
type ReferralBonus struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferrerID     int64     `gorm:"uniqueIndex:uk_bonus_pair;index;not null" json:"referrer_id"`
	ReferredUserID int64     `gorm:"uniqueIndex:uk_bonus_pair;not null" json:"referred_user_id"`
	BonusAmount    int64     `gorm:"not null" json:"bonus_amount"`   // 奖励金额（分）
	DepositAmount  int64     `gorm:"not null" json:"deposit_amount"` // 触发奖励的存款金额（分）
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ReferralBonus) TableName() string {
	return "referral_bonus"
}
