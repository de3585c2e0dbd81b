package model

import (
	"time"
)

const (
	WithdrawalStatusPending  = "PENDING"
	WithdrawalStatusApproved = "APPROVED"
	WithdrawalStatusRejected = "REJECTED"
)

var withdrawalStatusTransitions = map[string][]string{
	WithdrawalStatusPending: {WithdrawalStatusApproved, WithdrawalStatusRejected},
}

func WithdrawalCanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := withdrawalStatusTransitions[currentStatus]
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

// WithdrawalRequest 提现申请表
// 审核通过时才扣款，余额保护由扣款的条件更新保证
type WithdrawalRequest struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionID string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_id"`
	UserID        int64      `gorm:"index;not null" json:"user_id"`
	Amount        int64      `gorm:"not null" json:"amount"` // 金额（分）
	Status        string     `gorm:"type:varchar(20);index;not null" json:"status"`
	AdminNotes    string     `gorm:"type:varchar(256)" json:"admin_notes"`
	ProcessedAt   *time.Time `json:"processed_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_request"
}
