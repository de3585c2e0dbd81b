package model

import (
	"time"
)

const (
	DepositStatusPending  = "PENDING"
	DepositStatusApproved = "APPROVED"
	DepositStatusRejected = "REJECTED"
)

var depositStatusTransitions = map[string][]string{
	DepositStatusPending: {DepositStatusApproved, DepositStatusRejected},
}

func DepositCanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := depositStatusTransitions[currentStatus]
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

// DepositRequest 存款申请表
// 由管理员审核后入账，transaction_id 全局唯一
type DepositRequest struct {
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

func (DepositRequest) TableName() string {
	return "deposit_request"
}
