package model

import (
	"time"
)

const (
	GiftSourceInvestmentReturn = "INVESTMENT_RETURN"
)

// DailyGift 每日收益礼物表
// 唯一键 (user_id, gift_date, source) 保证同一用户同一天同一来源最多一条，
// 金额是该用户当日所有生效投资的日收益之和
type DailyGift struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64      `gorm:"uniqueIndex:uk_user_date_source;index;not null" json:"user_id"`
	GiftDate    string     `gorm:"type:date;uniqueIndex:uk_user_date_source;not null" json:"gift_date"` // YYYY-MM-DD
	Source      string     `gorm:"type:varchar(32);uniqueIndex:uk_user_date_source;not null" json:"source"`
	Amount      int64      `gorm:"not null" json:"amount"` // 金额（分）
	IsCollected bool       `gorm:"not null;default:false" json:"is_collected"`
	CollectedAt *time.Time `json:"collected_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DailyGift) TableName() string {
	return "daily_gift"
}
