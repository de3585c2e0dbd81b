package model

import (
	"time"
)

const (
	InvestmentStatusActive    = "ACTIVE"
	InvestmentStatusCompleted = "COMPLETED"
	InvestmentStatusCancelled = "CANCELLED"
)

// InvestmentProduct 投资产品表
// daily_return_bp 为日收益率（万分之一），日收益 = price * daily_return_bp / 10000，整数精确
type InvestmentProduct struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"type:varchar(64);not null" json:"name"`
	Price         int64     `gorm:"not null" json:"price"`           // 价格（分）
	DailyReturnBP int64     `gorm:"not null" json:"daily_return_bp"` // 日收益率（基点）
	DurationDays  int       `gorm:"not null" json:"duration_days"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (InvestmentProduct) TableName() string {
	return "investment_product"
}

// UserInvestment 用户持仓表
type UserInvestment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"index;not null" json:"user_id"`
	ProductID   int64     `gorm:"index;not null" json:"product_id"`
	Amount      int64     `gorm:"not null" json:"amount"`       // 投入金额（分）
	DailyReturn int64     `gorm:"not null" json:"daily_return"` // 每日收益（分），下单时按产品计算后固定
	Status      string    `gorm:"type:varchar(20);index;not null" json:"status"`
	StartDate   time.Time `gorm:"not null" json:"start_date"`
	EndDate     time.Time `gorm:"not null" json:"end_date"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserInvestment) TableName() string {
	return "user_investment"
}
