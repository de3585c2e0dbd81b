package repository

import (
	"context"
	"errors"

	"rewardsystem/internal/model"

	"gorm.io/gorm"
)

var ErrProductNotFound = errors.New("投资产品不存在")

// InvestmentRepository 投资产品与持仓数据访问接口
type InvestmentRepository interface {
	GetProduct(ctx context.Context, productID int64) (*model.InvestmentProduct, error)
	ListActiveProducts(ctx context.Context) ([]*model.InvestmentProduct, error)
	CreateInvestment(ctx context.Context, investment *model.UserInvestment) error
	ListActiveByUser(ctx context.Context, userID int64) ([]*model.UserInvestment, error)
	// SumActiveDailyReturn 该用户当前所有生效持仓的日收益之和
	SumActiveDailyReturn(ctx context.Context, userID int64) (int64, error)
	// ListUsersWithActive 当前存在生效持仓的全部用户ID（每日计息的输入）
	ListUsersWithActive(ctx context.Context) ([]int64, error)
	// CompleteExpired 把到期持仓标记为 COMPLETED，返回条数
	CompleteExpired(ctx context.Context) (int64, error)
}

type investmentRepo struct {
	db *gorm.DB
}

func NewInvestmentRepo(db *gorm.DB) InvestmentRepository {
	return &investmentRepo{db: db}
}

func (r *investmentRepo) GetProduct(ctx context.Context, productID int64) (*model.InvestmentProduct, error) {
	var product model.InvestmentProduct
	err := r.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *investmentRepo) ListActiveProducts(ctx context.Context) ([]*model.InvestmentProduct, error) {
	var products []*model.InvestmentProduct
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("price ASC").
		Find(&products).Error
	return products, err
}

func (r *investmentRepo) CreateInvestment(ctx context.Context, investment *model.UserInvestment) error {
	return r.db.WithContext(ctx).Create(investment).Error
}

func (r *investmentRepo) ListActiveByUser(ctx context.Context, userID int64) ([]*model.UserInvestment, error) {
	var investments []*model.UserInvestment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.InvestmentStatusActive).
		Find(&investments).Error
	return investments, err
}

func (r *investmentRepo) SumActiveDailyReturn(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&model.UserInvestment{}).
		Select("COALESCE(SUM(daily_return), 0)").
		Where("user_id = ? AND status = ?", userID, model.InvestmentStatusActive).
		Scan(&sum).Error
	return sum, err
}

func (r *investmentRepo) ListUsersWithActive(ctx context.Context) ([]int64, error) {
	var userIDs []int64
	err := r.db.WithContext(ctx).
		Model(&model.UserInvestment{}).
		Distinct("user_id").
		Where("status = ?", model.InvestmentStatusActive).
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

func (r *investmentRepo) CompleteExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.UserInvestment{}).
		Where("status = ? AND end_date < NOW()", model.InvestmentStatusActive).
		Update("status", model.InvestmentStatusCompleted)
	return result.RowsAffected, result.Error
}
