package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"rewardsystem/internal/model"
	"rewardsystem/internal/repository"
)

func setupInvestmentTest() (*InvestmentService, *testMocks) {
	repo, mocks := newTestRepo()
	svc := NewInvestmentService(repo, testGuard(), testConfig(), zap.NewNop())
	return svc, mocks
}

func seedProduct(mocks *testMocks, id, price, dailyReturnBP int64, durationDays int, active bool) {
	mocks.investment.products[id] = &model.InvestmentProduct{
		ID:            id,
		Name:          "稳健30天",
		Price:         price,
		DailyReturnBP: dailyReturnBP,
		DurationDays:  durationDays,
		IsActive:      active,
	}
}

func TestInvestmentService_Purchase_Success(t *testing.T) {
	svc, mocks := setupInvestmentTest()
	user := seedUser(mocks, 1, "ABC123")
	user.WalletBalance = 100000
	// 100000 分，日收益 50bp = 500 分
	seedProduct(mocks, 10, 100000, 50, 30, true)

	investment, err := svc.Purchase(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("购买应成功: %v", err)
	}
	if investment.DailyReturn != 500 {
		t.Errorf("期望日收益 500，实际=%d", investment.DailyReturn)
	}
	if investment.Status != model.InvestmentStatusActive {
		t.Errorf("期望状态 ACTIVE，实际=%s", investment.Status)
	}
	if !investment.EndDate.After(investment.StartDate) {
		t.Error("到期日应晚于起息日")
	}

	stored, _ := mocks.user.GetByID(context.Background(), 1)
	if stored.WalletBalance != 0 {
		t.Errorf("期望扣款后余额 0，实际=%d", stored.WalletBalance)
	}
	if n := mocks.ledger.countByType(model.TransactionTypeInvestment); n != 1 {
		t.Errorf("期望 1 条投资流水，实际=%d", n)
	}
}

func TestInvestmentService_Purchase_BalanceNotEnough(t *testing.T) {
	svc, mocks := setupInvestmentTest()
	user := seedUser(mocks, 1, "ABC123")
	user.WalletBalance = 500
	seedProduct(mocks, 10, 100000, 50, 30, true)

	if _, err := svc.Purchase(context.Background(), 1, 10); !errors.Is(err, repository.ErrBalanceNotEnough) {
		t.Errorf("期望 ErrBalanceNotEnough，实际: %v", err)
	}

	// 扣款失败不应留下持仓
	investments, _ := mocks.investment.ListActiveByUser(context.Background(), 1)
	if len(investments) != 0 {
		t.Errorf("不应创建持仓，实际=%d", len(investments))
	}
}

func TestInvestmentService_Purchase_ProductInactive(t *testing.T) {
	svc, mocks := setupInvestmentTest()
	user := seedUser(mocks, 1, "ABC123")
	user.WalletBalance = 100000
	seedProduct(mocks, 10, 100000, 50, 30, false)

	if _, err := svc.Purchase(context.Background(), 1, 10); !errors.Is(err, ErrProductInactive) {
		t.Errorf("期望 ErrProductInactive，实际: %v", err)
	}
}

func TestInvestmentService_Purchase_ProductNotFound(t *testing.T) {
	svc, mocks := setupInvestmentTest()
	seedUser(mocks, 1, "ABC123")

	if _, err := svc.Purchase(context.Background(), 1, 404); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("期望 ErrProductNotFound，实际: %v", err)
	}
}
