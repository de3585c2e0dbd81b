package service

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"rewardsystem/internal/model"
)

func setupBonusTest() (*BonusService, *testMocks) {
	repo, mocks := newTestRepo()
	svc := NewBonusService(repo, testGuard(), testConfig(), zap.NewNop())
	return svc, mocks
}

// 造一个已接受推荐、已有一笔审核通过存款的用户
func seedAcceptedReferral(mocks *testMocks, referrerID, userID, depositAmount int64) {
	seedUser(mocks, referrerID, "REFCOD")
	referred := seedUser(mocks, userID, "USRCOD")
	referred.ReferredBy = &referrerID

	mocks.referral.CreatePendingIgnoreConflict(context.Background(), &model.ReferralAcceptance{
		ReferredUserID: userID,
		ReferrerID:     referrerID,
		Status:         model.ReferralStatusAccepted,
	})
	mocks.deposit.Create(context.Background(), &model.DepositRequest{
		TransactionID: "DEP001",
		UserID:        userID,
		Amount:        depositAmount,
		Status:        model.DepositStatusApproved,
	})
}

func TestBonusService_FirstDeposit_Credited(t *testing.T) {
	svc, mocks := setupBonusTest()
	// $100 存款 = 10000 分
	seedAcceptedReferral(mocks, 1, 2, 10000)

	result, err := svc.ProcessFirstDepositBonus(context.Background(), 2, 10000)
	if err != nil {
		t.Fatalf("处理首充奖励应成功: %v", err)
	}
	if !result.Credited {
		t.Fatalf("应发放奖励，原因=%s", result.Reason)
	}
	// 10% = $10 = 1000 分
	if result.BonusAmount != 1000 {
		t.Errorf("期望奖励 1000 分，实际=%d", result.BonusAmount)
	}

	referrer, _ := mocks.user.GetByID(context.Background(), 1)
	if referrer.WalletBalance != 1000 {
		t.Errorf("期望推荐人余额 1000，实际=%d", referrer.WalletBalance)
	}
	if referrer.ReferralEarnings != 1000 {
		t.Errorf("期望推荐收益 1000，实际=%d", referrer.ReferralEarnings)
	}

	// 流水与发件箱各一条
	if n := mocks.ledger.countByType(model.TransactionTypeReferralBonus); n != 1 {
		t.Errorf("期望 1 条奖励流水，实际=%d", n)
	}
	if len(mocks.outbox.messages) != 1 {
		t.Errorf("期望 1 条发件箱消息，实际=%d", len(mocks.outbox.messages))
	}
}

func TestBonusService_SecondCall_Skipped(t *testing.T) {
	svc, mocks := setupBonusTest()
	seedAcceptedReferral(mocks, 1, 2, 10000)

	first, err := svc.ProcessFirstDepositBonus(context.Background(), 2, 10000)
	if err != nil || !first.Credited {
		t.Fatalf("首次调用应发放: %v", err)
	}

	second, err := svc.ProcessFirstDepositBonus(context.Background(), 2, 10000)
	if err != nil {
		t.Fatalf("重复调用不应报错: %v", err)
	}
	if second.Credited {
		t.Error("重复调用不应再次发放")
	}

	referrer, _ := mocks.user.GetByID(context.Background(), 1)
	if referrer.WalletBalance != 1000 {
		t.Errorf("余额只应增加一次，实际=%d", referrer.WalletBalance)
	}
}

func TestBonusService_NoReferral_Skipped(t *testing.T) {
	svc, mocks := setupBonusTest()
	seedUser(mocks, 2, "USRCOD")

	result, err := svc.ProcessFirstDepositBonus(context.Background(), 2, 10000)
	if err != nil {
		t.Fatalf("无推荐关系不应报错: %v", err)
	}
	if result.Credited {
		t.Error("无推荐关系不应发放奖励")
	}
}

func TestBonusService_PendingReferral_Skipped(t *testing.T) {
	svc, mocks := setupBonusTest()
	seedUser(mocks, 1, "REFCOD")
	seedUser(mocks, 2, "USRCOD")
	mocks.referral.CreatePendingIgnoreConflict(context.Background(), &model.ReferralAcceptance{
		ReferredUserID: 2,
		ReferrerID:     1,
		Status:         model.ReferralStatusPending,
	})

	result, err := svc.ProcessFirstDepositBonus(context.Background(), 2, 10000)
	if err != nil {
		t.Fatalf("推荐未生效不应报错: %v", err)
	}
	if result.Credited {
		t.Error("推荐未生效不应发放奖励")
	}
}

func TestBonusService_NotFirstDeposit_Skipped(t *testing.T) {
	svc, mocks := setupBonusTest()
	seedAcceptedReferral(mocks, 1, 2, 10000)
	// 第二笔审核通过的存款
	mocks.deposit.Create(context.Background(), &model.DepositRequest{
		TransactionID: "DEP002",
		UserID:        2,
		Amount:        5000,
		Status:        model.DepositStatusApproved,
	})

	result, err := svc.ProcessFirstDepositBonus(context.Background(), 2, 5000)
	if err != nil {
		t.Fatalf("非首笔存款不应报错: %v", err)
	}
	if result.Credited {
		t.Error("非首笔存款不应发放奖励")
	}

	referrer, _ := mocks.user.GetByID(context.Background(), 1)
	if referrer.WalletBalance != 0 {
		t.Errorf("余额不应变化，实际=%d", referrer.WalletBalance)
	}
}

func TestBonusService_Concurrent_SingleCredit(t *testing.T) {
	svc, mocks := setupBonusTest()
	seedAcceptedReferral(mocks, 1, 2, 10000)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ProcessFirstDepositBonus(context.Background(), 2, 10000); err != nil {
				t.Errorf("并发调用不应报错: %v", err)
			}
		}()
	}
	wg.Wait()

	referrer, _ := mocks.user.GetByID(context.Background(), 1)
	if referrer.WalletBalance != 1000 {
		t.Errorf("并发下奖励只应发放一次，余额=%d", referrer.WalletBalance)
	}
	if n := mocks.ledger.countByType(model.TransactionTypeReferralBonus); n != 1 {
		t.Errorf("期望 1 条奖励流水，实际=%d", n)
	}
}
