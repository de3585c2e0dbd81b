package idgen

import (
	"regexp"
	"strings"
	"sync"
	"testing"
)

func TestNextID_Unique(t *testing.T) {
	const count = 10000
	ids := make(chan int64, count)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < count/10; j++ {
				ids <- NextID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, count)
	for id := range ids {
		if id <= 0 {
			t.Fatalf("ID 应为正数，实际=%d", id)
		}
		if seen[id] {
			t.Fatalf("ID 重复: %d", id)
		}
		seen[id] = true
	}
}

func TestGenerateTransactionNo_Format(t *testing.T) {
	no := GenerateTransactionNo()
	if !strings.HasPrefix(no, "TXN") {
		t.Errorf("流水号应以 TXN 开头: %s", no)
	}
	// TXN + 14位时间 + 8位序号
	if len(no) != 25 {
		t.Errorf("期望流水号长度 25，实际=%d (%s)", len(no), no)
	}
}

func TestGenerateDepositNo_Format(t *testing.T) {
	no := GenerateDepositNo()
	if !strings.HasPrefix(no, "DEP") {
		t.Errorf("存款单号应以 DEP 开头: %s", no)
	}
	if len(no) != 25 {
		t.Errorf("期望单号长度 25，实际=%d (%s)", len(no), no)
	}
}

func TestGenerateCodes_Format(t *testing.T) {
	referralPattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	giftPattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)

	for i := 0; i < 100; i++ {
		if code := GenerateReferralCode(); !referralPattern.MatchString(code) {
			t.Fatalf("推荐码格式不正确: %q", code)
		}
		if code := GenerateGiftCode(); !giftPattern.MatchString(code) {
			t.Fatalf("礼品码格式不正确: %q", code)
		}
	}
}
