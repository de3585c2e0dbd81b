package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rewardsystem/internal/config"
	"rewardsystem/internal/infrastructure/lock"
	"rewardsystem/internal/model"
	"rewardsystem/internal/repository"
)

// 所有 mock 内部用互斥锁保护，条件更新与真实仓储一样是原子的，
// 并发测试依赖这一点。

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	seq   int64
	users map[int64]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*model.User)}
}

func (m *mockUserRepo) put(user *model.User) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		m.seq++
		user.ID = m.seq
	}
	m.users[user.ID] = user
	return user
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.PhoneNumber == user.PhoneNumber {
			return repository.ErrDuplicatePhone
		}
		if u.ReferralCode == user.ReferralCode {
			return repository.ErrDuplicatePhone
		}
	}
	m.seq++
	user.ID = m.seq
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, userID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepo) GetByIDForUpdate(ctx context.Context, userID int64) (*model.User, error) {
	return m.GetByID(ctx, userID)
}

func (m *mockUserRepo) GetByReferralCode(_ context.Context, code string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ReferralCode == code {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepo) GetByPhone(_ context.Context, phone string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.PhoneNumber == phone {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepo) Credit(_ context.Context, userID int64, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.WalletBalance += amount
	return nil
}

func (m *mockUserRepo) Debit(_ context.Context, userID int64, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if u.WalletBalance < amount {
		return repository.ErrBalanceNotEnough
	}
	u.WalletBalance -= amount
	return nil
}

func (m *mockUserRepo) SetReferredBy(_ context.Context, userID, referrerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if u.ReferredBy != nil {
		return repository.ErrReferrerAlreadySet
	}
	u.ReferredBy = &referrerID
	return nil
}

func (m *mockUserRepo) IncrTotalReferrals(_ context.Context, referrerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[referrerID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.TotalReferrals++
	return nil
}

func (m *mockUserRepo) AddReferralEarnings(_ context.Context, userID int64, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.WalletBalance += amount
	u.ReferralEarnings += amount
	return nil
}

func (m *mockUserRepo) AddDailyIncomeCollected(_ context.Context, userID int64, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.WalletBalance += amount
	u.TotalDailyIncomeCollected += amount
	return nil
}

// ── Mock ReferralRepository ──

type mockReferralRepo struct {
	mu          sync.Mutex
	seq         int64
	referrals   map[int64]*model.ReferralAcceptance
	invitations map[string]*model.ReferralInvitation
	bonuses     map[string]*model.ReferralBonus
}

func newMockReferralRepo() *mockReferralRepo {
	return &mockReferralRepo{
		referrals:   make(map[int64]*model.ReferralAcceptance),
		invitations: make(map[string]*model.ReferralInvitation),
		bonuses:     make(map[string]*model.ReferralBonus),
	}
}

func pairKey(a, b int64) string {
	return fmt.Sprintf("%d-%d", a, b)
}

func (m *mockReferralRepo) CreatePendingIgnoreConflict(_ context.Context, referral *model.ReferralAcceptance) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.referrals {
		if r.ReferredUserID == referral.ReferredUserID && r.ReferrerID == referral.ReferrerID {
			return false, nil
		}
	}
	m.seq++
	referral.ID = m.seq
	if referral.CreatedAt.IsZero() {
		referral.CreatedAt = time.Now()
	}
	m.referrals[referral.ID] = referral
	return true, nil
}

func (m *mockReferralRepo) GetByReferredUser(_ context.Context, referredUserID int64) (*model.ReferralAcceptance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.referrals {
		if r.ReferredUserID == referredUserID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, repository.ErrReferralNotFound
}

func (m *mockReferralRepo) GetPendingForUpdate(_ context.Context, referredUserID int64) (*model.ReferralAcceptance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.referrals {
		if r.ReferredUserID == referredUserID && r.Status == model.ReferralStatusPending {
			copied := *r
			return &copied, nil
		}
	}
	return nil, repository.ErrReferralNotFound
}

func (m *mockReferralRepo) HasPendingOrAccepted(_ context.Context, referredUserID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.referrals {
		if r.ReferredUserID == referredUserID &&
			(r.Status == model.ReferralStatusPending || r.Status == model.ReferralStatusAccepted) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReferralRepo) UpdateStatus(_ context.Context, id int64, fromStatus, toStatus string) (bool, error) {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return false, repository.ErrReferralStatusInvalid
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.referrals[id]
	if !ok || r.Status != fromStatus {
		return false, nil
	}
	now := time.Now()
	r.Status = toStatus
	r.ProcessedAt = &now
	return true, nil
}

func (m *mockReferralRepo) CountAcceptedByReferrer(_ context.Context, referrerID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, r := range m.referrals {
		if r.ReferrerID == referrerID && r.Status == model.ReferralStatusAccepted {
			count++
		}
	}
	return count, nil
}

func (m *mockReferralRepo) CountCreatedSince(_ context.Context, referrerID int64, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, r := range m.referrals {
		if r.ReferrerID == referrerID && !r.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockReferralRepo) CreateInvitationIgnoreConflict(_ context.Context, invitation *model.ReferralInvitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(invitation.ReferrerID, invitation.ReferredUserID)
	if _, ok := m.invitations[key]; !ok {
		m.invitations[key] = invitation
	}
	return nil
}

func (m *mockReferralRepo) CreateBonusIgnoreConflict(_ context.Context, bonus *model.ReferralBonus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(bonus.ReferrerID, bonus.ReferredUserID)
	if _, ok := m.bonuses[key]; ok {
		return false, nil
	}
	m.bonuses[key] = bonus
	return true, nil
}

func (m *mockReferralRepo) HasBonus(_ context.Context, referrerID, referredUserID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bonuses[pairKey(referrerID, referredUserID)]
	return ok, nil
}

func (m *mockReferralRepo) ListByReferrer(_ context.Context, referrerID int64, _, _ int) ([]*model.ReferralAcceptance, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.ReferralAcceptance
	for _, r := range m.referrals {
		if r.ReferrerID == referrerID {
			copied := *r
			result = append(result, &copied)
		}
	}
	return result, int64(len(result)), nil
}

// ── Mock GiftRepository ──

type mockGiftRepo struct {
	mu    sync.Mutex
	seq   int64
	gifts map[int64]*model.DailyGift
}

func newMockGiftRepo() *mockGiftRepo {
	return &mockGiftRepo{gifts: make(map[int64]*model.DailyGift)}
}

func (m *mockGiftRepo) CreateIgnoreConflict(_ context.Context, gift *model.DailyGift) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.gifts {
		if g.UserID == gift.UserID && g.GiftDate == gift.GiftDate && g.Source == gift.Source {
			return false, nil
		}
	}
	m.seq++
	gift.ID = m.seq
	m.gifts[gift.ID] = gift
	return true, nil
}

func (m *mockGiftRepo) GetByID(_ context.Context, giftID int64) (*model.DailyGift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gifts[giftID]; ok {
		copied := *g
		return &copied, nil
	}
	return nil, repository.ErrGiftNotFound
}

func (m *mockGiftRepo) MarkCollected(_ context.Context, giftID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gifts[giftID]
	if !ok || g.UserID != userID || g.IsCollected {
		return false, nil
	}
	now := time.Now()
	g.IsCollected = true
	g.CollectedAt = &now
	return true, nil
}

func (m *mockGiftRepo) ListUncollected(_ context.Context, userID int64) ([]*model.DailyGift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.DailyGift
	for _, g := range m.gifts {
		if g.UserID == userID && !g.IsCollected {
			copied := *g
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockGiftRepo) SumUncollected(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, g := range m.gifts {
		if g.UserID == userID && !g.IsCollected {
			sum += g.Amount
		}
	}
	return sum, nil
}

// ── Mock GiftCodeRepository ──

type mockGiftCodeRepo struct {
	mu          sync.Mutex
	seq         int64
	codes       map[int64]*model.GiftCode
	redemptions map[string]*model.GiftCodeRedemption
}

func newMockGiftCodeRepo() *mockGiftCodeRepo {
	return &mockGiftCodeRepo{
		codes:       make(map[int64]*model.GiftCode),
		redemptions: make(map[string]*model.GiftCodeRedemption),
	}
}

func (m *mockGiftCodeRepo) CreateIgnoreConflict(_ context.Context, code *model.GiftCode) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.Code == code.Code {
			return false, nil
		}
	}
	m.seq++
	code.ID = m.seq
	m.codes[code.ID] = code
	return true, nil
}

func (m *mockGiftCodeRepo) GetByCode(_ context.Context, code string) (*model.GiftCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.Code == code {
			copied := *c
			return &copied, nil
		}
	}
	return nil, repository.ErrGiftCodeNotFound
}

func (m *mockGiftCodeRepo) IncrementUses(_ context.Context, codeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[codeID]
	if !ok || !c.IsActive || c.CurrentUses >= c.MaxUses {
		return false, nil
	}
	c.CurrentUses++
	return true, nil
}

func (m *mockGiftCodeRepo) CreateRedemptionIgnoreConflict(_ context.Context, redemption *model.GiftCodeRedemption) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(redemption.UserID, redemption.GiftCodeID)
	if _, ok := m.redemptions[key]; ok {
		return false, nil
	}
	m.redemptions[key] = redemption
	return true, nil
}

func (m *mockGiftCodeRepo) SumRedeemedByUser(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, r := range m.redemptions {
		if r.UserID == userID {
			sum += r.Amount
		}
	}
	return sum, nil
}

func (m *mockGiftCodeRepo) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, c := range m.codes {
		if c.IsActive && c.ExpiresAt.Before(now) {
			c.IsActive = false
			count++
		}
	}
	return count, nil
}

// ── Mock DepositRepository ──

type mockDepositRepo struct {
	mu       sync.Mutex
	seq      int64
	deposits map[int64]*model.DepositRequest
}

func newMockDepositRepo() *mockDepositRepo {
	return &mockDepositRepo{deposits: make(map[int64]*model.DepositRequest)}
}

func (m *mockDepositRepo) Create(_ context.Context, deposit *model.DepositRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	deposit.ID = m.seq
	deposit.CreatedAt = time.Now()
	m.deposits[deposit.ID] = deposit
	return nil
}

func (m *mockDepositRepo) GetByID(_ context.Context, id int64) (*model.DepositRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.deposits[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, repository.ErrDepositNotFound
}

func (m *mockDepositRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.DepositRequest, error) {
	return m.GetByID(ctx, id)
}

func (m *mockDepositRepo) UpdateStatus(_ context.Context, id int64, fromStatus, toStatus, adminNotes string) (bool, error) {
	if !model.DepositCanTransitionTo(fromStatus, toStatus) {
		return false, repository.ErrDepositStatusInvalid
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deposits[id]
	if !ok || d.Status != fromStatus {
		return false, nil
	}
	now := time.Now()
	d.Status = toStatus
	d.AdminNotes = adminNotes
	d.ProcessedAt = &now
	return true, nil
}

func (m *mockDepositRepo) CountApprovedByUser(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, d := range m.deposits {
		if d.UserID == userID && d.Status == model.DepositStatusApproved {
			count++
		}
	}
	return count, nil
}

func (m *mockDepositRepo) ListByUser(_ context.Context, userID int64, _, _ int) ([]*model.DepositRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.DepositRequest
	for _, d := range m.deposits {
		if d.UserID == userID {
			copied := *d
			result = append(result, &copied)
		}
	}
	return result, int64(len(result)), nil
}

// ── Mock WithdrawalRepository ──

type mockWithdrawalRepo struct {
	mu          sync.Mutex
	seq         int64
	withdrawals map[int64]*model.WithdrawalRequest
}

func newMockWithdrawalRepo() *mockWithdrawalRepo {
	return &mockWithdrawalRepo{withdrawals: make(map[int64]*model.WithdrawalRequest)}
}

func (m *mockWithdrawalRepo) Create(_ context.Context, withdrawal *model.WithdrawalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	withdrawal.ID = m.seq
	withdrawal.CreatedAt = time.Now()
	m.withdrawals[withdrawal.ID] = withdrawal
	return nil
}

func (m *mockWithdrawalRepo) GetByID(_ context.Context, id int64) (*model.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.withdrawals[id]; ok {
		copied := *w
		return &copied, nil
	}
	return nil, repository.ErrWithdrawalNotFound
}

func (m *mockWithdrawalRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	return m.GetByID(ctx, id)
}

func (m *mockWithdrawalRepo) UpdateStatus(_ context.Context, id int64, fromStatus, toStatus, adminNotes string) (bool, error) {
	if !model.WithdrawalCanTransitionTo(fromStatus, toStatus) {
		return false, repository.ErrWithdrawalStatusInvalid
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.withdrawals[id]
	if !ok || w.Status != fromStatus {
		return false, nil
	}
	now := time.Now()
	w.Status = toStatus
	w.AdminNotes = adminNotes
	w.ProcessedAt = &now
	return true, nil
}

func (m *mockWithdrawalRepo) ListByUser(_ context.Context, userID int64, _, _ int) ([]*model.WithdrawalRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.WithdrawalRequest
	for _, w := range m.withdrawals {
		if w.UserID == userID {
			copied := *w
			result = append(result, &copied)
		}
	}
	return result, int64(len(result)), nil
}

// ── Mock InvestmentRepository ──

type mockInvestmentRepo struct {
	mu          sync.Mutex
	seq         int64
	products    map[int64]*model.InvestmentProduct
	investments map[int64]*model.UserInvestment
}

func newMockInvestmentRepo() *mockInvestmentRepo {
	return &mockInvestmentRepo{
		products:    make(map[int64]*model.InvestmentProduct),
		investments: make(map[int64]*model.UserInvestment),
	}
}

func (m *mockInvestmentRepo) GetProduct(_ context.Context, productID int64) (*model.InvestmentProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[productID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockInvestmentRepo) ListActiveProducts(_ context.Context) ([]*model.InvestmentProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.InvestmentProduct
	for _, p := range m.products {
		if p.IsActive {
			copied := *p
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockInvestmentRepo) CreateInvestment(_ context.Context, investment *model.UserInvestment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	investment.ID = m.seq
	m.investments[investment.ID] = investment
	return nil
}

func (m *mockInvestmentRepo) ListActiveByUser(_ context.Context, userID int64) ([]*model.UserInvestment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.UserInvestment
	for _, inv := range m.investments {
		if inv.UserID == userID && inv.Status == model.InvestmentStatusActive {
			copied := *inv
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockInvestmentRepo) SumActiveDailyReturn(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, inv := range m.investments {
		if inv.UserID == userID && inv.Status == model.InvestmentStatusActive {
			sum += inv.DailyReturn
		}
	}
	return sum, nil
}

func (m *mockInvestmentRepo) ListUsersWithActive(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[int64]bool)
	var result []int64
	for _, inv := range m.investments {
		if inv.Status == model.InvestmentStatusActive && !seen[inv.UserID] {
			seen[inv.UserID] = true
			result = append(result, inv.UserID)
		}
	}
	return result, nil
}

func (m *mockInvestmentRepo) CompleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	now := time.Now()
	for _, inv := range m.investments {
		if inv.Status == model.InvestmentStatusActive && inv.EndDate.Before(now) {
			inv.Status = model.InvestmentStatusCompleted
			count++
		}
	}
	return count, nil
}

// ── Mock LedgerRepository ──

type mockLedgerRepo struct {
	mu           sync.Mutex
	transactions []*model.AccountTransaction
}

func newMockLedgerRepo() *mockLedgerRepo {
	return &mockLedgerRepo{}
}

func (m *mockLedgerRepo) Create(_ context.Context, trans *model.AccountTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, trans)
	return nil
}

func (m *mockLedgerRepo) GetByTransactionNo(_ context.Context, transactionNo string) (*model.AccountTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.transactions {
		if t.TransactionNo == transactionNo {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repository.ErrTransactionNotFound
}

func (m *mockLedgerRepo) ListByUserID(_ context.Context, userID int64, _, _ int) ([]*model.AccountTransaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.AccountTransaction
	for _, t := range m.transactions {
		if t.UserID == userID {
			copied := *t
			result = append(result, &copied)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockLedgerRepo) SumByUserAndType(_ context.Context, userID int64, transType string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, t := range m.transactions {
		if t.UserID == userID && t.Type == transType {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (m *mockLedgerRepo) countByType(transType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, t := range m.transactions {
		if t.Type == transType {
			count++
		}
	}
	return count
}

// ── Mock OutboxRepository ──

type mockOutboxRepo struct {
	mu       sync.Mutex
	messages []*model.OutboxMessage
}

func newMockOutboxRepo() *mockOutboxRepo {
	return &mockOutboxRepo{}
}

func (m *mockOutboxRepo) Create(_ context.Context, msg *model.OutboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = int64(len(m.messages) + 1)
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockOutboxRepo) GetPendingMessages(_ context.Context, limit int) ([]*model.OutboxMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.OutboxMessage
	for _, msg := range m.messages {
		if msg.Status == model.OutboxStatusPending {
			result = append(result, msg)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (m *mockOutboxRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			msg.Status = status
		}
	}
	return nil
}

func (m *mockOutboxRepo) IncrementRetryCount(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			msg.RetryCount++
		}
	}
	return nil
}

func (m *mockOutboxRepo) MarkAsFailed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			msg.Status = model.OutboxStatusFailed
			msg.RetryCount++
		}
	}
	return nil
}

func (m *mockOutboxRepo) GetFailedMessages(_ context.Context, limit int) ([]*model.OutboxMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.OutboxMessage
	for _, msg := range m.messages {
		if msg.Status == model.OutboxStatusFailed {
			result = append(result, msg)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

// ── 测试装配 ──

type testMocks struct {
	user       *mockUserRepo
	referral   *mockReferralRepo
	gift       *mockGiftRepo
	giftCode   *mockGiftCodeRepo
	deposit    *mockDepositRepo
	withdrawal *mockWithdrawalRepo
	investment *mockInvestmentRepo
	ledger     *mockLedgerRepo
	outbox     *mockOutboxRepo
}

// newTestRepo 组装全 mock 的仓储聚合
// db 为 nil，InTransaction 直接执行回调，原子性由各 mock 自身的锁保证
func newTestRepo() (*repository.Repository, *testMocks) {
	mocks := &testMocks{
		user:       newMockUserRepo(),
		referral:   newMockReferralRepo(),
		gift:       newMockGiftRepo(),
		giftCode:   newMockGiftCodeRepo(),
		deposit:    newMockDepositRepo(),
		withdrawal: newMockWithdrawalRepo(),
		investment: newMockInvestmentRepo(),
		ledger:     newMockLedgerRepo(),
		outbox:     newMockOutboxRepo(),
	}
	repo := &repository.Repository{
		User:       mocks.user,
		Referral:   mocks.referral,
		Gift:       mocks.gift,
		GiftCode:   mocks.giftCode,
		Deposit:    mocks.deposit,
		Withdrawal: mocks.withdrawal,
		Investment: mocks.investment,
		Ledger:     mocks.ledger,
		Outbox:     mocks.outbox,
	}
	return repo, mocks
}

func testConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				RewardEvent:     "reward-event",
				DepositEvent:    "deposit-event",
				WithdrawalEvent: "withdrawal-event",
			},
		},
		Business: config.BusinessConfig{
			ReferralExpiryHours:        720,
			MaxReferralsPerUser:        1000,
			MaxDailyReferrals:          10,
			FirstDepositBonusPercent:   10,
			GiftCodeMaxAmount:          10000000,
			GiftCodeMaxDurationMinutes: 43200,
			GiftCodeDefaultMaxUses:     1000,
			MaxRetryCount:              3,
		},
	}
}

// 测试使用真实的进程内锁，并发用例依赖它的互斥语义
func testGuard() lock.UserGuard {
	return lock.NewKeyedLock(2 * time.Second)
}
