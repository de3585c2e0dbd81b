package handler

import (
	"errors"
	"strconv"

	"rewardsystem/internal/config"
	"rewardsystem/internal/infrastructure/lock"
	"rewardsystem/internal/repository"
	"rewardsystem/internal/service"
	"rewardsystem/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	accountService    *service.AccountService
	referralService   *service.ReferralService
	depositService    *service.DepositService
	withdrawalService *service.WithdrawalService
	investmentService *service.InvestmentService
	giftService       *service.GiftService
	giftCodeService   *service.GiftCodeService
}

// NewHandler 创建处理器实例
func NewHandler(repo *repository.Repository, guard lock.UserGuard, cfg *config.Config, logger *zap.Logger) *Handler {
	bonusService := service.NewBonusService(repo, guard, cfg, logger)
	referralService := service.NewReferralService(repo, guard, cfg, logger)

	return &Handler{
		accountService:    service.NewAccountService(repo, referralService, cfg, logger),
		referralService:   referralService,
		depositService:    service.NewDepositService(repo, bonusService, guard, cfg, logger),
		withdrawalService: service.NewWithdrawalService(repo, guard, cfg, logger),
		investmentService: service.NewInvestmentService(repo, guard, cfg, logger),
		giftService:       service.NewGiftService(repo, guard, cfg, logger),
		giftCodeService:   service.NewGiftCodeService(repo, guard, cfg, logger),
	}
}

// handleError 业务错误映射为响应码
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		response.BusinessError(c, response.CodeUserNotFound, err.Error())
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.BusinessError(c, response.CodeBalanceNotEnough, err.Error())
	case errors.Is(err, service.ErrReferralCodeInvalid),
		errors.Is(err, service.ErrReferralCodeNotFound),
		errors.Is(err, service.ErrSelfReferral),
		errors.Is(err, service.ErrReferrerLimitReached),
		errors.Is(err, service.ErrDailyReferralLimit):
		response.BusinessError(c, response.CodeReferralInvalid, err.Error())
	case errors.Is(err, service.ErrReferralAlreadyExists),
		errors.Is(err, service.ErrReferralNotPending),
		errors.Is(err, repository.ErrReferralNotFound):
		response.BusinessError(c, response.CodeReferralConflict, err.Error())
	case errors.Is(err, service.ErrReferralExpired):
		response.BusinessError(c, response.CodeReferralExpired, err.Error())
	case errors.Is(err, repository.ErrGiftNotFound),
		errors.Is(err, service.ErrGiftNotOwned):
		response.BusinessError(c, response.CodeGiftNotFound, err.Error())
	case errors.Is(err, service.ErrGiftAlreadyCollected):
		response.BusinessError(c, response.CodeGiftAlreadyCollected, err.Error())
	case errors.Is(err, service.ErrGiftCodeInvalid),
		errors.Is(err, repository.ErrGiftCodeNotFound),
		errors.Is(err, service.ErrGiftCodeInactive),
		errors.Is(err, service.ErrGiftCodeExpired):
		response.BusinessError(c, response.CodeGiftCodeInvalid, err.Error())
	case errors.Is(err, service.ErrGiftCodeExhausted):
		response.BusinessError(c, response.CodeGiftCodeExhausted, err.Error())
	case errors.Is(err, service.ErrGiftCodeAlreadyRedeemed):
		response.BusinessError(c, response.CodeGiftCodeRedeemed, err.Error())
	case errors.Is(err, service.ErrGiftCodeAmountInvalid),
		errors.Is(err, service.ErrGiftCodeDurationInvalid),
		errors.Is(err, service.ErrGiftCodeMaxUsesInvalid):
		response.ParamError(c, err.Error())
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, service.ErrProductInactive):
		response.BusinessError(c, response.CodeNotFound, err.Error())
	case errors.Is(err, repository.ErrDepositNotFound),
		errors.Is(err, service.ErrDepositNotPending),
		errors.Is(err, service.ErrDepositAmountInvalid):
		response.BusinessError(c, response.CodeDepositInvalid, err.Error())
	case errors.Is(err, repository.ErrWithdrawalNotFound),
		errors.Is(err, service.ErrWithdrawalNotPending),
		errors.Is(err, service.ErrWithdrawalAmountInvalid):
		response.BusinessError(c, response.CodeWithdrawalInvalid, err.Error())
	case errors.Is(err, repository.ErrTransactionNotFound):
		response.BusinessError(c, response.CodeNotFound, err.Error())
	case errors.Is(err, lock.ErrBusy):
		response.BusinessError(c, response.CodeSystemBusy, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// 用户与账户接口
// ============================================================

// RegisterRequest 注册请求
type RegisterRequest struct {
	PhoneNumber  string `json:"phone_number" binding:"required"`
	ReferralCode string `json:"referral_code"` // 可选，注册时挂接推荐关系
}

// Register 用户注册
// POST /api/v1/user/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.accountService.Register(c.Request.Context(), req.PhoneNumber, req.ReferralCode)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":       user.ID,
		"referral_code": user.ReferralCode,
	})
}

// GetBalance 查询用户余额
// GET /api/v1/account/balance?user_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	userID, err := parseUserID(c)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	user, err := h.accountService.GetUser(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":         user.ID,
		"wallet_balance":  user.WalletBalance,
		"total_referrals": user.TotalReferrals,
	})
}

// GetIncome 查询收益汇总
// GET /api/v1/account/income?user_id=xxx
func (h *Handler) GetIncome(c *gin.Context) {
	userID, err := parseUserID(c)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	summary, err := h.accountService.GetIncomeSummary(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, summary)
}

// ListTransactions 查询账户流水
// GET /api/v1/account/transactions?user_id=xxx&page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, err := parseUserID(c)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	page, pageSize := parsePage(c)
	transactions, total, err := h.accountService.ListTransactions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetTransaction 按流水号查询单条流水
// GET /api/v1/account/transaction?transaction_no=xxx
func (h *Handler) GetTransaction(c *gin.Context) {
	transactionNo := c.Query("transaction_no")
	if transactionNo == "" {
		response.ParamError(c, "transaction_no 参数错误")
		return
	}

	transaction, err := h.accountService.GetTransaction(c.Request.Context(), transactionNo)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, transaction)
}

// ============================================================
// 推荐相关接口
// ============================================================

// CreateReferralRequest 创建推荐请求
type CreateReferralRequest struct {
	UserID       int64  `json:"user_id" binding:"required"`
	ReferralCode string `json:"referral_code" binding:"required"`
}

// CreateReferral 用推荐码创建待处理的推荐关系
// POST /api/v1/referral/create
func (h *Handler) CreateReferral(c *gin.Context) {
	var req CreateReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.referralService.CreatePending(c.Request.Context(), req.UserID, req.ReferralCode); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "推荐关系已创建"})
}

// ReferralActionRequest 接受/拒绝推荐请求
type ReferralActionRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// AcceptReferral 接受推荐
// POST /api/v1/referral/accept
func (h *Handler) AcceptReferral(c *gin.Context) {
	var req ReferralActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.referralService.Accept(c.Request.Context(), req.UserID); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "推荐已接受"})
}

// RejectReferral 拒绝推荐
// POST /api/v1/referral/reject
func (h *Handler) RejectReferral(c *gin.Context) {
	var req ReferralActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.referralService.Reject(c.Request.Context(), req.UserID); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "推荐已拒绝"})
}

// ListReferrals 查询推荐人名下的推荐记录
// GET /api/v1/referral/list?user_id=xxx&page=1&page_size=10
func (h *Handler) ListReferrals(c *gin.Context) {
	userID, err := parseUserID(c)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	page, pageSize := parsePage(c)
	referrals, total, err := h.referralService.ListReferrals(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      referrals,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 存款相关接口
// ============================================================

// CreateDepositRequest 存款申请请求
type CreateDepositRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
	Amount int64 `json:"amount" binding:"required,gt=0"` // 金额（分）
}

// CreateDeposit 提交存款申请
// POST /api/v1/deposit/create
func (h *Handler) CreateDeposit(c *gin.Context) {
	var req CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	deposit, err := h.depositService.Create(c.Request.Context(), req.UserID, req.Amount)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"deposit_id":     deposit.ID,
		"transaction_id": deposit.TransactionID,
		"status":         deposit.Status,
	})
}

// DepositActionRequest 审核请求
type DepositActionRequest struct {
	DepositID  int64  `json:"deposit_id" binding:"required"`
	AdminNotes string `json:"admin_notes"`
}

// ApproveDeposit 审核通过存款（管理端）
// POST /api/v1/deposit/approve
//
// 【关键点】入账、状态转换、流水在一个事务内；首充推荐奖励在事务
// 提交后处理，奖励失败不会回滚存款
func (h *Handler) ApproveDeposit(c *gin.Context) {
	var req DepositActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.depositService.Approve(c.Request.Context(), req.DepositID, req.AdminNotes); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "存款已入账"})
}

// RejectDeposit 审核拒绝存款（管理端）
// POST /api/v1/deposit/reject
func (h *Handler) RejectDeposit(c *gin.Context) {
	var req DepositActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.depositService.Reject(c.Request.Context(), req.DepositID, req.AdminNotes); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "存款申请已拒绝"})
}

// ============================================================
// 提现相关接口
// ============================================================

// CreateWithdrawalRequest 提现申请请求
type CreateWithdrawalRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
	Amount int64 `json:"amount" binding:"required,gt=0"` // 金额（分）
}

// CreateWithdrawal 提交提现申请
// POST /api/v1/withdrawal/create
func (h *Handler) CreateWithdrawal(c *gin.Context) {
	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	withdrawal, err := h.withdrawalService.Create(c.Request.Context(), req.UserID, req.Amount)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"withdrawal_id":  withdrawal.ID,
		"transaction_id": withdrawal.TransactionID,
		"status":         withdrawal.Status,
	})
}

// WithdrawalActionRequest 审核请求
type WithdrawalActionRequest struct {
	WithdrawalID int64  `json:"withdrawal_id" binding:"required"`
	AdminNotes   string `json:"admin_notes"`
}

// ApproveWithdrawal 审核通过提现（管理端）
// POST /api/v1/withdrawal/approve
//
// 【关键点】扣款、状态转换、流水在一个事务内；余额不足时整笔回滚，
// 申请保持待审核状态
func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	var req WithdrawalActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.withdrawalService.Approve(c.Request.Context(), req.WithdrawalID, req.AdminNotes); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "提现已出账"})
}

// RejectWithdrawal 审核拒绝提现（管理端）
// POST /api/v1/withdrawal/reject
func (h *Handler) RejectWithdrawal(c *gin.Context) {
	var req WithdrawalActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.withdrawalService.Reject(c.Request.Context(), req.WithdrawalID, req.AdminNotes); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "提现申请已拒绝"})
}

// ============================================================
// 投资相关接口
// ============================================================

// ListProducts 查询上架中的投资产品
// GET /api/v1/investment/products
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.investmentService.ListProducts(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"list": products})
}

// PurchaseRequest 购买请求
type PurchaseRequest struct {
	UserID    int64 `json:"user_id" binding:"required"`
	ProductID int64 `json:"product_id" binding:"required"`
}

// Purchase 购买投资产品
// POST /api/v1/investment/purchase
func (h *Handler) Purchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	investment, err := h.investmentService.Purchase(c.Request.Context(), req.UserID, req.ProductID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"investment_id": investment.ID,
		"amount":        investment.Amount,
		"daily_return":  investment.DailyReturn,
		"end_date":      investment.EndDate,
	})
}

// ============================================================
// 收益礼物接口
// ============================================================

// ListGifts 查询未领取的收益礼物
// GET /api/v1/gift/list?user_id=xxx
func (h *Handler) ListGifts(c *gin.Context) {
	userID, err := parseUserID(c)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	gifts, err := h.giftService.ListUncollected(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"list": gifts})
}

// CollectGiftRequest 领取请求
type CollectGiftRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
	GiftID int64 `json:"gift_id" binding:"required"`
}

// CollectGift 领取收益礼物
// POST /api/v1/gift/collect
func (h *Handler) CollectGift(c *gin.Context) {
	var req CollectGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	amount, err := h.giftService.Collect(c.Request.Context(), req.UserID, req.GiftID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"amount": amount})
}

// ============================================================
// 礼品码接口
// ============================================================

// CreateGiftCodeRequest 创建礼品码请求（管理端）
type CreateGiftCodeRequest struct {
	CreatedBy       int64 `json:"created_by" binding:"required"`
	Amount          int64 `json:"amount" binding:"required,gt=0"` // 金额（分）
	DurationMinutes int   `json:"duration_minutes" binding:"required,gt=0"`
	MaxUses         int   `json:"max_uses"`
}

// CreateGiftCode 创建礼品码（管理端）
// POST /api/v1/giftcode/create
func (h *Handler) CreateGiftCode(c *gin.Context) {
	var req CreateGiftCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	giftCode, err := h.giftCodeService.Create(c.Request.Context(), req.CreatedBy, req.Amount, req.DurationMinutes, req.MaxUses)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"code":       giftCode.Code,
		"amount":     giftCode.Amount,
		"max_uses":   giftCode.MaxUses,
		"expires_at": giftCode.ExpiresAt,
	})
}

// RedeemGiftCodeRequest 兑换请求
type RedeemGiftCodeRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

// RedeemGiftCode 兑换礼品码
// POST /api/v1/giftcode/redeem
//
// 【关键点】兑换需要保证：
// 1. 幂等性：同一用户对同一个码只能兑换一次
// 2. 总量受限：兑换次数不超过 max_uses，并发下不会超发
// 3. 原子性：凭证、计数、入账、流水同时成功或同时失败
func (h *Handler) RedeemGiftCode(c *gin.Context) {
	var req RedeemGiftCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	amount, err := h.giftCodeService.Redeem(c.Request.Context(), req.UserID, req.Code)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"amount": amount})
}

// ============================================================
// 辅助函数
// ============================================================

func parseUserID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Query("user_id"), 10, 64)
}

func parsePage(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}
