package service

import "errors"

// 业务错误统一用哨兵错误定义，调用方通过 errors.Is 匹配。
// 存储层错误（用户不存在、余额不足等）定义在 repository 包。
var (
	ErrReferralCodeInvalid   = errors.New("推荐码格式不正确")
	ErrReferralCodeNotFound  = errors.New("推荐码不存在")
	ErrSelfReferral          = errors.New("不能使用自己的推荐码")
	ErrReferralAlreadyExists = errors.New("推荐关系已存在")
	ErrReferralNotPending    = errors.New("推荐记录不在待处理状态")
	ErrReferralExpired       = errors.New("推荐已过期")
	ErrReferrerLimitReached  = errors.New("推荐人已达推荐上限")
	ErrDailyReferralLimit    = errors.New("今日推荐次数已达上限")

	ErrGiftNotOwned         = errors.New("礼物不属于当前用户")
	ErrGiftAlreadyCollected = errors.New("礼物已领取")

	ErrGiftCodeInvalid         = errors.New("礼品码格式不正确")
	ErrGiftCodeInactive        = errors.New("礼品码已停用")
	ErrGiftCodeExpired         = errors.New("礼品码已过期")
	ErrGiftCodeExhausted       = errors.New("礼品码兑换次数已用尽")
	ErrGiftCodeAlreadyRedeemed = errors.New("礼品码已兑换过")
	ErrGiftCodeAmountInvalid   = errors.New("礼品码金额不合法")
	ErrGiftCodeDurationInvalid = errors.New("礼品码有效期不合法")
	ErrGiftCodeMaxUsesInvalid  = errors.New("礼品码兑换次数不合法")

	ErrDepositAmountInvalid = errors.New("存款金额不合法")
	ErrDepositNotPending    = errors.New("存款申请不在待审核状态")

	ErrWithdrawalAmountInvalid = errors.New("提现金额不合法")
	ErrWithdrawalNotPending    = errors.New("提现申请不在待审核状态")

	ErrProductInactive = errors.New("投资产品已下架")
)
