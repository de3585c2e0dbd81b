package handler

import (
	"rewardsystem/internal/config"
	"rewardsystem/internal/infrastructure/lock"
	"rewardsystem/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter 配置路由
func SetupRouter(repo *repository.Repository, guard lock.UserGuard, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware(logger))
	r.Use(LoggerMiddleware(logger))
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(repo, guard, cfg, logger)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 用户与账户
		user := api.Group("/user")
		{
			user.POST("/register", h.Register)
		}
		account := api.Group("/account")
		{
			account.GET("/balance", h.GetBalance)
			account.GET("/income", h.GetIncome)
			account.GET("/transactions", h.ListTransactions)
			account.GET("/transaction", h.GetTransaction)
		}

		// 推荐相关
		referral := api.Group("/referral")
		{
			referral.POST("/create", h.CreateReferral)
			referral.POST("/accept", h.AcceptReferral)
			referral.POST("/reject", h.RejectReferral)
			referral.GET("/list", h.ListReferrals)
		}

		// 存款相关
		deposit := api.Group("/deposit")
		{
			deposit.POST("/create", h.CreateDeposit)
			deposit.POST("/approve", h.ApproveDeposit)
			deposit.POST("/reject", h.RejectDeposit)
		}

		// 提现相关
		withdrawal := api.Group("/withdrawal")
		{
			withdrawal.POST("/create", h.CreateWithdrawal)
			withdrawal.POST("/approve", h.ApproveWithdrawal)
			withdrawal.POST("/reject", h.RejectWithdrawal)
		}

		// 投资相关
		investment := api.Group("/investment")
		{
			investment.GET("/products", h.ListProducts)
			investment.POST("/purchase", h.Purchase)
		}

		// 收益礼物
		gift := api.Group("/gift")
		{
			gift.GET("/list", h.ListGifts)
			gift.POST("/collect", h.CollectGift)
		}

		// 礼品码
		giftcode := api.Group("/giftcode")
		{
			giftcode.POST("/create", h.CreateGiftCode)
			giftcode.POST("/redeem", h.RedeemGiftCode)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
