package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rewardsystem/internal/config"
	"rewardsystem/internal/handler"
	"rewardsystem/internal/infrastructure/cache"
	"rewardsystem/internal/infrastructure/database"
	"rewardsystem/internal/infrastructure/lock"
	"rewardsystem/internal/infrastructure/mq"
	"rewardsystem/internal/job"
	"rewardsystem/internal/repository"
	"rewardsystem/internal/service"
	"rewardsystem/pkg/idgen"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig("config/config.yaml")

	// 初始化 ID 生成器
	idgen.Init(1)

	// 初始化结构化日志
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	// 初始化 MySQL
	db := database.InitMySQL(&cfg.MySQL)

	// 初始化 Redis
	redisClient := cache.InitRedis(&cfg.Redis)

	// 初始化 Kafka
	mq.InitKafka(&cfg.Kafka)
	defer mq.CloseKafka()

	// 仓储聚合与用户锁
	repo := repository.NewRepository(db)
	guard := lock.NewUserGuard(&cfg.Lock, redisClient)

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动后台任务
	outboxSender := job.NewOutboxSender(repo, cfg, logger)
	go outboxSender.Start(ctx)

	giftService := service.NewGiftService(repo, guard, cfg, logger)
	giftCodeService := service.NewGiftCodeService(repo, guard, cfg, logger)
	accrualJob := job.NewDailyAccrualJob(repo, giftService, giftCodeService, cfg, logger)
	go accrualJob.Start(ctx)

	// 设置路由
	router := handler.SetupRouter(repo, guard, cfg, logger)

	// 启动 HTTP 服务
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// 在 goroutine 中启动服务器
	go func() {
		log.Printf("服务启动，监听端口: %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 取消上下文，停止后台任务
	cancel()

	// 关闭 HTTP 服务（等待最多5秒）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("服务关闭异常: %v", err)
	}

	log.Println("服务已关闭")
}
