package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/SlpAus/stream-raffle-backend/api"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/config"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/health"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/shutdown"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/startup"
	"github.com/SlpAus/stream-raffle-backend/internal/user"
	"github.com/SlpAus/stream-raffle-backend/pkg/lifecycle"
	"github.com/SlpAus/stream-raffle-backend/pkg/token"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}

	token.GenerateSecretKey()
	database.InitDB(cfg.Database.Sqlite)
	database.InitRedis(cfg.Database.Redis)

	// 1. 阻塞式获取初始Run ID
	health.InitializeRunID()

	// 2. 执行应用首次启动初始化流程
	if err := startup.InitializeApplication(); err != nil {
		panic(fmt.Sprintf("应用初始化失败，无法启动: %v", err))
	}

	// 3. 阻塞式执行一次启动后健康检查
	fmt.Println("正在执行启动后健康检查...")
	health.PerformCheck()

	// 4. 创建生命周期管理器并启动后台服务
	lifecycleMgr := lifecycle.NewManager()

	healthHandle, err := lifecycleMgr.NewServiceHandle("health-checker")
	if err != nil {
		panic(err)
	}
	health.StartRedisHealthCheck(healthHandle)

	recomputeHandle, err := lifecycleMgr.NewServiceHandle("recompute-worker")
	if err != nil {
		panic(err)
	}
	user.StartRecomputeWorker(recomputeHandle, cfg.Raffle.RecomputeInterval)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		fmt.Printf("服务器已准备就绪，开始监听 %s\n", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic("Failed to start server: " + err.Error())
		}
	}()

	// 5. 阻塞等待停机信号，编排优雅停机
	coordinator := shutdown.NewCoordinator(lifecycleMgr)
	coordinator.ListenForSignalsAndShutdown(server)
}
