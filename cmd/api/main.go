package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	auditrepository "suzu_discount/internal/domain/audit/repository"
	auditservice "suzu_discount/internal/domain/audit/service"

	// 各业务模块通过 init() 自注册
	_ "suzu_discount/internal/domain/admin"
	_ "suzu_discount/internal/domain/common"
	_ "suzu_discount/internal/domain/discount"

	"suzu_discount/internal/pkg/config"
	"suzu_discount/internal/pkg/middleware"
	"suzu_discount/internal/pkg/notifier"
	"suzu_discount/internal/pkg/registry"
	"suzu_discount/pkg/database"
	"suzu_discount/pkg/logger"
	"suzu_discount/pkg/metrics"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志
	logger.Init(cfg.Server.Mode)
	defer logger.Sync()

	// 3. 初始化存储
	db := database.InitDatabase(cfg.Database)
	auditDB := database.NewSQLXFromGorm(db)
	rdb := database.InitRedis(cfg.Redis)

	// 4. 审计写入器与 WhatsApp 投递调度器
	audit := auditservice.NewAuditService(auditrepository.NewAuditRepository(auditDB), 256)
	defer audit.Close()

	primary, fallback := notifier.BuildSenders(cfg.WhatsApp)
	dispatcher := notifier.NewDispatcher(primary, fallback,
		cfg.WhatsApp.MaxAttempts, cfg.WhatsApp.SendTimeoutSeconds,
		4, 256, audit.RecordFunc())
	dispatcher.Start()

	// 5. 初始化 Gin 引擎
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	router.Use(metrics.Middleware())

	// 6. 初始化业务模块
	moduleCtx := &registry.ModuleContext{
		Cfg:      cfg,
		DB:       db,
		AuditDB:  auditDB,
		Redis:    rdb,
		Router:   router,
		Audit:    audit,
		Notifier: dispatcher,
	}
	if err := registry.InitModules(moduleCtx); err != nil {
		logger.Log.Fatal("Failed to initialize modules", zap.Error(err))
	}

	// 7. 启动服务并等待退出信号
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
}
