package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mosa54/control-center/config"
	"github.com/mosa54/control-center/internal/api/handler"
	"github.com/mosa54/control-center/internal/api/middleware"
	"github.com/mosa54/control-center/internal/api/router"
	"github.com/mosa54/control-center/internal/gateway"
	"github.com/mosa54/control-center/internal/notify"
	"github.com/mosa54/control-center/internal/repository"
	"github.com/mosa54/control-center/internal/service"
	"github.com/mosa54/control-center/pkg/database"
	applogger "github.com/mosa54/control-center/pkg/logger"
	"github.com/mosa54/control-center/pkg/mqtt"
	"github.com/mosa54/control-center/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, "server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("notify_driver", cfg.Notify.Driver),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	if err := database.RunMigrations(db, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，写接口限流将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 变更推送
	notifier := newNotifier(cfg, rdb, logger)

	// 6. 依赖注入: Repository → Gateway → Service → Handler
	repo := repository.NewRepository(db)
	gw := gateway.NewStore(repo, notifier, logger)
	svc := service.NewService(cfg, gw, logger)

	if cfg.Roster.SeedFile != "" {
		seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := svc.Settings.EnsureSeed(seedCtx, cfg.Roster.SeedFile); err != nil {
			logger.Warn("导入初始名册失败", zap.String("file", cfg.Roster.SeedFile), zap.Error(err))
		}
		cancel()
	}

	h := handler.NewHandler(svc, notifier, logger)

	// 7. 初始化路由
	var limiter middleware.RateLimiter
	if rdb != nil {
		limiter = rdb
	}
	health := func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return sqlDB.PingContext(ctx)
	}
	engine := router.Setup(cfg, h, limiter, health, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	// 事件流为长连接，不设置 WriteTimeout
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	// 先关闭推送，事件流连接随之结束
	if err := notifier.Close(); err != nil {
		logger.Warn("关闭变更推送异常", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接（redis 推送已在 notifier.Close 中关闭）
	if rdb != nil && cfg.Notify.Driver != "redis" {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// newNotifier 按 notify.driver 选择推送实现，失败时退回进程内 Hub
func newNotifier(cfg *config.Config, rdb *redis.Client, logger *zap.Logger) notify.Notifier {
	switch cfg.Notify.Driver {
	case "redis":
		if rdb == nil {
			logger.Warn("Redis 不可用，变更推送退回进程内模式")
			return notify.NewHub()
		}
		return notify.NewRedis(rdb, cfg.Notify.Channel, logger)
	case "mqtt":
		client, err := mqtt.NewClient(&cfg.MQTT, logger)
		if err != nil {
			logger.Warn("MQTT 连接失败，变更推送退回进程内模式", zap.Error(err))
			return notify.NewHub()
		}
		n, err := notify.NewMQTT(client, cfg.MQTT.Topic, logger)
		if err != nil {
			client.Disconnect()
			logger.Warn("订阅 MQTT 主题失败，变更推送退回进程内模式", zap.Error(err))
			return notify.NewHub()
		}
		return n
	default:
		return notify.NewHub()
	}
}
