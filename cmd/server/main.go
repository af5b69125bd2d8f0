package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/api/handler"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/api/router"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/service"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/worker"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/database"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/jwt"
	applogger "github.com/bitandsolution/stadium-hospitality-manager/pkg/logger"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/mailer"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/realtime"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/redis"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml）")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("mail_provider", cfg.Mail.Provider),
	)

	// 业务时区（配置校验已保证可加载）
	loc, err := time.LoadLocation(cfg.Notification.Timezone)
	if err != nil {
		logger.Fatal("加载时区失败", zap.Error(err))
	}

	// 后台任务（实时监听、定时任务）共用的生命周期
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// 3. 链路追踪（未配置 endpoint 时为空实现）
	shutdownTracing, err := tracing.Setup(bgCtx, &cfg.Tracing)
	if err != nil {
		logger.Warn("链路追踪初始化失败，已禁用", zap.Error(err))
	}

	// 4. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 4.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 5. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单、登录限流与导入进度将不可用", zap.Error(err))
		rdb = nil
	}

	// 6. 邮件服务商
	provider, err := mailer.NewProvider(&cfg.Mail)
	if err != nil {
		logger.Fatal("初始化邮件服务商失败", zap.Error(err))
	}

	// 7. 实时推送：LISTEN guest_changes → SSE，可选转发到 MQTT
	var hub *realtime.Hub
	var mqttPub *realtime.MQTTPublisher
	if cfg.Realtime.Enabled {
		var publishers []realtime.Publisher
		if cfg.Realtime.MQTT.Broker != "" {
			mqttPub, err = realtime.NewMQTTPublisher(&cfg.Realtime.MQTT, logger)
			if err != nil {
				logger.Warn("MQTT 连接失败，仅启用 SSE 推送", zap.Error(err))
			} else {
				publishers = append(publishers, mqttPub)
			}
		}
		hub = realtime.NewHub(logger, publishers...)
		go hub.Listen(bgCtx, cfg.Database.DSN())
	}

	// 8. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, rdb, provider, loc, logger)

	if err := svc.Auth.EnsureBootstrapAdmin(bgCtx); err != nil {
		logger.Fatal("创建初始管理员失败", zap.Error(err))
	}

	checks := map[string]handler.Pinger{"database": handler.PingFunc(sqlDB.PingContext)}
	if rdb != nil {
		checks["redis"] = rdb
	}
	h := handler.NewHandler(cfg, svc, hub, handler.NewHealthHandler(checks), loc)

	// 9. 后台任务：补发通知、每日报告、通知清理
	wk, err := worker.New(cfg.Notification, svc.Dispatcher, svc.Report, svc.Email, rdb, loc, logger)
	if err != nil {
		logger.Fatal("初始化后台任务失败", zap.Error(err))
	}
	workerDone := wk.Start(bgCtx)

	// 10. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 11. 启动 HTTP 服务器（优雅关闭）
	// SSE 为长连接，不设置 WriteTimeout
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 12. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// 先停止接收请求，再通知后台任务退出（SSE 随请求上下文结束）
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	stopBackground()

	select {
	case <-workerDone:
	case <-ctx.Done():
		logger.Warn("等待后台任务退出超时")
	}

	// 等待进行中的邮件投递；未完成的行保持 pending，由下次补发处理
	if err := svc.Dispatcher.Wait(ctx); err != nil {
		logger.Warn("等待邮件投递超时", zap.Int64("in_flight", svc.Dispatcher.InFlight()), zap.Error(err))
	}

	if mqttPub != nil {
		mqttPub.Close()
	}

	if shutdownTracing != nil {
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("关闭链路追踪失败", zap.Error(err))
		}
	}

	// 关闭数据库连接
	sqlDB.Close()

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
