package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/leonard05717/appointment/config"
	"github.com/leonard05717/appointment/internal/api/handler"
	"github.com/leonard05717/appointment/internal/api/router"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/internal/realtime"
	"github.com/leonard05717/appointment/internal/repository"
	"github.com/leonard05717/appointment/internal/service"
	"github.com/leonard05717/appointment/pkg/database"
	"github.com/leonard05717/appointment/pkg/jwt"
	applogger "github.com/leonard05717/appointment/pkg/logger"
	"github.com/leonard05717/appointment/pkg/metrics"
	"github.com/leonard05717/appointment/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("APPT_CONFIG"))
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
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("realtime_driver", cfg.Realtime.Driver),
	)

	// 2.1 错误上报（可选）
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			SampleRate:       cfg.Sentry.SampleRate,
			AttachStacktrace: true,
		}); err != nil {
			logger.Warn("Sentry 初始化失败", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	if err := database.RunMigrations(db, cfg.Database.Driver, logger, model.All()...); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}
	if cfg.Database.Driver == config.DriverPostgres {
		if err := database.SetChangeFeedChannel(db, cfg.Realtime.Channel); err != nil {
			logger.Fatal("设置变更通知频道失败", zap.Error(err))
		}
	}

	// 4. 连接 Redis（可选：未配置或连接失败时降级为进程内实现）
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，草稿与 Token 黑名单改用进程内存储", zap.Error(err))
			rdb = nil
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 5. 变更推送
	broker, err := newBroker(ctx, cfg, rdb, logger)
	if err != nil {
		logger.Fatal("初始化变更推送失败", zap.Error(err))
	}

	// 6. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	m := metrics.New()
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, service.Dependencies{
		Redis:   rdb,
		Broker:  broker,
		Metrics: m,
	}, logger)
	h := handler.NewHandler(svc)

	// 6.1 排队看板：加载今日数据并跟随变更
	if err := svc.Queue.Load(ctx); err != nil {
		logger.Warn("加载排队看板失败", zap.Error(err))
	}
	reconciler := realtime.NewReconciler(broker, logger)
	reconciler.Register(realtime.TableAppointments, svc.Queue.Store())
	go func() {
		if err := reconciler.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("变更收敛退出", zap.Error(err))
		}
	}()

	// 6.2 过期预约自动取消
	go svc.Sweeper.Run(ctx)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, router.Deps{
		JWT:     jwtMgr,
		Tokens:  svc.Tokens,
		Redis:   rdb,
		Metrics: m,
	}, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		// 事件流是长连接，不设置写超时
		IdleTimeout: 60 * time.Second,
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

	// 先停后台任务，事件流随订阅通道关闭而结束
	stop()
	broker.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// newBroker 按 realtime.driver 选择变更来源；redis 与 postgres 需要后台接收循环
func newBroker(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger *zap.Logger) (realtime.Broker, error) {
	switch cfg.Realtime.Driver {
	case config.RealtimeRedis:
		if rdb == nil {
			return nil, fmt.Errorf("realtime.driver=redis 但 Redis 不可用")
		}
		b := realtime.NewRedisBroker(rdb, cfg.Realtime.Channel, logger)
		go runBroker(ctx, "redis", b.Run, logger)
		return b, nil
	case config.RealtimePostgres:
		b := realtime.NewPostgresBroker(cfg.Database.DSN(), cfg.Realtime.Channel, logger)
		go runBroker(ctx, "postgres", b.Run, logger)
		return b, nil
	default:
		return realtime.NewMemoryBroker(logger), nil
	}
}

func runBroker(ctx context.Context, name string, run func(context.Context) error, logger *zap.Logger) {
	if err := run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("变更接收循环退出", zap.String("driver", name), zap.Error(err))
	}
}
