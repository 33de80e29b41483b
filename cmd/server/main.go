package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bukulele/beontrack-portal-sub001/config"
	"github.com/bukulele/beontrack-portal-sub001/internal/api/handler"
	"github.com/bukulele/beontrack-portal-sub001/internal/api/router"
	"github.com/bukulele/beontrack-portal-sub001/internal/board"
	"github.com/bukulele/beontrack-portal-sub001/internal/jobs"
	"github.com/bukulele/beontrack-portal-sub001/internal/repository"
	"github.com/bukulele/beontrack-portal-sub001/internal/service"
	"github.com/bukulele/beontrack-portal-sub001/pkg/database"
	applogger "github.com/bukulele/beontrack-portal-sub001/pkg/logger"
	"github.com/bukulele/beontrack-portal-sub001/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("FLEET_CONFIG"))
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
		zap.String("hos_timezone", cfg.HOS.Timezone),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	var cache service.SnapshotCache
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，看板快照缓存与限流将不可用", zap.Error(err))
		rdb = nil
	} else {
		cache = rdb
	}

	// 5. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	store := board.NewStore()
	svc, err := service.NewService(cfg, repo, store, cache, logger)
	if err != nil {
		logger.Fatal("初始化服务失败", zap.Error(err))
	}
	h := handler.NewHandler(svc)

	// 6. 初始化路由
	engine := router.Setup(cfg, h, rdb, db, logger)

	// 7. 后台任务：看板刷新循环 + 悬挂派车清理
	ctx, stop := context.WithCancel(context.Background())
	boardDone := make(chan struct{})
	go func() {
		defer close(boardDone)
		if err := svc.Board.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("看板刷新循环异常退出", zap.Error(err))
		}
	}()

	var sweeper *jobs.Sweeper
	if cfg.Sweeper.Enabled {
		sweeper, err = jobs.NewSweeper(cfg.Sweeper.Schedule, svc.Truck, logger)
		if err != nil {
			logger.Fatal("初始化清理任务失败", zap.Error(err))
		}
		sweeper.Start()
	}

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if sweeper != nil {
		sweeper.Stop()
	}
	stop()
	<-boardDone

	// 关闭数据库连接
	if sqlDB != nil {
		sqlDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
