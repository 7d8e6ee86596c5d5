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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"campus-timetable/backend/config"
	"campus-timetable/backend/internal/api/handler"
	"campus-timetable/backend/internal/api/router"
	"campus-timetable/backend/internal/repository"
	"campus-timetable/backend/internal/service"
	"campus-timetable/backend/pkg/database"
	"campus-timetable/backend/pkg/jwt"
	applogger "campus-timetable/backend/pkg/logger"
	"campus-timetable/backend/pkg/metrics"
	"campus-timetable/backend/pkg/redis"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "启动时不执行数据库迁移")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	// 1. 加载配置并监听变化（仅日志级别支持热更新）
	var atom zap.AtomicLevel
	var logger *zap.Logger
	cfg, err := config.Watch(cfgPath, func(next *config.Config) {
		if logger == nil {
			return
		}
		if err := applogger.SetLevel(atom, next.Log.Level); err != nil {
			logger.Warn("日志级别热更新失败", zap.String("level", next.Log.Level), zap.Error(err))
			return
		}
		logger.Info("日志级别已更新", zap.String("level", next.Log.Level))
	})
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	// 2. 初始化日志
	logger, atom, err = applogger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	defer sqlDB.Close()
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	if !skipMigrate {
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 吊销名单不可用，限流改用本地令牌桶", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	// 5. 指标
	var rec metrics.Recorder = metrics.Nop{}
	var metricsApp http.Handler
	if cfg.Metrics.Enabled {
		prom, err := metrics.NewProm(prometheus.DefaultRegisterer)
		if err != nil {
			return fmt.Errorf("注册指标失败: %w", err)
		}
		rec = prom
		metricsApp = metrics.Handler(prometheus.DefaultGatherer)
	}

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, rec, logger)
	h := handler.NewHandler(svc)

	// 7. 例外清理任务
	loc, err := time.LoadLocation(cfg.Calendar.Timezone)
	if err != nil {
		loc = time.UTC
	}
	retention := service.NewRetentionJob(cfg.Retention, loc, repo, rec, logger)
	if err := retention.Start(); err != nil {
		return err
	}
	defer retention.Stop()

	// 8. 初始化路由
	engine, err := router.Setup(router.Deps{
		Config:     cfg,
		Handler:    h,
		JWT:        jwt.NewManager(&cfg.Auth),
		Redis:      rdb,
		Metrics:    rec,
		MetricsApp: metricsApp,
		Ready:      sqlDB.PingContext,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("初始化路由失败: %w", err)
	}

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP 服务器异常: %w", err)
		}
	case <-ctx.Done():
		logger.Info("收到关闭信号，开始优雅关闭...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	logger.Info("服务器已关闭")
	return nil
}
