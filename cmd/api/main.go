package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/telesalud/shift-sync/backend/internal/config"
	"github.com/telesalud/shift-sync/backend/internal/handler"
	"github.com/telesalud/shift-sync/backend/internal/repository"
	"github.com/telesalud/shift-sync/backend/internal/synchronizer"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 连接数据库并确保初始管理员存在
	 **********************************************/
	dbpool, err := openDatabase(cfg)
	if err != nil {
		logger.Error("数据库初始化失败", "error", err)
		return
	}
	defer dbpool.Close()

	repo := repository.NewRepository(cfg, dbpool)

	if err := ensureInitialAdmin(context.Background(), cfg, repo); err != nil {
		logger.Error("初始管理员初始化失败", "error", err)
		return
	}

	/**********************************************
	 * 连接 rabbitmq，通知邮件通过 email_queue 投递给 mail worker
	 **********************************************/
	conn, ch, err := openMailChannel(cfg)
	if err != nil {
		logger.Error("消息队列初始化失败", "error", err)
		return
	}
	defer conn.Close()
	defer ch.Close()

	/**********************************************
	 * 连接 redis，只用于缓存参考数据
	 **********************************************/
	rdb := newRedisClient(cfg)
	defer rdb.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), time.Duration(cfg.Redis.ConnectTimeout)*time.Second)
	defer cancelPing()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// 缓存不可用时查询会回退到数据库
		logger.Warn("无法连接到 redis，参考数据将直接从数据库读取", "error", err)
	}

	references := repository.NewReferenceCache(repo, rdb, time.Duration(cfg.Redis.ReferenceCacheTTL)*time.Second, logger)

	/**********************************************
	 * 创建同步引擎和 handler
	 **********************************************/
	engine := synchronizer.New(repo, references, synchronizer.Options{
		ConsistencyThreshold: cfg.Consistency.ThresholdHours,
		Logger:               logger,
	})

	h, err := handler.NewHandler(cfg, repo, references, engine, ch)
	if err != nil {
		logger.Error("无法创建 handler", "error", err)
		return
	}
	h.RegisterRoutes()

	/**********************************************
	 * 启动 HTTP 服务器
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      h.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("正在启动服务器...", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("无法启动服务器", slog.String("error", err.Error()))
		}
	}()

	<-quit
	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("关闭服务器失败", slog.String("error", err.Error()))
	}
	logger.Info("服务器已成功关闭")
}
