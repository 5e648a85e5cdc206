package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"Nemi_Hub/internal/config"
	"Nemi_Hub/internal/metrics"
	"Nemi_Hub/internal/pkg"
	"Nemi_Hub/internal/repository/mysql"
	"Nemi_Hub/internal/repository/redis"
	"Nemi_Hub/internal/router"
	"Nemi_Hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd.Context(), cfg, newLogger(cfg))
		},
	}
}

func serveRun(parent context.Context, cfg *config.Config, logger *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 容器内按 cgroup 配额设置 GOMAXPROCS
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Info(fmt.Sprintf(format, args...))
	})); err != nil {
		logger.Warn("set GOMAXPROCS failed", "error", err)
	}

	gin.SetMode(cfg.Server.Mode)

	db, err := mysql.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	// 自动建表
	if err := mysql.Migrate(db); err != nil {
		return err
	}

	// 连接redis
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	jwtMgr := pkg.NewJWTManager(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	tokens := redis.NewTokenRepository(rdb)

	communities := service.NewCommunityService(db)
	users := service.NewUserService(db, tokens, jwtMgr, logger)
	decisions := service.NewDecisionService(db, rdb, communities,
		service.WithMetrics(m),
		service.WithLogger(logger),
	)

	sender, closeSender, err := buildSender(cfg, communities, logger)
	if err != nil {
		return err
	}
	defer closeSender()

	relayer := service.NewOutboxRelayer(db, sender, cfg.Outbox, m, logger)
	sweeper := service.NewDeadlineSweeper(decisions, cfg.Sweeper)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		relayer.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	engine := router.InitRouter(router.Deps{
		Users:       users,
		Communities: communities,
		Decisions:   decisions,
		JWT:         jwtMgr,
		Tokens:      tokens,
		Metrics:     m,
		Gatherer:    reg,
		Logger:      logger,
	})
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Error("http server shutdown failed", "error", serr)
	}
	wg.Wait()
	logger.Info("server stopped")
	return err
}

// buildSender 按配置组合 outbox 投递方式；都没配置时只打日志
func buildSender(cfg *config.Config, communities *service.CommunityService, logger *slog.Logger) (service.Sender, func(), error) {
	var senders []service.NamedSender
	closeFn := func() {}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := pkg.NewDecisionProducer(pkg.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() {
			if err := producer.Close(); err != nil {
				logger.Warn("kafka producer close failed", "error", err)
			}
		}
		senders = append(senders, service.NamedSender{Name: "kafka", Send: service.KafkaSender(producer)})
		logger.Info("outbox sender enabled", "sender", "kafka", "topic", cfg.Kafka.Topic)
	}

	smtp := pkg.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}
	if smtp.Enabled() {
		senders = append(senders, service.NamedSender{Name: "email", Send: service.EmailSender(smtp, communities)})
		logger.Info("outbox sender enabled", "sender", "email", "host", smtp.Host)
	}

	switch len(senders) {
	case 0:
		return service.LogSender(logger), closeFn, nil
	case 1:
		return senders[0].Send, closeFn, nil
	default:
		return service.MultiSender(senders...), closeFn, nil
	}
}
