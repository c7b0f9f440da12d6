package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/NordCoder/Quill/internal/auth"
	config "github.com/NordCoder/Quill/internal/config/api"
	"github.com/NordCoder/Quill/internal/services/api/posts"
	"github.com/NordCoder/Quill/internal/services/api/session"

	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config/api.yaml", "path to the YAML config; missing file means env and defaults only")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting api", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version),
		zap.String("notifier", cfg.Notifier.Mode))

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	db, rp, err := initDB(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	codec, err := auth.NewCodec(auth.TokenConfig{
		Secret:    []byte(cfg.Auth.JWTSecret),
		Algorithm: cfg.Auth.JWTAlgorithm,
	})
	if err != nil {
		logger.Fatal("token codec", zap.Error(err))
	}

	notifier, pipeline, err := initNotifier(rootCtx, cfg, logger, rp.outbox)
	if err != nil {
		logger.Fatal("notifier", zap.Error(err))
	}
	defer func() { _ = pipeline.Close() }()

	sessions := session.NewUseCase(rp.users, auth.NewBcryptHasher(cfg.Auth.BcryptCost), codec, notifier, logger,
		session.Config{
			AccessTTL:       cfg.Auth.AccessTTL,
			RefreshTTL:      cfg.Auth.RefreshTTL,
			VerificationTTL: cfg.Auth.VerificationTTL,
			VerifyBaseURL:   cfg.Auth.VerifyBaseURL,
			NotifyTimeout:   cfg.Notifier.Timeout,
		},
	)
	postsUC := posts.New(rp.posts, time.Now)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	var bg sync.WaitGroup
	if pipeline != nil {
		bg.Add(1)
		go func() {
			defer bg.Done()
			pipeline.runner.Run(bgCtx)
		}()
	}

	grpcServer, healthSrv, grpcLn, err := buildGRPCServer(cfg)
	if err != nil {
		logger.Fatal("build grpc", zap.Error(err))
	}
	bg.Add(1)
	go func() {
		defer bg.Done()
		watchHealth(bgCtx, healthSrv, db.Ping, logger)
	}()

	grpcErrCh := make(chan error, 1)
	go func() { grpcErrCh <- serveGRPC(grpcServer, grpcLn, cfg, logger) }()

	httpSrv := buildHTTPServer(cfg, logger, sessions, postsUC, rp, db.Ping)

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, cfg, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err := <-grpcErrCh:
		if err != nil {
			logger.Error("grpc serve", zap.Error(err))
		}
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	gracefulStopGRPC(grpcServer, healthSrv)

	// pending notifications still get their enqueue before the runner stops
	sessions.Wait()
	bgCancel()
	bg.Wait()

	logger.Info("bye")
}
