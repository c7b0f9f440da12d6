package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	config "github.com/NordCoder/Quill/internal/config/email-notifier"
	"github.com/NordCoder/Quill/internal/obs"
	"github.com/NordCoder/Quill/internal/obs/retry"
	"github.com/NordCoder/Quill/internal/repository/kafka"
	notifier "github.com/NordCoder/Quill/internal/services/email-notifier"

	"go.uber.org/zap"
)

func wiring(cfg *config.Config, cons *kafka.Consumer, l *zap.Logger) *notifier.Controller {
	mailer := notifier.NewMailer(cfg.SMTP, l)

	pol := retry.DeliveryPolicy("smtp", l)
	if cfg.Retry.Attempts > 0 {
		pol.Attempts = cfg.Retry.Attempts
	}

	uc := &notifier.Handler{
		Out:    mailer,
		Policy: pol,
		Log:    l,
	}
	return &notifier.Controller{Log: l, Sub: cons, UC: uc}
}

func main() {
	cfgPath := flag.String("config", "config/email-notifier.yaml", "path to the YAML config; missing file means env and defaults only")
	flag.Parse()

	// init
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(cfg.LoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	l.Info("starting email-notifier",
		zap.Any("kafka_in", cfg.In),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
		zap.String("smtp_addr", cfg.SMTP.Addr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	} else {
		defer func() { _ = otelCloser.Shutdown(context.Background()) }()
	}

	// metrics; no downstream to probe, liveness only
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, nil, l)

	// kafka
	cc := cfg.In.AsConsumerConfig()
	cc.Logger = l
	cons := kafka.BootstrapConsumer(rootCtx, cc, cfg.In.Partitions)
	defer func() { _ = cons.Close() }()
	l.Info("kafka consumer initialized",
		zap.Strings("brokers", cfg.In.Brokers),
		zap.String("group_id", cfg.In.GroupID),
		zap.String("topic", cfg.In.Topic),
	)

	// start
	ctrl := wiring(cfg, cons, l)
	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Run(rootCtx) }()

	// main loop
	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr := <-errCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			l.Error("controller error", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
