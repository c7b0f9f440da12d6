package main

import (
	"context"
	"fmt"
	"time"

	config "github.com/NordCoder/Quill/internal/config/api"
	"github.com/NordCoder/Quill/internal/domain/notification"
	"github.com/NordCoder/Quill/internal/obs/retry"
	outboxsvc "github.com/NordCoder/Quill/internal/outbox"
	kafkax "github.com/NordCoder/Quill/internal/repository/kafka"
	pg "github.com/NordCoder/Quill/internal/repository/postgres"
	emailnotifier "github.com/NordCoder/Quill/internal/services/email-notifier"

	"go.uber.org/zap"
)

// deliveryPipeline is the background half of the outbox notifier. It is nil
// for the smtp and log modes.
type deliveryPipeline struct {
	runner   *outboxsvc.Runner
	producer *kafkax.Producer
}

func (p *deliveryPipeline) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}

func initNotifier(ctx context.Context, cfg *config.Config, logger *zap.Logger, outboxRepo *pg.OutboxRepo) (notification.Notifier, *deliveryPipeline, error) {
	switch cfg.Notifier.Mode {
	case config.NotifierSMTP:
		return emailnotifier.NewMailer(cfg.Notifier.SMTP, logger), nil, nil
	case config.NotifierLog:
		return emailnotifier.NewLogNotifier(logger), nil, nil
	case config.NotifierOutbox:
	default:
		return nil, nil, fmt.Errorf("unknown notifier mode %q", cfg.Notifier.Mode)
	}

	topicCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := kafkax.EnsureTopic(topicCtx, cfg.Kafka.Brokers, kafkax.TopicSpec{
		Name:              cfg.Kafka.Topic,
		NumPartitions:     cfg.Kafka.Partitions,
		ReplicationFactor: 1,
		MaxWait:           10 * time.Second,
	}, logger)
	if err != nil {
		// the runner keeps retrying, so a broker that comes up late is fine
		logger.Warn("ensure verification topic", zap.Error(err))
	}

	producer := kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	dispatch := outboxsvc.NewDispatcher(
		kafkax.NewVerificationEventsKafka(producer),
		retry.DeliveryPolicy("outbox.verification", logger),
	)
	runner := outboxsvc.NewRunner(logger, outboxRepo, dispatch, outboxsvc.RunnerConfig{
		Workers:       cfg.Outbox.Workers,
		BatchSize:     cfg.Outbox.BatchSize,
		WaitTime:      cfg.Outbox.WaitTime,
		InProgressTTL: cfg.Outbox.InProgressTTL,
	})
	return outboxsvc.NewNotifier(outboxRepo), &deliveryPipeline{runner: runner, producer: producer}, nil
}
